package models

import "time"

// CallStatus is the orchestrator state of a live call.
type CallStatus string

const (
	CallInitiated      CallStatus = "INITIATED"
	CallGreetingSent   CallStatus = "GREETING_SENT"
	CallAwaitingSpeech CallStatus = "AWAITING_SPEECH"
	CallProcessingTurn CallStatus = "PROCESSING_TURN"
	CallErrorRecovery  CallStatus = "ERROR_RECOVERY"
	CallEnding         CallStatus = "ENDING"
	CallEnded          CallStatus = "ENDED"
)

// Turn roles.
const (
	RoleCaller = "caller"
	RoleAgent  = "agent"
)

// Turn is one utterance in the conversation transcript.
type Turn struct {
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence *float64  `json:"confidence,omitempty"` // caller turns only
	TokensUsed *int      `json:"tokensUsed,omitempty"` // agent turns only
	Intent     string    `json:"intent,omitempty"`     // agent turns only
}

// CallSession holds the full per-call state reconstructed across webhook events.
type CallSession struct {
	ID            string           `json:"id"` // carrier call identifier
	BusinessID    string           `json:"businessId"`
	From          string           `json:"from"`
	To            string           `json:"to"`
	Status        CallStatus       `json:"status"`
	Conversation  []Turn           `json:"conversation"`
	TurnCount     int              `json:"turnCount"`
	TimeoutCount  int              `json:"timeoutCount"`
	FailureCount  int              `json:"failureCount"` // consecutive pipeline failures
	CurrentIntent string           `json:"currentIntent,omitempty"`
	Draft         ReservationDraft `json:"reservationDraft"`
	BookingTried  bool             `json:"bookingTried"`
	BookingOK     bool             `json:"bookingOk"`
	ReservationID string           `json:"reservationId,omitempty"`
	StartTime     time.Time        `json:"startTime"`
	CostLedger    CostLedger       `json:"costLedger"`
	Metrics       UsageMetrics     `json:"metrics"`
	EndReason     string           `json:"endReason,omitempty"`
	// Generation increments on every accepted transition; results carrying a
	// stale generation are discarded.
	Generation int64 `json:"generation"`
}

// AppendCallerTurn records a caller utterance and bumps the turn count.
func (s *CallSession) AppendCallerTurn(text string, confidence float64) {
	c := confidence
	s.Conversation = append(s.Conversation, Turn{
		Role:       RoleCaller,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		Confidence: &c,
	})
	s.TurnCount++
}

// AppendAgentTurn records an agent reply.
func (s *CallSession) AppendAgentTurn(text, intent string, tokensUsed int) {
	t := tokensUsed
	s.Conversation = append(s.Conversation, Turn{
		Role:       RoleAgent,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		TokensUsed: &t,
		Intent:     intent,
	})
}

// RecentTurns returns the last n turns of the conversation.
func (s *CallSession) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Conversation) <= n {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}

// Terminal reports whether the session can accept no further transitions.
func (s *CallSession) Terminal() bool {
	return s.Status == CallEnded
}
