package models

// Inbound carrier webhook events. Each is independent and may arrive
// out of order or more than once.

type IncomingCall struct {
	CallID string `json:"callId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type SpeechResult struct {
	CallID     string  `json:"callId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type SilenceTimeout struct {
	CallID string `json:"callId"`
}

type StatusCallback struct {
	CallID          string `json:"callId"`
	Status          string `json:"status"`
	DurationSeconds int    `json:"durationSeconds"`
}

// Carrier statuses that terminate a call regardless of local state.
func TerminalCarrierStatus(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	}
	return false
}

// Emitted bus event names.
const (
	EventCallStarted        = "call:started"
	EventCallTurn           = "call:turn"
	EventCallEnded          = "call:ended"
	EventReservationCreated = "reservation:created"
)

// Event is the envelope published on the bus.
type Event struct {
	Name       string         `json:"name"`
	CallID     string         `json:"callId"`
	BusinessID string         `json:"businessId"`
	Payload    map[string]any `json:"payload,omitempty"`
}
