// File: services/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"voicedesk/config"
	businessRepo "voicedesk/database/repository/business"
	callRepo "voicedesk/database/repository/call"
	"voicedesk/models"
	"voicedesk/services/cost"
	"voicedesk/services/events"
	"voicedesk/services/pipeline"
	"voicedesk/services/reservation"
	"voicedesk/services/speech"
	"voicedesk/utils"

	"go.uber.org/zap"
)

// Fixed spoken replies. Everything the caller hears is either generated or one
// of these.
const (
	defaultGreeting   = "Thank you for calling %s. How can I help you today?"
	apologyReply      = "I'm sorry, I'm having a little trouble right now. Could you say that once more?"
	repromptReply     = "Are you still there? I didn't hear anything."
	goodbyeReply      = "Thank you for calling. Goodbye!"
	unknownLineReply  = "We are sorry, this number is not in service. Goodbye."
	bookingErrorReply = "I'm sorry, I couldn't complete the booking just now. Please call back in a few minutes. Goodbye."
)

// End reasons carried on call:ended events.
const (
	ReasonCompleted   = "completed"
	ReasonFarewell    = "farewell"
	ReasonTimeout     = "timeout"
	ReasonTurnCap     = "turn_cap"
	ReasonError       = "error"
	ReasonBookingFail = "booking_error"
	ReasonWallClock   = "wall_clock_cap"
	ReasonCarrier     = "carrier"
)

// Settings are the orchestrator tunables, with defaults from configuration.
type Settings struct {
	MaxSilenceTimeouts  int
	MaxPipelineFailures int
	MaxTurns            int
	SessionTTL          time.Duration
	SessionCap          time.Duration
	LockLease           time.Duration
}

// SettingsFromConfig reads the tunables from app configuration.
func SettingsFromConfig() Settings {
	return Settings{
		MaxSilenceTimeouts:  config.AppConfig.MaxSilenceTimeouts,
		MaxPipelineFailures: config.AppConfig.MaxPipelineFailures,
		MaxTurns:            config.AppConfig.MaxTurns,
		SessionTTL:          time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute,
		SessionCap:          time.Duration(config.AppConfig.SessionCapMinutes) * time.Minute,
		LockLease:           time.Duration(config.AppConfig.LockTimeoutSeconds) * time.Second,
	}
}

// ReapScheduler schedules the wall-clock cap enforcement for a new session.
type ReapScheduler interface {
	ScheduleReap(callID string, after time.Duration) error
}

// PersistRetrier queues a call record whose synchronous save failed.
type PersistRetrier interface {
	EnqueuePersistRetry(record *models.CallRecord) error
}

// Orchestrator is the only component webhook handlers talk to. Every handler
// returns the ordered directives the telephony layer renders for the carrier.
type Orchestrator interface {
	HandleIncomingCall(ctx context.Context, ev models.IncomingCall) ([]models.Directive, error)
	HandleSpeechResult(ctx context.Context, ev models.SpeechResult) ([]models.Directive, error)
	HandleSilenceTimeout(ctx context.Context, ev models.SilenceTimeout) ([]models.Directive, error)
	HandleStatusCallback(ctx context.Context, ev models.StatusCallback) ([]models.Directive, error)
	ForceEnd(ctx context.Context, callID, reason string) error
}

// DefaultOrchestrator implements Orchestrator.
type DefaultOrchestrator struct {
	Sessions   SessionStore
	Businesses businessRepo.BusinessRepo
	Pipeline   pipeline.Pipeline
	Arbitrator reservation.Arbitrator
	Calls      callRepo.CallRepo
	Synth      speech.Synthesizer
	Bus        events.Publisher
	Reaper     ReapScheduler
	Retrier    PersistRetrier
	Rates      models.CostRates
	Settings   Settings
}

// lock acquires the session lease, bounded so a stuck collaborator on another
// event can never wedge this one forever.
func (o *DefaultOrchestrator) lock(ctx context.Context, callID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, o.Settings.LockLease)
	defer cancel()
	return o.Sessions.Lock(lockCtx, callID, o.Settings.LockLease)
}

// speak builds a speak directive, synthesizing through the audio cache when a
// synthesizer is wired. Synthesis failure degrades to text-only.
func (o *DefaultOrchestrator) speak(ctx context.Context, business *models.Business, s *models.CallSession, text string) models.Directive {
	if o.Synth == nil || business == nil {
		return models.Speak(text, "")
	}
	ref, err := o.Synth.Synthesize(ctx, business.ID, text, business.Voice)
	if err != nil {
		utils.GetLogger().Warn("synthesis failed, speaking text directly",
			zap.String("callId", s.ID), zap.Error(err))
		return models.Speak(text, "")
	}
	return models.Speak(text, ref)
}

func (o *DefaultOrchestrator) publish(name string, s *models.CallSession, payload map[string]any) {
	if o.Bus == nil {
		return
	}
	o.Bus.Publish(models.Event{Name: name, CallID: s.ID, BusinessID: s.BusinessID, Payload: payload})
}

func (o *DefaultOrchestrator) save(ctx context.Context, s *models.CallSession) error {
	return o.Sessions.Set(ctx, s, o.Settings.SessionTTL)
}

// HandleIncomingCall creates the session and sends the greeting.
func (o *DefaultOrchestrator) HandleIncomingCall(ctx context.Context, ev models.IncomingCall) ([]models.Directive, error) {
	business, err := o.Businesses.GetByPhone(ctx, ev.To)
	if err != nil {
		utils.GetLogger().Warn("incoming call for unknown number",
			zap.String("callId", ev.CallID), zap.String("to", ev.To), zap.Error(err))
		return []models.Directive{models.Speak(unknownLineReply, ""), models.Hangup()}, nil
	}

	unlock, err := o.lock(ctx, ev.CallID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	greeting := business.Greeting
	if greeting == "" {
		greeting = fmt.Sprintf(defaultGreeting, business.Name)
	}
	if !business.OpenAt(time.Now()) {
		greeting += " Please note we are currently closed, but I can still take a reservation."
	}

	// Duplicate delivery: replay the greeting without touching state.
	if existing, err := o.Sessions.Get(ctx, ev.CallID); err == nil {
		if existing.Terminal() {
			return []models.Directive{models.Hangup()}, nil
		}
		return []models.Directive{o.speak(ctx, business, existing, greeting), models.Gather()}, nil
	}

	s := &models.CallSession{
		ID:         ev.CallID,
		BusinessID: business.ID,
		From:       ev.From,
		To:         ev.To,
		Status:     models.CallInitiated,
		StartTime:  time.Now().UTC(),
		Metrics:    models.UsageMetrics{ModelTier: models.TierCheap},
	}

	s.Status = models.CallGreetingSent
	s.Generation++
	s.AppendAgentTurn(greeting, "", 0)
	s.Metrics.CharactersSynthesized += len(greeting)
	s.CostLedger = cost.Recompute(s.Metrics, o.Rates)

	if err := o.save(ctx, s); err != nil {
		utils.GetLogger().Error("failed to store new session",
			zap.String("callId", s.ID), zap.Error(err))
		return []models.Directive{models.Speak(apologyReply, ""), models.Hangup()}, nil
	}

	if o.Reaper != nil {
		if err := o.Reaper.ScheduleReap(s.ID, o.Settings.SessionCap); err != nil {
			utils.GetLogger().Warn("failed to schedule session reap",
				zap.String("callId", s.ID), zap.Error(err))
		}
	}

	o.publish(models.EventCallStarted, s, map[string]any{"from": ev.From, "to": ev.To})

	return []models.Directive{o.speak(ctx, business, s, greeting), models.Gather()}, nil
}

// HandleSpeechResult processes one caller turn through the response pipeline.
func (o *DefaultOrchestrator) HandleSpeechResult(ctx context.Context, ev models.SpeechResult) ([]models.Directive, error) {
	unlock, err := o.lock(ctx, ev.CallID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := o.Sessions.Get(ctx, ev.CallID)
	if err != nil {
		utils.GetLogger().Warn("speech result for unknown session", zap.String("callId", ev.CallID))
		return []models.Directive{models.Speak(goodbyeReply, ""), models.Hangup()}, nil
	}
	if s.Terminal() {
		return []models.Directive{models.Hangup()}, nil
	}
	if s.Status != models.CallGreetingSent && s.Status != models.CallAwaitingSpeech {
		// Out of order or duplicate; keep the call alive without mutating.
		utils.GetLogger().Warn("speech result in unexpected state",
			zap.String("callId", s.ID), zap.String("status", string(s.Status)))
		return []models.Directive{models.Gather()}, nil
	}

	business, err := o.Businesses.GetByID(ctx, s.BusinessID)
	if err != nil {
		utils.GetLogger().Error("failed to load business profile",
			zap.String("callId", s.ID), zap.Error(err))
		return []models.Directive{models.Speak(apologyReply, ""), models.Gather()}, nil
	}

	s.AppendCallerTurn(ev.Text, ev.Confidence)
	s.Status = models.CallProcessingTurn
	s.Generation++
	generation := s.Generation
	if err := o.save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to persist session before pipeline: %w", err)
	}

	pipeCtx, cancel := context.WithTimeout(ctx, o.Settings.LockLease)
	out, pipeErr := o.Pipeline.Respond(pipeCtx, pipeline.Input{
		Business:   business,
		Session:    s,
		Utterance:  ev.Text,
		Confidence: ev.Confidence,
	})
	cancel()

	// Stale-response guard: while the pipeline ran, the reaper or a carrier
	// callback may have advanced the session past this turn.
	current, err := o.Sessions.Get(ctx, ev.CallID)
	if err != nil {
		return []models.Directive{models.Hangup()}, nil
	}
	if current.Generation != generation || current.Terminal() {
		utils.GetLogger().Info("discarding stale pipeline result",
			zap.String("callId", s.ID),
			zap.Int64("resultGeneration", generation),
			zap.Int64("sessionGeneration", current.Generation))
		return []models.Directive{models.Hangup()}, nil
	}

	if pipeErr != nil {
		return o.handlePipelineFailure(ctx, business, s, pipeErr)
	}
	return o.handlePipelineSuccess(ctx, business, s, out)
}

func (o *DefaultOrchestrator) handlePipelineFailure(ctx context.Context, business *models.Business, s *models.CallSession, pipeErr error) ([]models.Directive, error) {
	s.FailureCount++
	utils.GetLogger().Warn("pipeline failure",
		zap.String("callId", s.ID), zap.Int("consecutive", s.FailureCount), zap.Error(pipeErr))

	if s.FailureCount >= o.Settings.MaxPipelineFailures {
		s.AppendAgentTurn(apologyReply, "", 0)
		o.finalize(ctx, s, business, ReasonError)
		return []models.Directive{o.speak(ctx, business, s, apologyReply), models.Speak(goodbyeReply, ""), models.Hangup()}, nil
	}

	s.Status = models.CallErrorRecovery
	s.Generation++
	s.AppendAgentTurn(apologyReply, "", 0)
	s.Status = models.CallAwaitingSpeech
	s.Generation++
	if err := o.save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to persist session after recovery: %w", err)
	}
	return []models.Directive{o.speak(ctx, business, s, apologyReply), models.Gather()}, nil
}

func (o *DefaultOrchestrator) handlePipelineSuccess(ctx context.Context, business *models.Business, s *models.CallSession, out *pipeline.Output) ([]models.Directive, error) {
	s.FailureCount = 0
	if !out.Clarify {
		s.CurrentIntent = out.Intent
	}
	s.Draft.Merge(out.Fields)

	reply := out.Reply
	ended := false
	reason := ""

	// Booking arbitration once the draft is complete.
	if out.Intent == pipeline.IntentReservation && s.Draft.Complete() && !s.BookingTried && o.Arbitrator != nil {
		outcome, err := o.Arbitrator.CheckAndReserve(ctx, business, s.ID, s.Draft)
		switch {
		case err != nil:
			s.BookingTried = true
			utils.GetLogger().Error("reservation arbitration failed",
				zap.String("callId", s.ID), zap.Error(err))
			reply = bookingErrorReply
			ended = true
			reason = ReasonBookingFail
		case outcome.Booked:
			s.BookingTried = true
			s.BookingOK = true
			s.ReservationID = outcome.Reservation.ID
			reply = fmt.Sprintf("You're all set, %s: a table for %d on %s at %s. See you then. Goodbye!",
				s.Draft.CustomerName, s.Draft.PartySize, s.Draft.Date, s.Draft.Time)
			o.publish(models.EventReservationCreated, s, map[string]any{
				"reservationId": outcome.Reservation.ID,
				"date":          outcome.Reservation.Date,
				"timeBucket":    outcome.Reservation.TimeBucket,
				"partySize":     outcome.Reservation.PartySize,
			})
			ended = true
			reason = ReasonCompleted
		default:
			// Lost the slot: invite another time and reopen the field.
			s.Draft.Time = ""
			reply = fmt.Sprintf("I'm sorry, that time is fully booked — we only have room for %d more there. Is there another time that works for you?",
				outcome.Remaining)
		}
	}

	if !ended && out.Intent == pipeline.IntentFarewell {
		ended = true
		reason = ReasonFarewell
		if reply == "" {
			reply = goodbyeReply
		}
	}
	if !ended && s.TurnCount >= o.Settings.MaxTurns {
		// Anti-loop safeguard.
		ended = true
		reason = ReasonTurnCap
		reply += " I have to let you go now, but feel free to call back any time. Goodbye!"
	}

	tokens := out.TokensInput + out.TokensOutput
	s.AppendAgentTurn(reply, out.Intent, tokens)
	s.Metrics.TokensInput += out.TokensInput
	s.Metrics.TokensOutput += out.TokensOutput
	s.Metrics.CharactersSynthesized += len(reply)
	if out.Tier == models.TierCapable {
		s.Metrics.ModelTier = models.TierCapable
	}
	s.CostLedger = cost.Recompute(s.Metrics, o.Rates)

	o.publish(models.EventCallTurn, s, map[string]any{
		"turnCount": s.TurnCount,
		"intent":    out.Intent,
		"cacheHit":  out.CacheHit,
		"tokens":    tokens,
	})

	if ended {
		o.finalize(ctx, s, business, reason)
		return []models.Directive{o.speak(ctx, business, s, reply), models.Hangup()}, nil
	}

	s.Status = models.CallAwaitingSpeech
	s.Generation++
	if err := o.save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to persist session after turn: %w", err)
	}
	return []models.Directive{o.speak(ctx, business, s, reply), models.Gather()}, nil
}

// HandleSilenceTimeout re-prompts once, then ends the call.
func (o *DefaultOrchestrator) HandleSilenceTimeout(ctx context.Context, ev models.SilenceTimeout) ([]models.Directive, error) {
	unlock, err := o.lock(ctx, ev.CallID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := o.Sessions.Get(ctx, ev.CallID)
	if err != nil {
		return []models.Directive{models.Hangup()}, nil
	}
	if s.Terminal() {
		return []models.Directive{models.Hangup()}, nil
	}

	s.TimeoutCount++
	if s.TimeoutCount < o.Settings.MaxSilenceTimeouts {
		s.Status = models.CallAwaitingSpeech
		s.Generation++
		s.AppendAgentTurn(repromptReply, "", 0)
		if err := o.save(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to persist session after reprompt: %w", err)
		}
		business, _ := o.Businesses.GetByID(ctx, s.BusinessID)
		return []models.Directive{o.speak(ctx, business, s, repromptReply), models.Gather()}, nil
	}

	business, _ := o.Businesses.GetByID(ctx, s.BusinessID)
	o.finalize(ctx, s, business, ReasonTimeout)
	return []models.Directive{models.Speak(goodbyeReply, ""), models.Hangup()}, nil
}

// HandleStatusCallback applies carrier-reported status. The carrier is
// authoritative: a terminal status forces ENDING from any state.
func (o *DefaultOrchestrator) HandleStatusCallback(ctx context.Context, ev models.StatusCallback) ([]models.Directive, error) {
	if !models.TerminalCarrierStatus(ev.Status) {
		return nil, nil
	}

	unlock, err := o.lock(ctx, ev.CallID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := o.Sessions.Get(ctx, ev.CallID)
	if err != nil {
		// Already finalized and removed; duplicates are fine.
		return nil, nil
	}
	if s.Terminal() {
		return nil, nil
	}

	if ev.DurationSeconds > 0 {
		s.Metrics.DurationSeconds = ev.DurationSeconds
		s.CostLedger = cost.Recompute(s.Metrics, o.Rates)
	}

	business, _ := o.Businesses.GetByID(ctx, s.BusinessID)
	o.finalize(ctx, s, business, ReasonCarrier+":"+ev.Status)
	return nil, nil
}

// ForceEnd terminates a session that exceeded its wall-clock cap.
func (o *DefaultOrchestrator) ForceEnd(ctx context.Context, callID, reason string) error {
	unlock, err := o.lock(ctx, callID)
	if err != nil {
		return err
	}
	defer unlock()

	s, err := o.Sessions.Get(ctx, callID)
	if err != nil || s.Terminal() {
		return nil
	}

	business, _ := o.Businesses.GetByID(ctx, s.BusinessID)
	o.finalize(ctx, s, business, reason)
	return nil
}
