// File: services/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicedesk/models"
	"voicedesk/services/pipeline"
)

// --- fakes ---

type fakeBusinessRepo struct {
	business *models.Business
}

func (f *fakeBusinessRepo) GetByID(ctx context.Context, id string) (*models.Business, error) {
	if f.business == nil || f.business.ID != id {
		return nil, errors.New("business not found")
	}
	return f.business, nil
}

func (f *fakeBusinessRepo) GetByPhone(ctx context.Context, phone string) (*models.Business, error) {
	if f.business == nil || f.business.Phone != phone {
		return nil, errors.New("business not found")
	}
	return f.business, nil
}

type fakePipeline struct {
	outputs   []*pipeline.Output
	errs      []error
	calls     int
	onRespond func(in pipeline.Input)
}

func (f *fakePipeline) Respond(ctx context.Context, in pipeline.Input) (*pipeline.Output, error) {
	idx := f.calls
	f.calls++
	if f.onRespond != nil {
		f.onRespond(in)
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.outputs) {
		return f.outputs[idx], nil
	}
	return &pipeline.Output{Reply: "Okay.", Intent: pipeline.IntentGeneral, Tier: models.TierCheap}, nil
}

type fakeArbitrator struct {
	outcome *models.ReserveOutcome
	err     error
	calls   int
}

func (f *fakeArbitrator) CheckAndReserve(ctx context.Context, business *models.Business, callID string, draft models.ReservationDraft) (*models.ReserveOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type fakeCallRepo struct {
	mu         sync.Mutex
	saveErr    error
	saved      []*models.CallRecord
	statsCalls []models.BusinessStatsDelta
}

func (f *fakeCallRepo) SaveCall(ctx context.Context, record *models.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeCallRepo) UpsertBusinessStats(ctx context.Context, businessID string, delta models.BusinessStatsDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls = append(f.statsCalls, delta)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakePublisher) Publish(event models.Event) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakePublisher) named(name string) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type fakeReaper struct {
	scheduled []string
	after     time.Duration
}

func (f *fakeReaper) ScheduleReap(callID string, after time.Duration) error {
	f.scheduled = append(f.scheduled, callID)
	f.after = after
	return nil
}

type fakeRetrier struct {
	records []*models.CallRecord
}

func (f *fakeRetrier) EnqueuePersistRetry(record *models.CallRecord) error {
	f.records = append(f.records, record)
	return nil
}

// --- fixture ---

type fixture struct {
	orch    *DefaultOrchestrator
	store   *MemorySessionStore
	pipe    *fakePipeline
	arb     *fakeArbitrator
	calls   *fakeCallRepo
	bus     *fakePublisher
	reaper  *fakeReaper
	retrier *fakeRetrier
}

func newFixture() *fixture {
	f := &fixture{
		store:   NewMemorySessionStore(),
		pipe:    &fakePipeline{},
		arb:     &fakeArbitrator{},
		calls:   &fakeCallRepo{},
		bus:     &fakePublisher{},
		reaper:  &fakeReaper{},
		retrier: &fakeRetrier{},
	}
	f.orch = &DefaultOrchestrator{
		Sessions: f.store,
		Businesses: &fakeBusinessRepo{business: &models.Business{
			ID:    "biz-1",
			Name:  "Marco's Trattoria",
			Phone: "+15550100",
			Hours: map[string]models.DayHours{},
		}},
		Pipeline:   f.pipe,
		Arbitrator: f.arb,
		Calls:      f.calls,
		Bus:        f.bus,
		Reaper:     f.reaper,
		Retrier:    f.retrier,
		Rates:      models.CostRates{CheapPer1KTokens: 0.0005, CapablePer1KTokens: 0.005},
		Settings: Settings{
			MaxSilenceTimeouts:  2,
			MaxPipelineFailures: 2,
			MaxTurns:            20,
			SessionTTL:          time.Minute,
			SessionCap:          time.Minute,
			LockLease:           2 * time.Second,
		},
	}
	return f
}

func (f *fixture) startCall(t *testing.T) {
	t.Helper()
	directives, err := f.orch.HandleIncomingCall(context.Background(), models.IncomingCall{
		CallID: "CA-1", From: "+15550199", To: "+15550100",
	})
	require.NoError(t, err)
	require.Len(t, directives, 2)
}

func (f *fixture) session(t *testing.T) *models.CallSession {
	t.Helper()
	s, err := f.store.Get(context.Background(), "CA-1")
	require.NoError(t, err)
	return s
}

func directiveTypes(directives []models.Directive) []models.DirectiveType {
	types := make([]models.DirectiveType, len(directives))
	for i, d := range directives {
		types[i] = d.Type
	}
	return types
}

// --- tests ---

func TestIncomingCallGreets(t *testing.T) {
	f := newFixture()

	directives, err := f.orch.HandleIncomingCall(context.Background(), models.IncomingCall{
		CallID: "CA-1", From: "+15550199", To: "+15550100",
	})
	require.NoError(t, err)

	require.Len(t, directives, 2)
	assert.Equal(t, models.DirectiveSpeak, directives[0].Type)
	assert.Contains(t, directives[0].Text, "Marco's Trattoria")
	assert.Equal(t, models.DirectiveGather, directives[1].Type)

	s := f.session(t)
	assert.Equal(t, models.CallGreetingSent, s.Status)
	assert.Equal(t, int64(1), s.Generation)
	assert.Zero(t, s.TurnCount, "the greeting is not a caller turn")
	assert.Positive(t, s.Metrics.CharactersSynthesized)

	assert.Equal(t, []string{"CA-1"}, f.reaper.scheduled)
	assert.Equal(t, f.orch.Settings.SessionCap, f.reaper.after)
	require.Len(t, f.bus.named(models.EventCallStarted), 1)
}

func TestIncomingCallUnknownNumber(t *testing.T) {
	f := newFixture()

	directives, err := f.orch.HandleIncomingCall(context.Background(), models.IncomingCall{
		CallID: "CA-1", From: "+15550199", To: "+19990000",
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	_, err = f.store.Get(context.Background(), "CA-1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "no session is created for unknown lines")
}

func TestIncomingCallDuplicateReplaysGreeting(t *testing.T) {
	f := newFixture()
	f.startCall(t)
	before := f.session(t)

	directives, err := f.orch.HandleIncomingCall(context.Background(), models.IncomingCall{
		CallID: "CA-1", From: "+15550199", To: "+15550100",
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveGather}, directiveTypes(directives))
	after := f.session(t)
	assert.Equal(t, before.Generation, after.Generation, "duplicate delivery must not advance state")
	assert.Len(t, f.bus.named(models.EventCallStarted), 1, "call:started is published once")
}

func TestSpeechResultTurn(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{{
		Reply:        "We close at ten tonight.",
		Intent:       pipeline.IntentHours,
		Tier:         models.TierCheap,
		TokensInput:  100,
		TokensOutput: 20,
	}}
	f.startCall(t)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "what time do you close", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveGather}, directiveTypes(directives))
	assert.Equal(t, "We close at ten tonight.", directives[0].Text)

	s := f.session(t)
	assert.Equal(t, models.CallAwaitingSpeech, s.Status)
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, pipeline.IntentHours, s.CurrentIntent)
	assert.Equal(t, 100, s.Metrics.TokensInput)
	assert.Equal(t, 20, s.Metrics.TokensOutput)
	assert.Positive(t, s.CostLedger.Total)

	turnEvents := f.bus.named(models.EventCallTurn)
	require.Len(t, turnEvents, 1)
	assert.Equal(t, 1, turnEvents[0].Payload["turnCount"])
}

func TestTurnCountAndGenerationMonotonic(t *testing.T) {
	f := newFixture()
	f.startCall(t)

	lastTurns := 0
	lastGen := f.session(t).Generation
	for i := 0; i < 3; i++ {
		_, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
			CallID: "CA-1", Text: "tell me more", Confidence: 0.9,
		})
		require.NoError(t, err)

		s := f.session(t)
		assert.Greater(t, s.TurnCount, lastTurns)
		assert.Greater(t, s.Generation, lastGen)
		lastTurns = s.TurnCount
		lastGen = s.Generation
	}
	assert.Equal(t, 3, lastTurns)
}

func TestSpeechResultStaleGenerationDiscarded(t *testing.T) {
	f := newFixture()
	f.startCall(t)

	// While the pipeline runs, a carrier callback ends the call out from
	// under this turn.
	f.pipe.onRespond = func(in pipeline.Input) {
		s, err := f.store.Get(context.Background(), "CA-1")
		if err != nil {
			return
		}
		s.Status = models.CallEnded
		s.Generation++
		_ = f.store.Set(context.Background(), s, time.Minute)
	}

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "a table for four", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveHangup}, directiveTypes(directives))
	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status, "the stale result must not overwrite the newer state")
	assert.Empty(t, f.bus.named(models.EventCallTurn))
}

func TestEndedSessionAcceptsNoTransitions(t *testing.T) {
	f := newFixture()
	f.startCall(t)
	require.NoError(t, f.orch.ForceEnd(context.Background(), "CA-1", ReasonWallClock))

	before := f.session(t)
	require.Equal(t, models.CallEnded, before.Status)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "hello?", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveHangup}, directiveTypes(directives))

	directives, err = f.orch.HandleSilenceTimeout(context.Background(), models.SilenceTimeout{CallID: "CA-1"})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveHangup}, directiveTypes(directives))

	after := f.session(t)
	assert.Equal(t, before.Generation, after.Generation)
	assert.Equal(t, before.TurnCount, after.TurnCount)
	assert.Len(t, f.bus.named(models.EventCallEnded), 1, "call:ended fires exactly once")
}

func TestSilenceTimeoutRepromptsThenEnds(t *testing.T) {
	f := newFixture()
	f.startCall(t)

	// First timeout: reprompt and keep listening.
	directives, err := f.orch.HandleSilenceTimeout(context.Background(), models.SilenceTimeout{CallID: "CA-1"})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveGather}, directiveTypes(directives))
	s := f.session(t)
	assert.Equal(t, 1, s.TimeoutCount)
	assert.Equal(t, models.CallAwaitingSpeech, s.Status)

	// Second timeout: give up politely.
	directives, err = f.orch.HandleSilenceTimeout(context.Background(), models.SilenceTimeout{CallID: "CA-1"})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))

	s = f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonTimeout, s.EndReason)

	ended := f.bus.named(models.EventCallEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, ReasonTimeout, ended[0].Payload["reason"])

	require.Len(t, f.calls.saved, 1)
	assert.Equal(t, ReasonTimeout, f.calls.saved[0].EndReason)
}

func TestSilenceTimeoutCountIsCumulative(t *testing.T) {
	f := newFixture()
	f.startCall(t)

	_, err := f.orch.HandleSilenceTimeout(context.Background(), models.SilenceTimeout{CallID: "CA-1"})
	require.NoError(t, err)

	// A successful turn in between does not reset the silence budget.
	_, err = f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "still here", Confidence: 0.9,
	})
	require.NoError(t, err)

	directives, err := f.orch.HandleSilenceTimeout(context.Background(), models.SilenceTimeout{CallID: "CA-1"})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	assert.Equal(t, models.CallEnded, f.session(t).Status)
}

func TestFarewellEndsCall(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{{
		Reply:  "Thanks for calling, goodbye!",
		Intent: pipeline.IntentFarewell,
		Tier:   models.TierCheap,
	}}
	f.startCall(t)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "that's all, bye", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonFarewell, s.EndReason)
}

func TestTurnCapEndsCall(t *testing.T) {
	f := newFixture()
	f.orch.Settings.MaxTurns = 3
	f.startCall(t)

	var directives []models.Directive
	var err error
	for i := 0; i < 3; i++ {
		directives, err = f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
			CallID: "CA-1", Text: "one more question", Confidence: 0.9,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	assert.Contains(t, directives[0].Text, "Goodbye")

	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonTurnCap, s.EndReason)
	assert.Equal(t, 3, s.TurnCount)
}

func TestPipelineFailureRecoversOnce(t *testing.T) {
	f := newFixture()
	f.pipe.errs = []error{errors.New("responder down"), nil}
	f.pipe.outputs = []*pipeline.Output{nil, {Reply: "Back with you.", Intent: pipeline.IntentGeneral, Tier: models.TierCheap}}
	f.startCall(t)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "hello", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveGather}, directiveTypes(directives))

	s := f.session(t)
	assert.Equal(t, 1, s.FailureCount)
	assert.Equal(t, models.CallAwaitingSpeech, s.Status)

	// A successful turn clears the consecutive-failure budget.
	_, err = f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "hello again", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Zero(t, f.session(t).FailureCount)
}

func TestPipelineFailureEscalates(t *testing.T) {
	f := newFixture()
	f.pipe.errs = []error{errors.New("responder down"), errors.New("still down")}
	f.startCall(t)

	_, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "hello", Confidence: 0.9,
	})
	require.NoError(t, err)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "hello?", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonError, s.EndReason)
}

func reservationOutput(reply string) *pipeline.Output {
	return &pipeline.Output{
		Reply:  reply,
		Intent: pipeline.IntentReservation,
		Tier:   models.TierCheap,
		Fields: models.ReservationDraft{
			Date:         "2026-03-06",
			Time:         "19:00",
			PartySize:    4,
			CustomerName: "Anna",
		},
	}
}

func TestBookingSuccessEndsCall(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{reservationOutput("Let me book that.")}
	f.arb.outcome = &models.ReserveOutcome{
		Booked: true,
		Reservation: &models.Reservation{
			ID: "res-1", Date: "2026-03-06", TimeBucket: "19:00", PartySize: 4,
		},
		Occupancy: 4,
		Remaining: 46,
	}
	f.startCall(t)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "a table for four friday at seven, name is anna", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	assert.Contains(t, directives[0].Text, "Anna")

	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonCompleted, s.EndReason)
	assert.True(t, s.BookingOK)
	assert.Equal(t, "res-1", s.ReservationID)

	require.Len(t, f.bus.named(models.EventReservationCreated), 1)
	require.Len(t, f.calls.saved, 1)
	assert.Equal(t, "res-1", f.calls.saved[0].ReservationID)
	require.Len(t, f.calls.statsCalls, 1)
	assert.Equal(t, 1, f.calls.statsCalls[0].Reservations)
}

func TestBookingNotAvailableContinues(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{reservationOutput("Let me check.")}
	f.arb.outcome = &models.ReserveOutcome{Booked: false, Occupancy: 48, Remaining: 2}
	f.startCall(t)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "a table for four friday at seven, name is anna", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveGather}, directiveTypes(directives))
	assert.Contains(t, directives[0].Text, "another time")

	s := f.session(t)
	assert.Equal(t, models.CallAwaitingSpeech, s.Status)
	assert.False(t, s.BookingTried, "a lost slot leaves the booking open for another attempt")
	assert.Empty(t, s.Draft.Time, "the contested time is cleared")
	assert.Equal(t, "2026-03-06", s.Draft.Date, "other captured fields survive")
}

func TestBookingArbitrationErrorEndsCall(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{reservationOutput("Let me book that.")}
	f.arb.err = errors.New("database unavailable")
	f.startCall(t)

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "a table for four friday at seven, name is anna", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonBookingFail, s.EndReason)
	assert.True(t, s.BookingTried)
	assert.False(t, s.BookingOK)
	assert.Empty(t, f.bus.named(models.EventReservationCreated))
}

func TestBookingAttemptedOnce(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{reservationOutput("Booking."), reservationOutput("Booking again.")}
	f.arb.err = errors.New("database unavailable")
	f.startCall(t)

	_, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "a table for four", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.arb.calls)

	// The call ended; a late duplicate must not re-trigger arbitration.
	_, err = f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "a table for four", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.arb.calls)
}

func TestStatusCallbackTerminalEndsCall(t *testing.T) {
	f := newFixture()
	f.startCall(t)

	// Non-terminal statuses are ignored.
	directives, err := f.orch.HandleStatusCallback(context.Background(), models.StatusCallback{
		CallID: "CA-1", Status: "ringing",
	})
	require.NoError(t, err)
	assert.Nil(t, directives)
	assert.Equal(t, models.CallGreetingSent, f.session(t).Status)

	_, err = f.orch.HandleStatusCallback(context.Background(), models.StatusCallback{
		CallID: "CA-1", Status: "completed", DurationSeconds: 95,
	})
	require.NoError(t, err)

	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Equal(t, ReasonCarrier+":completed", s.EndReason)
	assert.Equal(t, 95, s.Metrics.DurationSeconds)

	// Duplicates after the tombstone are no-ops.
	_, err = f.orch.HandleStatusCallback(context.Background(), models.StatusCallback{
		CallID: "CA-1", Status: "completed", DurationSeconds: 95,
	})
	require.NoError(t, err)
	assert.Len(t, f.bus.named(models.EventCallEnded), 1)
}

func TestFinalizePersistFailureGoesToRetryQueue(t *testing.T) {
	f := newFixture()
	f.calls.saveErr = errors.New("mongo down")
	f.startCall(t)

	require.NoError(t, f.orch.ForceEnd(context.Background(), "CA-1", ReasonWallClock))

	require.Len(t, f.retrier.records, 1)
	assert.True(t, f.retrier.records[0].Abandoned)
	assert.Empty(t, f.calls.statsCalls, "stats are not updated for an unsaved record")

	// The call still ends cleanly for the caller.
	s := f.session(t)
	assert.Equal(t, models.CallEnded, s.Status)
	assert.Len(t, f.bus.named(models.EventCallEnded), 1)
}

func TestFinalizeRecordContents(t *testing.T) {
	f := newFixture()
	f.pipe.outputs = []*pipeline.Output{{
		Reply: "We are at 12 Via Roma.", Intent: pipeline.IntentLocation, Tier: models.TierCheap,
		TokensInput: 80, TokensOutput: 15,
	}}
	f.startCall(t)

	_, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-1", Text: "where are you located", Confidence: 0.9,
	})
	require.NoError(t, err)
	require.NoError(t, f.orch.ForceEnd(context.Background(), "CA-1", ReasonWallClock))

	require.Len(t, f.calls.saved, 1)
	record := f.calls.saved[0]
	assert.Equal(t, "CA-1", record.ID)
	assert.Equal(t, "biz-1", record.BusinessID)
	assert.Equal(t, 1, record.TurnCount)
	assert.Equal(t, pipeline.IntentLocation, record.Intent)
	assert.NotEmpty(t, record.Summary)
	assert.Contains(t, record.Summary, "where are you located")
	assert.NotEmpty(t, record.Suggestions, "a location question with no FAQs suggests a profile fix")
	assert.NotZero(t, record.Metrics.TokensInput)

	require.Len(t, f.calls.statsCalls, 1)
	assert.Equal(t, 1, f.calls.statsCalls[0].Calls)
	assert.Zero(t, f.calls.statsCalls[0].Reservations)
}

func TestSpeechResultUnknownSession(t *testing.T) {
	f := newFixture()

	directives, err := f.orch.HandleSpeechResult(context.Background(), models.SpeechResult{
		CallID: "CA-ghost", Text: "hello", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.DirectiveType{models.DirectiveSpeak, models.DirectiveHangup}, directiveTypes(directives))
}
