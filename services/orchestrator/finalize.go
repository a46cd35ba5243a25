// File: services/orchestrator/finalize.go
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voicedesk/models"
	"voicedesk/services/cost"
	"voicedesk/services/pipeline"
	"voicedesk/utils"

	"go.uber.org/zap"
)

// endedRetention keeps the ENDED tombstone around briefly so late duplicate
// events are recognized and discarded instead of resurrecting the call.
const endedRetention = 2 * time.Minute

// finalize runs the terminal sequence: summary, suggestions, durable record
// (with one retry, then the abandoned queue), aggregate stats, the call:ended
// event, and finally the tombstone. Finalization failures never propagate past
// this call.
func (o *DefaultOrchestrator) finalize(ctx context.Context, s *models.CallSession, business *models.Business, reason string) {
	s.Status = models.CallEnding
	s.Generation++
	s.EndReason = reason

	endTime := time.Now().UTC()
	if s.Metrics.DurationSeconds == 0 {
		s.Metrics.DurationSeconds = int(endTime.Sub(s.StartTime).Seconds())
	}
	s.CostLedger = cost.Recompute(s.Metrics, o.Rates)

	record := &models.CallRecord{
		ID:              s.ID,
		BusinessID:      s.BusinessID,
		From:            s.From,
		To:              s.To,
		StartTime:       s.StartTime,
		EndTime:         endTime,
		DurationSeconds: s.Metrics.DurationSeconds,
		Transcript:      s.Conversation,
		TurnCount:       s.TurnCount,
		Intent:          s.CurrentIntent,
		Summary:         buildSummary(s),
		Suggestions:     buildSuggestions(s, business),
		ReservationID:   s.ReservationID,
		EndReason:       reason,
		CostLedger:      s.CostLedger,
		Metrics:         s.Metrics,
	}

	if err := o.persistRecord(ctx, record); err != nil {
		utils.GetLogger().Error("call record persistence abandoned",
			zap.String("callId", s.ID), zap.Error(err))
	} else if o.Calls != nil {
		delta := models.BusinessStatsDelta{
			Calls:           1,
			Turns:           s.TurnCount,
			DurationSeconds: s.Metrics.DurationSeconds,
			Cost:            s.CostLedger.Total,
		}
		if s.BookingOK {
			delta.Reservations = 1
		}
		if err := o.Calls.UpsertBusinessStats(ctx, s.BusinessID, delta); err != nil {
			utils.GetLogger().Error("failed to update business stats",
				zap.String("businessId", s.BusinessID), zap.Error(err))
		}
	}

	o.publish(models.EventCallEnded, s, map[string]any{
		"reason":          reason,
		"durationSeconds": s.Metrics.DurationSeconds,
		"turnCount":       s.TurnCount,
		"cost":            s.CostLedger.Total,
		"reservationId":   s.ReservationID,
	})

	s.Status = models.CallEnded
	s.Generation++
	if err := o.Sessions.Set(ctx, s, endedRetention); err != nil {
		utils.GetLogger().Warn("failed to write session tombstone",
			zap.String("callId", s.ID), zap.Error(err))
	}
}

// persistRecord saves the record, retrying once; a second failure marks the
// call abandoned and hands the record to the retry queue.
func (o *DefaultOrchestrator) persistRecord(ctx context.Context, record *models.CallRecord) error {
	if o.Calls == nil {
		return nil
	}
	err := o.Calls.SaveCall(ctx, record)
	if err == nil {
		return nil
	}
	utils.GetLogger().Warn("call record save failed, retrying once",
		zap.String("callId", record.ID), zap.Error(err))
	if err = o.Calls.SaveCall(ctx, record); err == nil {
		return nil
	}

	record.Abandoned = true
	if o.Retrier != nil {
		if qErr := o.Retrier.EnqueuePersistRetry(record); qErr != nil {
			return NewPersistenceError("save failed and retry queue unavailable", qErr)
		}
	}
	return NewPersistenceError("save failed after retry", err)
}

// buildSummary condenses the call into one dashboard line.
func buildSummary(s *models.CallSession) string {
	var sb strings.Builder
	intent := s.CurrentIntent
	if intent == "" {
		intent = pipeline.IntentGeneral
	}
	sb.WriteString(fmt.Sprintf("%d caller turns, primary intent %q.", s.TurnCount, intent))

	if first := firstCallerUtterance(s); first != "" {
		sb.WriteString(fmt.Sprintf(" Opened with: %q.", first))
	}

	switch {
	case s.BookingOK:
		sb.WriteString(fmt.Sprintf(" Reservation booked for %d on %s at %s under %s.",
			s.Draft.PartySize, s.Draft.Date, s.Draft.Time, s.Draft.CustomerName))
	case s.BookingTried:
		sb.WriteString(" Reservation was attempted but not completed.")
	}
	return sb.String()
}

func firstCallerUtterance(s *models.CallSession) string {
	for _, turn := range s.Conversation {
		if turn.Role == models.RoleCaller {
			if len(turn.Text) > 120 {
				return turn.Text[:120] + "..."
			}
			return turn.Text
		}
	}
	return ""
}

// buildSuggestions lists profile gaps that made this call harder than it
// needed to be.
func buildSuggestions(s *models.CallSession, business *models.Business) []string {
	var suggestions []string

	sawIntent := func(intent string) bool {
		for _, turn := range s.Conversation {
			if turn.Intent == intent {
				return true
			}
		}
		return s.CurrentIntent == intent
	}

	if business != nil {
		if len(business.Menu) == 0 && sawIntent(pipeline.IntentMenu) {
			suggestions = append(suggestions, "Caller asked about the menu; add menu items to the business profile.")
		}
		if len(business.Hours) == 0 && sawIntent(pipeline.IntentHours) {
			suggestions = append(suggestions, "Caller asked about opening hours; add weekly hours to the business profile.")
		}
		if len(business.FAQs) == 0 && sawIntent(pipeline.IntentLocation) {
			suggestions = append(suggestions, "Caller asked about location or parking; add an FAQ entry for it.")
		}
	}
	if s.BookingTried && !s.BookingOK {
		suggestions = append(suggestions, "A reservation attempt did not complete; consider following up with the caller.")
	}
	if !s.Draft.Complete() && s.Draft != (models.ReservationDraft{}) && !s.BookingTried {
		suggestions = append(suggestions, "Caller started a reservation but details were incomplete when the call ended.")
	}
	return suggestions
}
