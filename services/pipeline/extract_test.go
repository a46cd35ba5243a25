// File: services/pipeline/extract_test.go
package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voicedesk/models"
)

func TestExtractDraft(t *testing.T) {
	// A Wednesday, so relative dates are predictable.
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		utterance string
		want      models.ReservationDraft
	}{
		{
			name:      "party size and evening time",
			utterance: "a table for four at 7pm tomorrow",
			want: models.ReservationDraft{
				PartySize: 4,
				Time:      "19:00",
				Date:      "2026-03-05",
			},
		},
		{
			name:      "numeric party and clock time",
			utterance: "party of 6 tonight at 7:30",
			want: models.ReservationDraft{
				PartySize: 6,
				Time:      "19:30",
				Date:      "2026-03-04",
			},
		},
		{
			name:      "bare dinner hour defaults to evening",
			utterance: "can we come at 7",
			want: models.ReservationDraft{
				Time: "19:00",
			},
		},
		{
			name:      "morning hour stays morning",
			utterance: "breakfast at 9am",
			want: models.ReservationDraft{
				Time: "09:00",
			},
		},
		{
			name:      "next weekday resolves forward",
			utterance: "table for two on friday",
			want: models.ReservationDraft{
				PartySize: 2,
				Date:      "2026-03-06",
			},
		},
		{
			name:      "same weekday means next week",
			utterance: "book us for wednesday",
			want: models.ReservationDraft{
				Date: "2026-03-11",
			},
		},
		{
			name:      "iso date passes through",
			utterance: "reservation for 2026-04-12 please",
			want: models.ReservationDraft{
				Date: "2026-04-12",
			},
		},
		{
			name:      "customer name is title cased",
			utterance: "my name is anna kowalski",
			want: models.ReservationDraft{
				CustomerName: "Anna Kowalski",
			},
		},
		{
			name:      "phone number keeps digits only",
			utterance: "you can reach me at +1 (555) 010-2233",
			want: models.ReservationDraft{
				CustomerPhone: "15550102233",
			},
		},
		{
			name:      "nothing extractable",
			utterance: "hmm let me think about it",
			want:      models.ReservationDraft{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDraft(tt.utterance, now))
		})
	}
}

func TestTimeBucket(t *testing.T) {
	assert.Equal(t, "19:00", models.TimeBucket("19:00"))
	assert.Equal(t, "19:00", models.TimeBucket("19:15"))
	assert.Equal(t, "19:30", models.TimeBucket("19:30"))
	assert.Equal(t, "19:30", models.TimeBucket("19:45"))
	assert.Equal(t, "garbage", models.TimeBucket("garbage"))
}

func TestSelectTier(t *testing.T) {
	longUtterance := "we are a group of eight and two of us have severe allergies so I want to go over the menu in detail"

	tests := []struct {
		name      string
		intent    string
		turnCount int
		utterance string
		want      models.ModelTier
	}{
		{"simple question stays cheap", IntentHours, 1, "are you open", models.TierCheap},
		{"early reservation stays cheap", IntentReservation, 1, "a table for two", models.TierCheap},
		{"deep reservation escalates", IntentReservation, 5, "make it four people", models.TierCapable},
		{"long complex utterance escalates", IntentComplaint, 1, longUtterance, models.TierCapable},
		{"long simple utterance stays cheap", IntentGeneral, 1, longUtterance, models.TierCheap},
		{"deep informational stays cheap", IntentMenu, 8, "and dessert?", models.TierCheap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTier(tt.intent, tt.turnCount, tt.utterance))
		})
	}
}
