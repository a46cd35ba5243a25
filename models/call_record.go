package models

import "time"

// CallRecord is the durable record persisted when a call finalizes.
type CallRecord struct {
	ID              string       `json:"id" bson:"id"`
	BusinessID      string       `json:"businessId" bson:"businessId"`
	From            string       `json:"from" bson:"from"`
	To              string       `json:"to" bson:"to"`
	StartTime       time.Time    `json:"startTime" bson:"startTime"`
	EndTime         time.Time    `json:"endTime" bson:"endTime"`
	DurationSeconds int          `json:"durationSeconds" bson:"durationSeconds"`
	Transcript      []Turn       `json:"transcript" bson:"transcript"`
	TurnCount       int          `json:"turnCount" bson:"turnCount"`
	Intent          string       `json:"intent,omitempty" bson:"intent,omitempty"`
	Summary         string       `json:"summary,omitempty" bson:"summary,omitempty"`
	Suggestions     []string     `json:"suggestions,omitempty" bson:"suggestions,omitempty"`
	ReservationID   string       `json:"reservationId,omitempty" bson:"reservationId,omitempty"`
	EndReason       string       `json:"endReason" bson:"endReason"`
	CostLedger      CostLedger   `json:"costLedger" bson:"costLedger"`
	Metrics         UsageMetrics `json:"metrics" bson:"metrics"`
	Abandoned       bool         `json:"abandoned,omitempty" bson:"abandoned,omitempty"`
}

// BusinessStatsDelta is an additive update to a business's aggregate counters.
type BusinessStatsDelta struct {
	Calls           int     `json:"calls" bson:"calls"`
	Turns           int     `json:"turns" bson:"turns"`
	DurationSeconds int     `json:"durationSeconds" bson:"durationSeconds"`
	Reservations    int     `json:"reservations" bson:"reservations"`
	Cost            float64 `json:"cost" bson:"cost"`
}
