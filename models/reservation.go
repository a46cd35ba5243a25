package models

import (
	"strconv"
	"strings"
	"time"
)

// Reservation statuses.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// ReservationDraft accumulates booking fields extracted turn by turn.
// Fields merge last-writer-wins; nil means not yet captured.
type ReservationDraft struct {
	Date            string `json:"date,omitempty"`      // "2006-01-02"
	Time            string `json:"time,omitempty"`      // "15:04"
	PartySize       int    `json:"partySize,omitempty"`
	CustomerName    string `json:"customerName,omitempty"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

// Complete reports whether the draft carries everything needed to book.
func (d ReservationDraft) Complete() bool {
	return d.Date != "" && d.Time != "" && d.PartySize > 0 && d.CustomerName != ""
}

// Merge overlays non-zero fields of other onto the draft.
func (d *ReservationDraft) Merge(other ReservationDraft) {
	if other.Date != "" {
		d.Date = other.Date
	}
	if other.Time != "" {
		d.Time = other.Time
	}
	if other.PartySize > 0 {
		d.PartySize = other.PartySize
	}
	if other.CustomerName != "" {
		d.CustomerName = other.CustomerName
	}
	if other.CustomerPhone != "" {
		d.CustomerPhone = other.CustomerPhone
	}
	if other.SpecialRequests != "" {
		d.SpecialRequests = other.SpecialRequests
	}
}

// Reservation is a committed booking.
type Reservation struct {
	ID              string    `json:"id" bson:"id"`
	BusinessID      string    `json:"businessId" bson:"businessId"`
	CallID          string    `json:"callId" bson:"callId"`
	Date            string    `json:"date" bson:"date"`
	TimeBucket      string    `json:"timeBucket" bson:"timeBucket"`
	PartySize       int       `json:"partySize" bson:"partySize"`
	CustomerName    string    `json:"customerName" bson:"customerName"`
	CustomerPhone   string    `json:"customerPhone,omitempty" bson:"customerPhone,omitempty"`
	SpecialRequests string    `json:"specialRequests,omitempty" bson:"specialRequests,omitempty"`
	Status          string    `json:"status" bson:"status"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}

// ReserveOutcome is the arbitration result for one booking attempt.
type ReserveOutcome struct {
	Booked      bool         `json:"booked"`
	Reservation *Reservation `json:"reservation,omitempty"`
	// On NOT_AVAILABLE, current occupancy and the capacity still free.
	Occupancy int `json:"occupancy"`
	Remaining int `json:"remaining"`
}

// TimeBucket floors a "15:04" time to its half-hour slot boundary.
func TimeBucket(hhmm string) string {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return hhmm
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return hhmm
	}
	if min >= 30 {
		return parts[0] + ":30"
	}
	return parts[0] + ":00"
}
