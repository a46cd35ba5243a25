package models

import (
	"fmt"
	"time"
)

// DayHours is the opening window for one weekday, "15:04" formatted.
type DayHours struct {
	Open   string `json:"open" bson:"open"`
	Close  string `json:"close" bson:"close"`
	Closed bool   `json:"closed" bson:"closed"`
}

// MenuItem is one offering on the business menu.
type MenuItem struct {
	Name        string  `json:"name" bson:"name"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64 `json:"price" bson:"price"`
}

// FAQ is a curated question/answer pair.
type FAQ struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}

// VoiceParams selects the synthesized voice. Any field change must change the
// audio cache fingerprint.
type VoiceParams struct {
	Voice        string  `json:"voice" bson:"voice"`
	LanguageCode string  `json:"languageCode" bson:"languageCode"`
	SpeakingRate float64 `json:"speakingRate" bson:"speakingRate"`
	Pitch        float64 `json:"pitch" bson:"pitch"`
}

// CacheKey renders the params into a stable fingerprint component.
func (v VoiceParams) CacheKey() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f", v.Voice, v.LanguageCode, v.SpeakingRate, v.Pitch)
}

// Business is the profile the agent answers on behalf of.
type Business struct {
	ID           string              `json:"id" bson:"id"`
	Name         string              `json:"name" bson:"name"`
	Phone        string              `json:"phone" bson:"phone"`
	Greeting     string              `json:"greeting,omitempty" bson:"greeting,omitempty"`
	Personality  string              `json:"personality,omitempty" bson:"personality,omitempty"`
	Timezone     string              `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Hours        map[string]DayHours `json:"hours" bson:"hours"` // keyed by lowercase weekday
	Menu         []MenuItem          `json:"menu,omitempty" bson:"menu,omitempty"`
	FAQs         []FAQ               `json:"faqs,omitempty" bson:"faqs,omitempty"`
	Voice        VoiceParams         `json:"voice" bson:"voice"`
	// SlotCapacity is the maximum total party size per reservation slot.
	// Zero means the configured default applies.
	SlotCapacity int `json:"slotCapacity" bson:"slotCapacity"`
}

// OpenAt reports whether the business is open at the given instant.
func (b *Business) OpenAt(t time.Time) bool {
	if b.Timezone != "" {
		if loc, err := time.LoadLocation(b.Timezone); err == nil {
			t = t.In(loc)
		}
	}
	day, ok := b.Hours[weekdayKey(t.Weekday())]
	if !ok || day.Closed {
		return false
	}
	now := t.Format("15:04")
	return now >= day.Open && now < day.Close
}

func weekdayKey(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
