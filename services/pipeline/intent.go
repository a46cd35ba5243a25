// File: services/pipeline/intent.go
package pipeline

import (
	"strings"

	"voicedesk/utils"
)

// Intent categories.
const (
	IntentReservation  = "reservation"
	IntentCancellation = "cancellation"
	IntentComplaint    = "complaint"
	IntentHours        = "hours"
	IntentMenu         = "menu"
	IntentLocation     = "location"
	IntentFarewell     = "farewell"
	IntentGeneral      = "general"
	IntentClarify      = "clarification"
)

// intentRule pairs a category with its trigger phrases. Rules are evaluated in
// declaration order over the normalized utterance; first match wins.
type intentRule struct {
	category string
	phrases  []string
}

var intentRules = []intentRule{
	{IntentCancellation, []string{"cancel", "call off", "can t make it", "cannot make it", "reschedule"}},
	{IntentComplaint, []string{"complaint", "complain", "terrible", "awful", "manager", "refund", "disappointed"}},
	{IntentReservation, []string{"reservation", "reserve", "book", "table for", "party of", "table tonight", "get a table"}},
	{IntentHours, []string{"hours", "open", "close", "closing", "opening", "what time"}},
	{IntentMenu, []string{"menu", "serve", "dish", "vegetarian", "vegan", "gluten", "special", "price of"}},
	{IntentLocation, []string{"where", "address", "located", "parking", "directions"}},
	{IntentFarewell, []string{"goodbye", "bye", "that s all", "thats all", "thank you that", "nothing else", "hang up"}},
}

// ClassifyIntent returns the first matching category, or "general".
func ClassifyIntent(utterance string) string {
	normalized := " " + strings.ReplaceAll(utils.NormalizeText(utterance), "'", " ") + " "
	for _, rule := range intentRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(normalized, phrase) {
				return rule.category
			}
		}
	}
	return IntentGeneral
}

// Informational intents are answerable from the business profile and safe to
// serve from the FAQ cache.
func Informational(intent string) bool {
	switch intent {
	case IntentHours, IntentMenu, IntentLocation:
		return true
	}
	return false
}

// Complex intents signal conversations worth the capable tier.
func Complex(intent string) bool {
	switch intent {
	case IntentReservation, IntentComplaint, IntentCancellation:
		return true
	}
	return false
}
