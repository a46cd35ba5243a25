// File: services/pipeline/prompt.go
package pipeline

import (
	"fmt"
	"strings"

	"voicedesk/models"
)

// BuildPrompt composes the full responder prompt: business profile, current
// open/closed status, the capped conversation history and the new utterance.
func BuildPrompt(business *models.Business, openNow bool, history []models.Turn, draft models.ReservationDraft, utterance string) string {
	var sb strings.Builder

	sb.WriteString("You are the phone receptionist for " + business.Name + ". ")
	if business.Personality != "" {
		sb.WriteString("Personality: " + business.Personality + ". ")
	}
	sb.WriteString("Answer in one or two short spoken sentences, no markdown, no lists.\n")

	if openNow {
		sb.WriteString("The business is currently OPEN.\n")
	} else {
		sb.WriteString("The business is currently CLOSED.\n")
	}

	if len(business.Hours) > 0 {
		sb.WriteString("Opening hours:\n")
		for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
			h, ok := business.Hours[day]
			if !ok {
				continue
			}
			if h.Closed {
				sb.WriteString(fmt.Sprintf("  %s: closed\n", day))
			} else {
				sb.WriteString(fmt.Sprintf("  %s: %s-%s\n", day, h.Open, h.Close))
			}
		}
	}

	if len(business.Menu) > 0 {
		sb.WriteString("Menu highlights:\n")
		for _, item := range business.Menu {
			sb.WriteString(fmt.Sprintf("  %s ($%.2f)", item.Name, item.Price))
			if item.Description != "" {
				sb.WriteString(" - " + item.Description)
			}
			sb.WriteString("\n")
		}
	}

	if len(business.FAQs) > 0 {
		sb.WriteString("Known answers:\n")
		for _, faq := range business.FAQs {
			sb.WriteString("  Q: " + faq.Question + "\n  A: " + faq.Answer + "\n")
		}
	}

	if draft != (models.ReservationDraft{}) {
		sb.WriteString(fmt.Sprintf("Reservation details captured so far: date=%q time=%q partySize=%d name=%q phone=%q.\n",
			draft.Date, draft.Time, draft.PartySize, draft.CustomerName, draft.CustomerPhone))
		sb.WriteString("Ask only for the details still missing.\n")
	}

	sb.WriteString("If the caller states reservation details, append them as a fenced block: ")
	sb.WriteString("```json {\"reservation\":{\"date\":\"YYYY-MM-DD\",\"time\":\"HH:MM\",\"partySize\":0,\"customerName\":\"\",\"customerPhone\":\"\"}}```\n")

	if len(history) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			sb.WriteString(turn.Role + ": " + turn.Text + "\n")
		}
	}

	sb.WriteString("\ncaller: " + utterance + "\nagent:")
	return sb.String()
}
