// File: services/pipeline/extract.go
package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"voicedesk/models"
	"voicedesk/utils"
)

var (
	partyRe = regexp.MustCompile(`(?:party of|table for|for|we are|there are)\s+(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b`)
	clockRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	hourRe  = regexp.MustCompile(`\bat\s+(\d{1,2})\s*(am|pm|o clock)?\b`)
	isoRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	nameRe  = regexp.MustCompile(`(?:my name is|name is|under the name|under|this is)\s+([a-z]+(?:\s[a-z]+)?)\b`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-\(\)]{7,}\d`)

	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
		"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	}

	weekdays = map[string]time.Weekday{
		"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
		"sunday": time.Sunday,
	}
)

// ExtractDraft pulls reservation fields from a single utterance. It is a
// heuristic fallback behind the responder's structured output; extraction
// failures simply leave fields empty.
func ExtractDraft(utterance string, now time.Time) models.ReservationDraft {
	var draft models.ReservationDraft
	normalized := strings.ReplaceAll(utils.NormalizeText(utterance), "'", " ")

	if m := partyRe.FindStringSubmatch(normalized); m != nil {
		if n, ok := numberWords[m[1]]; ok {
			draft.PartySize = n
		} else if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			draft.PartySize = n
		}
	}

	if m := clockRe.FindStringSubmatch(normalized); m != nil {
		hour, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		draft.Time = formatClock(hour, min, m[3])
	} else if m := hourRe.FindStringSubmatch(normalized); m != nil {
		hour, _ := strconv.Atoi(m[1])
		draft.Time = formatClock(hour, 0, m[2])
	}

	switch {
	case isoRe.MatchString(normalized):
		draft.Date = isoRe.FindStringSubmatch(normalized)[1]
	case strings.Contains(normalized, "tomorrow"):
		draft.Date = now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(normalized, "today") || strings.Contains(normalized, "tonight"):
		draft.Date = now.Format("2006-01-02")
	default:
		for word, weekday := range weekdays {
			if strings.Contains(normalized, word) {
				draft.Date = nextWeekday(now, weekday).Format("2006-01-02")
				break
			}
		}
	}

	if m := nameRe.FindStringSubmatch(normalized); m != nil {
		draft.CustomerName = titleCase(m[1])
	}

	if m := phoneRe.FindString(utterance); m != "" {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m)
		if len(digits) >= 9 {
			draft.CustomerPhone = digits
		}
	}

	return draft
}

func formatClock(hour, min int, meridiem string) string {
	meridiem = strings.TrimSpace(meridiem)
	if meridiem == "pm" && hour < 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}
	// A bare "at 7" on a dinner line almost always means evening.
	if meridiem == "" || meridiem == "o clock" {
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}
	if hour > 23 {
		hour -= 12
	}
	return fmt.Sprintf("%02d:%02d", hour, min)
}

func nextWeekday(now time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
