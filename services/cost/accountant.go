// File: services/cost/accountant.go
package cost

import (
	"math"

	"voicedesk/config"
	"voicedesk/models"
)

// RatesFromConfig builds the unit rates from app configuration.
func RatesFromConfig() models.CostRates {
	return models.CostRates{
		TelephonyPerMinute:   config.AppConfig.TelephonyRatePerMin,
		RecognitionPerMinute: config.AppConfig.RecognitionRatePerMin,
		SynthesisPer1KChars:  config.AppConfig.SynthesisRatePer1KChar,
		CheapPer1KTokens:     config.AppConfig.CheapRatePer1KTokens,
		CapablePer1KTokens:   config.AppConfig.CapableRatePer1KTokens,
		CurrencyMultiplier:   config.AppConfig.CurrencyMultiplier,
	}
}

// Recompute derives the full cost ledger from the call's usage metrics.
// It is pure and idempotent: identical inputs always yield identical ledgers.
func Recompute(m models.UsageMetrics, rates models.CostRates) models.CostLedger {
	minutes := float64(m.DurationSeconds) / 60.0

	tokenRate := rates.CheapPer1KTokens
	if m.ModelTier == models.TierCapable {
		tokenRate = rates.CapablePer1KTokens
	}

	multiplier := rates.CurrencyMultiplier
	if multiplier == 0 {
		multiplier = 1
	}

	ledger := models.CostLedger{
		Telephony:   round6(minutes * rates.TelephonyPerMinute * multiplier),
		Recognition: round6(minutes * rates.RecognitionPerMinute * multiplier),
		Synthesis:   round6(float64(m.CharactersSynthesized) / 1000.0 * rates.SynthesisPer1KChars * multiplier),
		Generation:  round6(float64(m.TokensInput+m.TokensOutput) / 1000.0 * tokenRate * multiplier),
	}
	ledger.Total = round6(ledger.Telephony + ledger.Recognition + ledger.Synthesis + ledger.Generation)
	return ledger
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
