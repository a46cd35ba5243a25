package models

// ModelTier names a generation tier.
type ModelTier string

const (
	TierCheap   ModelTier = "cheap"
	TierCapable ModelTier = "capable"
)

// UsageMetrics are the accumulated billable quantities of one call.
type UsageMetrics struct {
	DurationSeconds       int       `json:"durationSeconds"`
	TokensInput           int       `json:"tokensInput"`
	TokensOutput          int       `json:"tokensOutput"`
	ModelTier             ModelTier `json:"modelTier"`
	CharactersSynthesized int       `json:"charactersSynthesized"`
}

// CostRates are the unit rates the accountant applies.
type CostRates struct {
	TelephonyPerMinute   float64 `json:"telephonyPerMinute"`
	RecognitionPerMinute float64 `json:"recognitionPerMinute"`
	SynthesisPer1KChars  float64 `json:"synthesisPer1kChars"`
	CheapPer1KTokens     float64 `json:"cheapPer1kTokens"`
	CapablePer1KTokens   float64 `json:"capablePer1kTokens"`
	CurrencyMultiplier   float64 `json:"currencyMultiplier"`
}

// CostLedger is the per-service cost breakdown of one call.
type CostLedger struct {
	Telephony   float64 `json:"telephony"`
	Recognition float64 `json:"recognition"`
	Synthesis   float64 `json:"synthesis"`
	Generation  float64 `json:"generation"`
	Total       float64 `json:"total"`
}
