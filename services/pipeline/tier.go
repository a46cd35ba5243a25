// File: services/pipeline/tier.go
package pipeline

import "voicedesk/models"

const (
	deepConversationTurns = 4
	longUtteranceChars    = 60
)

// SelectTier picks the generation tier deterministically. Complex intents in a
// conversation with real depth (or a long utterance) get the capable model;
// everything else stays on the cheap one.
func SelectTier(intent string, turnCount int, utterance string) models.ModelTier {
	if Complex(intent) && (turnCount >= deepConversationTurns || len(utterance) > longUtteranceChars) {
		return models.TierCapable
	}
	return models.TierCheap
}
