package ai

import (
	"context"

	"voicedesk/models"
)

// Result is one generated agent reply plus its billing metadata. Fields carries
// any reservation details the model surfaced alongside the reply.
type Result struct {
	Text         string
	TokensInput  int
	TokensOutput int
	Model        string
	Fields       models.ReservationDraft
}

// Responder generates agent replies. Implementations map the tier onto a
// concrete model.
type Responder interface {
	Generate(ctx context.Context, prompt string, tier models.ModelTier) (*Result, error)
}
