// File: services/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"voicedesk/models"
	"voicedesk/services/cache"
	ai "voicedesk/services/intelligence"
	"voicedesk/utils"

	"go.uber.org/zap"
)

const clarificationReply = "Sorry, I didn't quite catch that. Could you say it again?"

// Input is one caller utterance plus the session context it arrived in.
type Input struct {
	Business   *models.Business
	Session    *models.CallSession
	Utterance  string
	Confidence float64
}

// Output is the pipeline's verdict for one turn.
type Output struct {
	Reply        string
	Intent       string
	Fields       models.ReservationDraft
	Tier         models.ModelTier
	Model        string
	TokensInput  int
	TokensOutput int
	CacheHit     bool
	Clarify      bool
}

// Pipeline turns a caller utterance into an agent reply.
type Pipeline interface {
	Respond(ctx context.Context, in Input) (*Output, error)
}

// DefaultPipeline implements Pipeline.
type DefaultPipeline struct {
	Responder       ai.Responder
	FAQCache        *cache.FAQCache
	ConfidenceFloor float64
	HistoryWindow   int
}

// Respond runs the full turn pipeline: confidence gate, intent classification,
// cache consult, tier selection, generation and extraction. A responder
// failure surfaces as a GenerationError; everything else degrades gracefully.
func (p *DefaultPipeline) Respond(ctx context.Context, in Input) (*Output, error) {
	// Low confidence never consumes a model call.
	if in.Confidence < p.ConfidenceFloor {
		utils.GetLogger().Debug("confidence below floor, asking to repeat",
			zap.String("callId", in.Session.ID), zap.Float64("confidence", in.Confidence))
		return &Output{Reply: clarificationReply, Intent: IntentClarify, Clarify: true, Tier: models.TierCheap}, nil
	}

	intent := ClassifyIntent(in.Utterance)

	if Informational(intent) && p.FAQCache != nil {
		if answer, ok := p.FAQCache.Get(ctx, in.Business.ID, in.Utterance); ok {
			utils.GetLogger().Debug("faq cache hit",
				zap.String("callId", in.Session.ID), zap.String("intent", intent))
			return &Output{Reply: answer, Intent: intent, CacheHit: true, Tier: models.TierCheap}, nil
		}
	}

	tier := SelectTier(intent, in.Session.TurnCount, in.Utterance)
	prompt := BuildPrompt(
		in.Business,
		in.Business.OpenAt(time.Now()),
		in.Session.RecentTurns(p.HistoryWindow),
		in.Session.Draft,
		in.Utterance,
	)

	result, err := p.Responder.Generate(ctx, prompt, tier)
	if err != nil {
		return nil, NewGenerationError("responder unavailable", err)
	}

	out := &Output{
		Reply:        result.Text,
		Intent:       intent,
		Tier:         tier,
		Model:        result.Model,
		TokensInput:  result.TokensInput,
		TokensOutput: result.TokensOutput,
	}

	if intent == IntentReservation {
		// Responder fields win; the heuristic extractor fills what they miss.
		fields := ExtractDraft(in.Utterance, time.Now())
		fields.Merge(result.Fields)
		out.Fields = fields
	}

	if Informational(intent) && p.FAQCache != nil && result.Text != "" {
		p.FAQCache.Set(ctx, in.Business.ID, in.Utterance, result.Text)
	}

	return out, nil
}
