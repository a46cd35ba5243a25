// File: services/intelligence/gemini.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voicedesk/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	cheapModelName   = "models/gemini-1.5-flash"
	capableModelName = "models/gemini-1.5-pro"

	generateTimeout = 12 * time.Second
)

// GeminiResponder answers through the Gemini API, selecting the model by tier.
type GeminiResponder struct {
	client *genai.Client
}

func NewGeminiResponder(apiKey string) *GeminiResponder {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}
	return &GeminiResponder{client: client}
}

func modelForTier(tier models.ModelTier) string {
	if tier == models.TierCapable {
		return capableModelName
	}
	return cheapModelName
}

func (g *GeminiResponder) Generate(ctx context.Context, prompt string, tier models.ModelTier) (*Result, error) {
	name := modelForTier(tier)
	model := g.client.GenerativeModel(name)

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}

	result := &Result{Model: name}
	result.Text, result.Fields = splitReservationBlock(sb.String())
	if resp.UsageMetadata != nil {
		result.TokensInput = int(resp.UsageMetadata.PromptTokenCount)
		result.TokensOutput = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// splitReservationBlock peels a trailing fenced JSON block off the reply. The
// system prompt asks the model to emit one when the caller stated reservation
// details; a malformed block is ignored.
func splitReservationBlock(text string) (string, models.ReservationDraft) {
	var draft models.ReservationDraft

	idx := strings.LastIndex(text, "```json")
	if idx < 0 {
		return strings.TrimSpace(text), draft
	}
	block := text[idx+len("```json"):]
	end := strings.Index(block, "```")
	if end < 0 {
		return strings.TrimSpace(text), draft
	}

	var payload struct {
		Reservation models.ReservationDraft `json:"reservation"`
	}
	if err := json.Unmarshal([]byte(block[:end]), &payload); err != nil {
		return strings.TrimSpace(text[:idx]), draft
	}
	return strings.TrimSpace(text[:idx]), payload.Reservation
}
