// File: services/cache/cache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"voicedesk/models"
	"voicedesk/utils"

	"go.uber.org/zap"
)

const (
	audioKeyPrefix = "audio:"
	faqKeyPrefix   = "faq:"
)

// Fingerprint derives a deterministic content-addressed key. Identical parts
// always produce the same key; any differing part changes it.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// AudioCache stores synthesized audio references keyed by business, text and
// voice parameters. Lookups never fail the surrounding request.
type AudioCache struct {
	kv  KV
	ttl time.Duration
}

func NewAudioCache(kv KV, ttl time.Duration) *AudioCache {
	return &AudioCache{kv: kv, ttl: ttl}
}

func (c *AudioCache) Key(businessID, text string, voice models.VoiceParams) string {
	return audioKeyPrefix + Fingerprint(businessID, utils.NormalizeText(text), voice.CacheKey())
}

func (c *AudioCache) Get(ctx context.Context, businessID, text string, voice models.VoiceParams) (string, bool) {
	val, err := c.kv.Get(ctx, c.Key(businessID, text, voice))
	if err == ErrMiss {
		return "", false
	}
	if err != nil {
		utils.GetLogger().Warn("audio cache get failed", zap.Error(err))
		return "", false
	}
	return val, true
}

func (c *AudioCache) Set(ctx context.Context, businessID, text string, voice models.VoiceParams, audioRef string) {
	if err := c.kv.Set(ctx, c.Key(businessID, text, voice), audioRef, c.ttl); err != nil {
		utils.GetLogger().Warn("audio cache set failed", zap.Error(err))
	}
}

// FAQCache stores generated answers to informational questions for a short
// window, keyed by business and normalized utterance.
type FAQCache struct {
	kv  KV
	ttl time.Duration
}

func NewFAQCache(kv KV, ttl time.Duration) *FAQCache {
	return &FAQCache{kv: kv, ttl: ttl}
}

func (c *FAQCache) Key(businessID, utterance string) string {
	return faqKeyPrefix + Fingerprint(businessID, utils.NormalizeText(utterance))
}

func (c *FAQCache) Get(ctx context.Context, businessID, utterance string) (string, bool) {
	val, err := c.kv.Get(ctx, c.Key(businessID, utterance))
	if err == ErrMiss {
		return "", false
	}
	if err != nil {
		utils.GetLogger().Warn("faq cache get failed", zap.Error(err))
		return "", false
	}
	return val, true
}

func (c *FAQCache) Set(ctx context.Context, businessID, utterance, answer string) {
	if err := c.kv.Set(ctx, c.Key(businessID, utterance), answer, c.ttl); err != nil {
		utils.GetLogger().Warn("faq cache set failed", zap.Error(err))
	}
}
