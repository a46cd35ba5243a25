// File: services/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicedesk/models"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("biz-1", "are you open on sunday", "en-US-Neural2-F|1.00|0.00")
	b := Fingerprint("biz-1", "are you open on sunday", "en-US-Neural2-F|1.00|0.00")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintSeparatesParts(t *testing.T) {
	// Joining with an explicit separator keeps ("ab","c") and ("a","bc")
	// from colliding.
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestAudioCacheKey(t *testing.T) {
	voice := models.VoiceParams{Voice: "en-US-Neural2-F", SpeakingRate: 1.0}
	altVoice := models.VoiceParams{Voice: "en-US-Neural2-D", SpeakingRate: 1.0}

	c := NewAudioCache(NewMemoryKV(), time.Hour)

	base := c.Key("biz-1", "We close at ten.", voice)
	assert.Equal(t, base, c.Key("biz-1", "we close at ten.", voice),
		"normalized text variants share a key")
	assert.NotEqual(t, base, c.Key("biz-2", "We close at ten.", voice),
		"business id is part of the key")
	assert.NotEqual(t, base, c.Key("biz-1", "We close at ten.", altVoice),
		"voice params are part of the key")
	assert.NotEqual(t, base, c.Key("biz-1", "We close at nine.", voice))
}

func TestAudioCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	voice := models.VoiceParams{Voice: "en-US-Neural2-F"}
	c := NewAudioCache(NewMemoryKV(), time.Hour)

	_, ok := c.Get(ctx, "biz-1", "Welcome to Marco's.", voice)
	require.False(t, ok)

	c.Set(ctx, "biz-1", "Welcome to Marco's.", voice, "/audio/abc123.mp3")

	ref, ok := c.Get(ctx, "biz-1", "Welcome to Marco's.", voice)
	require.True(t, ok)
	assert.Equal(t, "/audio/abc123.mp3", ref)
}

func TestFAQCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFAQCache(NewMemoryKV(), time.Hour)

	c.Set(ctx, "biz-1", "Do you have parking?", "Yes, there is a free lot behind the building.")

	answer, ok := c.Get(ctx, "biz-1", "do you have   parking?")
	require.True(t, ok, "whitespace and case variants hit the same entry")
	assert.Equal(t, "Yes, there is a free lot behind the building.", answer)

	_, ok = c.Get(ctx, "biz-2", "Do you have parking?")
	assert.False(t, ok, "entries are scoped per business")
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "k", "v", 10*time.Millisecond))
	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	time.Sleep(20 * time.Millisecond)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
