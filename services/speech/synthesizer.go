// File: services/speech/synthesizer.go
package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"voicedesk/config"
	"voicedesk/models"
	"voicedesk/services/cache"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Synthesizer renders agent text into a playable audio reference.
type Synthesizer interface {
	Synthesize(ctx context.Context, businessID, text string, voice models.VoiceParams) (string, error)
}

// GoogleSynthesizer implements Synthesizer with Google Cloud TTS, writing the
// rendered audio under the configured audio directory.
type GoogleSynthesizer struct {
	client *texttospeech.Client
}

func NewGoogleSynthesizer(ctx context.Context) (*GoogleSynthesizer, error) {
	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(config.AppConfig.GoogleServiceAccountFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tts client: %w", err)
	}
	return &GoogleSynthesizer{client: client}, nil
}

func (s *GoogleSynthesizer) Synthesize(ctx context.Context, businessID, text string, voice models.VoiceParams) (string, error) {
	languageCode := voice.LanguageCode
	if languageCode == "" {
		languageCode = "en-US"
	}
	speakingRate := voice.SpeakingRate
	if speakingRate == 0 {
		speakingRate = 1.0
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			Name:         voice.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  speakingRate,
			Pitch:         voice.Pitch,
		},
	}

	resp, err := s.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}

	name := cache.Fingerprint(businessID, text, voice.CacheKey()) + ".mp3"
	dir := config.AppConfig.AudioDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), resp.AudioContent, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return "/audio/" + name, nil
}

func (s *GoogleSynthesizer) Close() error {
	return s.client.Close()
}

// CachedSynthesizer consults the audio cache before synthesizing. Cache
// failures fall through to synthesis.
type CachedSynthesizer struct {
	Inner Synthesizer
	Cache *cache.AudioCache
}

func (s *CachedSynthesizer) Synthesize(ctx context.Context, businessID, text string, voice models.VoiceParams) (string, error) {
	if ref, ok := s.Cache.Get(ctx, businessID, text, voice); ok {
		return ref, nil
	}
	ref, err := s.Inner.Synthesize(ctx, businessID, text, voice)
	if err != nil {
		return "", err
	}
	s.Cache.Set(ctx, businessID, text, voice, ref)
	return ref, nil
}
