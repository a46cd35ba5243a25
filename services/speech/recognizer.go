// File: services/speech/recognizer.go
package speech

import (
	"context"
	"fmt"
	"strings"

	"voicedesk/config"

	speech "cloud.google.com/go/speech/apiv1"
	"google.golang.org/api/option"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
)

// Recognizer turns recorded caller audio into text with a confidence score.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, float64, error)
}

// GoogleRecognizer implements Recognizer with Google Cloud STT.
type GoogleRecognizer struct {
	client *speech.Client
}

func NewGoogleRecognizer(ctx context.Context) (*GoogleRecognizer, error) {
	client, err := speech.NewClient(ctx, option.WithCredentialsFile(config.AppConfig.GoogleServiceAccountFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speech client: %w", err)
	}
	return &GoogleRecognizer{client: client}, nil
}

func (r *GoogleRecognizer) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, float64, error) {
	if languageCode == "" {
		languageCode = "en-US"
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   16000,
			LanguageCode:      languageCode,
			AudioChannelCount: 1, // Mono
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audio,
			},
		},
	}

	resp, err := r.client.Recognize(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("speech recognition failed: %w", err)
	}

	var transcript strings.Builder
	var confidence float64
	var alts int
	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			transcript.WriteString(alt.Transcript + " ")
			confidence += float64(alt.Confidence)
			alts++
			break // top alternative per result
		}
	}
	if alts > 0 {
		confidence /= float64(alts)
	}
	return strings.TrimSpace(transcript.String()), confidence, nil
}

func (r *GoogleRecognizer) Close() error {
	return r.client.Close()
}
