package services

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// GoogleTranscriber transcribes audio with Google Cloud Speech-to-Text.
type GoogleTranscriber struct {
	credentialsFile string
}

// NewGoogleTranscriber creates a transcriber using a service account file.
func NewGoogleTranscriber(credentialsFile string) *GoogleTranscriber {
	return &GoogleTranscriber{credentialsFile: credentialsFile}
}

// Transcribe runs synchronous recognition on a short voice note. WhatsApp
// voice messages arrive as OGG/Opus.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	client, err := speech.NewClient(ctx, option.WithCredentialsFile(g.credentialsFile))
	if err != nil {
		return "", fmt.Errorf("create speech client: %w", err)
	}
	defer client.Close()

	encoding := speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	if strings.Contains(contentType, "ogg") || strings.Contains(contentType, "opus") {
		encoding = speechpb.RecognitionConfig_OGG_OPUS
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          encoding,
			SampleRateHertz:   16000,
			LanguageCode:      "en-US",
			AudioChannelCount: 1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			transcript.WriteString(alt.Transcript + " ")
		}
	}
	return strings.TrimSpace(transcript.String()), nil
}
