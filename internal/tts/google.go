package tts

import (
	"context"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/goldenspoon/voiceline/pkg/metrics"
)

// GoogleSynthesizer implements Synthesizer using Cloud Text-to-Speech.
type GoogleSynthesizer struct {
	client *texttospeech.Client
	voice  string
}

// NewGoogleSynthesizer creates a Cloud Text-to-Speech client. voice is a
// full voice name such as "en-GB-Neural2-C".
func NewGoogleSynthesizer(ctx context.Context, credentialsFile, voice string) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GoogleSynthesizer{
		client: client,
		voice:  voice,
	}, nil
}

// Synthesize renders text as 8 kHz mu-law audio.
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()

	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageOf(s.voice),
			Name:         s.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_MULAW,
			SampleRateHertz: 8000,
		},
	})
	if err != nil {
		return nil, err
	}

	metrics.SpeechSynthesisDuration.Observe(time.Since(start).Seconds())
	return resp.AudioContent, nil
}

// Close releases the underlying client.
func (s *GoogleSynthesizer) Close() error {
	return s.client.Close()
}

// languageOf extracts the language code from a full voice name, e.g.
// "en-GB-Neural2-C" -> "en-GB".
func languageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
