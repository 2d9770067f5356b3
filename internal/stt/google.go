package stt

import (
	"context"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/goldenspoon/voiceline/pkg/logger"
)

// GoogleTranscriber implements Transcriber using Cloud Speech streaming
// recognition.
type GoogleTranscriber struct {
	client   *speech.Client
	language string
	logger   *logger.Logger
}

// NewGoogleTranscriber creates a Cloud Speech client. credentialsFile may
// be empty, in which case application default credentials apply.
func NewGoogleTranscriber(ctx context.Context, credentialsFile, language string, log *logger.Logger) (*GoogleTranscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GoogleTranscriber{
		client:   client,
		language: language,
		logger:   log,
	}, nil
}

// OpenStream starts a streaming recognition session configured for the
// telephony audio format (8 kHz mu-law).
func (t *GoogleTranscriber) OpenStream(ctx context.Context) (Stream, error) {
	rec, err := t.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, err
	}

	if err := rec.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_MULAW,
					SampleRateHertz: 8000,
					LanguageCode:    t.language,
				},
				InterimResults: false,
			},
		},
	}); err != nil {
		return nil, err
	}

	gs := &googleStream{
		rec:     rec,
		results: make(chan Utterance, 16),
	}
	go gs.recvLoop(ctx, t.logger)

	return gs, nil
}

// Close releases the underlying client.
func (t *GoogleTranscriber) Close() error {
	return t.client.Close()
}

type googleStream struct {
	rec     speechpb.Speech_StreamingRecognizeClient
	results chan Utterance

	closeOnce sync.Once
}

func (s *googleStream) Send(audio []byte) error {
	return s.rec.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

func (s *googleStream) Results() <-chan Utterance {
	return s.results
}

func (s *googleStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.rec.CloseSend()
	})
	return err
}

func (s *googleStream) recvLoop(ctx context.Context, log *logger.Logger) {
	defer close(s.results)

	for {
		resp, err := s.rec.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Debug("recognition stream ended")
			return
		}

		for _, result := range resp.Results {
			if !result.IsFinal || len(result.Alternatives) == 0 {
				continue
			}
			// The consumer may have stopped draining during teardown;
			// cancellation must still release this goroutine.
			select {
			case s.results <- Utterance{
				Text:  result.Alternatives[0].Transcript,
				Final: true,
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}
