// Package stt provides streaming speech-to-text at the provider boundary.
package stt

import (
	"context"
)

// Utterance is one transcription result. Final marks end of utterance.
type Utterance struct {
	Text  string
	Final bool
}

// Stream is one live recognition stream. Send accepts 8 kHz mu-law audio;
// Results delivers transcriptions in arrival order and is closed when the
// stream ends.
type Stream interface {
	Send(audio []byte) error
	Results() <-chan Utterance
	Close() error
}

// Transcriber opens recognition streams against a speech provider.
type Transcriber interface {
	OpenStream(ctx context.Context) (Stream, error)
	Close() error
}
