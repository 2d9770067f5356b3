// Package tts provides text-to-speech at the provider boundary.
package tts

import (
	"context"
)

// Synthesizer turns agent text into 8 kHz mu-law audio ready for the
// media stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Close() error
}
