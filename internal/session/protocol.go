// Package session bridges the provider's media-stream protocol to a
// conversation engine, one session per live call.
package session

import (
	"encoding/base64"
)

// Media Streams event names.
const (
	eventConnected = "connected"
	eventStart     = "start"
	eventMedia     = "media"
	eventMark      = "mark"
	eventStop      = "stop"
)

// streamMessage is the envelope for every inbound protocol message.
type streamMessage struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid,omitempty"`
	Start     *startEvent `json:"start,omitempty"`
	Media     *mediaEvent `json:"media,omitempty"`
	Stop      *stopEvent  `json:"stop,omitempty"`
	Mark      *markEvent  `json:"mark,omitempty"`
}

// startEvent carries the stream identity and the custom parameters set by
// the markup document.
type startEvent struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	MediaFormat      mediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters"`
}

type mediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type mediaEvent struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"` // base64 mu-law audio
}

type stopEvent struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

type markEvent struct {
	Name string `json:"name"`
}

// outboundMedia builds an outbound media-frame message for one audio
// chunk.
func outboundMedia(streamSID string, audio []byte) map[string]any {
	return map[string]any{
		"event":     eventMedia,
		"streamSid": streamSID,
		"media": map[string]string{
			"payload": base64.StdEncoding.EncodeToString(audio),
		},
	}
}
