package telephony

import (
	"github.com/twilio/twilio-go/twiml"
)

// BuildStreamTwiML produces the markup document that instructs the
// provider to open a bidirectional media stream to streamURL, with the
// dialed and caller numbers attached as stream parameters. The output is
// a pure function of its inputs.
func BuildStreamTwiML(streamURL, toNumber, fromNumber string) (string, error) {
	stream := &twiml.VoiceStream{
		Url: streamURL,
		InnerElements: []twiml.Element{
			&twiml.VoiceParameter{Name: "to_number", Value: toNumber},
			&twiml.VoiceParameter{Name: "from_number", Value: fromNumber},
		},
	}

	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	return twiml.Voice([]twiml.Element{connect})
}
