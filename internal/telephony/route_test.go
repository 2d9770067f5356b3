package telephony

import (
	"errors"
	"testing"

	"github.com/goldenspoon/voiceline/internal/config"
)

func TestRouteResolverLocalMode(t *testing.T) {
	cases := []struct {
		name       string
		baseURL    string
		wantStream string
		wantTwiML  string
	}{
		{
			name:       "https base",
			baseURL:    "https://abc123.ngrok.io",
			wantStream: "wss://abc123.ngrok.io/ws",
			wantTwiML:  "https://abc123.ngrok.io/twiml",
		},
		{
			name:       "http base",
			baseURL:    "http://localhost:7860",
			wantStream: "ws://localhost:7860/ws",
			wantTwiML:  "http://localhost:7860/twiml",
		},
		{
			name:       "trailing slash",
			baseURL:    "https://abc123.ngrok.io/",
			wantStream: "wss://abc123.ngrok.io/ws",
			wantTwiML:  "https://abc123.ngrok.io/twiml",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{DeployMode: config.ModeLocal, LocalBaseURL: tc.baseURL}
			r, err := NewRouteResolver(cfg)
			if err != nil {
				t.Fatalf("NewRouteResolver: %v", err)
			}
			if r.StreamURL() != tc.wantStream {
				t.Errorf("StreamURL = %q, want %q", r.StreamURL(), tc.wantStream)
			}
			if r.TwiMLURL() != tc.wantTwiML {
				t.Errorf("TwiMLURL = %q, want %q", r.TwiMLURL(), tc.wantTwiML)
			}
		})
	}
}

func TestRouteResolverManagedMode(t *testing.T) {
	cfg := &config.Config{
		DeployMode: config.ModeManaged,
		AgentName:  "concierge",
		OrgName:    "goldenspoon",
	}
	r, err := NewRouteResolver(cfg)
	if err != nil {
		t.Fatalf("NewRouteResolver: %v", err)
	}
	if got, want := r.StreamURL(), "wss://concierge.goldenspoon.agents.voiceline.dev/ws"; got != want {
		t.Errorf("StreamURL = %q, want %q", got, want)
	}
	if got, want := r.TwiMLURL(), "https://concierge.goldenspoon.agents.voiceline.dev/twiml"; got != want {
		t.Errorf("TwiMLURL = %q, want %q", got, want)
	}
}

func TestRouteResolverMisconfiguration(t *testing.T) {
	cases := []struct {
		name string
		cfg  *config.Config
	}{
		{"local without base URL", &config.Config{DeployMode: config.ModeLocal}},
		{"managed without agent", &config.Config{DeployMode: config.ModeManaged, OrgName: "goldenspoon"}},
		{"managed without org", &config.Config{DeployMode: config.ModeManaged, AgentName: "concierge"}},
		{"unknown mode", &config.Config{DeployMode: "cluster"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRouteResolver(tc.cfg); !errors.Is(err, config.ErrRouteConfigMissing) {
				t.Errorf("err = %v, want ErrRouteConfigMissing", err)
			}
		})
	}
}
