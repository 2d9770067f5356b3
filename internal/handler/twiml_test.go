package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goldenspoon/voiceline/internal/config"
	"github.com/goldenspoon/voiceline/internal/telephony"
	"github.com/goldenspoon/voiceline/pkg/logger"
)

func TestTwiMLHandlerServe(t *testing.T) {
	routes, err := telephony.NewRouteResolver(&config.Config{
		DeployMode:   config.ModeLocal,
		LocalBaseURL: "https://abc123.ngrok.io",
	})
	if err != nil {
		t.Fatalf("NewRouteResolver: %v", err)
	}
	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewTwiMLHandler(routes, log)

	form := url.Values{}
	form.Set("To", "+15551234567")
	form.Set("From", "+15559876543")
	req := httptest.NewRequest(http.MethodPost, "/twiml", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("Content-Type = %q, want text/xml", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"wss://abc123.ngrok.io/ws",
		"+15551234567",
		"+15559876543",
		"<Connect>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response missing %q:\n%s", want, body)
		}
	}
}
