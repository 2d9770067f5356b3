package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goldenspoon/voiceline/internal/telephony"
	"github.com/goldenspoon/voiceline/pkg/logger"
)

type fakePlacer struct {
	callID  string
	err     error
	gotTo   string
	gotFrom string
}

func (f *fakePlacer) Dial(ctx context.Context, to, from string) (string, error) {
	f.gotTo, f.gotFrom = to, from
	return f.callID, f.err
}

func newDialoutHandler(t *testing.T, placer CallPlacer) *DialoutHandler {
	t.Helper()
	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewDialoutHandler(placer, log)
}

func postDialout(h *DialoutHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/dialout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Initiate(rec, req)
	return rec
}

func TestDialoutSuccess(t *testing.T) {
	placer := &fakePlacer{callID: "CA1234"}
	h := newDialoutHandler(t, placer)

	rec := postDialout(h, `{"to_number":"+15551234567","from_number":"+15559876543"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["call_id"] != "CA1234" {
		t.Errorf("call_id = %q, want CA1234", resp["call_id"])
	}
	if resp["status"] != "call_initiated" {
		t.Errorf("status = %q, want call_initiated", resp["status"])
	}
	if placer.gotTo != "+15551234567" || placer.gotFrom != "+15559876543" {
		t.Errorf("placer received to=%q from=%q", placer.gotTo, placer.gotFrom)
	}
}

func TestDialoutMissingFields(t *testing.T) {
	h := newDialoutHandler(t, &fakePlacer{})

	for _, body := range []string{
		`{}`,
		`{"to_number":"+15551234567"}`,
		`{"from_number":"+15559876543"}`,
		`not json`,
	} {
		rec := postDialout(h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestDialoutInvalidNumber(t *testing.T) {
	placer := &fakePlacer{err: fmt.Errorf("%w: to_number", telephony.ErrInvalidNumber)}
	h := newDialoutHandler(t, placer)

	rec := postDialout(h, `{"to_number":"5551234567","from_number":"+15559876543"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDialoutProviderRejected(t *testing.T) {
	placer := &fakePlacer{err: fmt.Errorf("%w: unverified number", telephony.ErrProviderRejected)}
	h := newDialoutHandler(t, placer)

	rec := postDialout(h, `{"to_number":"+15551234567","from_number":"+15559876543"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestDialoutInternalError(t *testing.T) {
	placer := &fakePlacer{err: fmt.Errorf("connection reset")}
	h := newDialoutHandler(t, placer)

	rec := postDialout(h, `{"to_number":"+15551234567","from_number":"+15559876543"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
