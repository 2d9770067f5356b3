package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/goldenspoon/voiceline/internal/telephony"
)

func TestPlacementFailureMapping(t *testing.T) {
	cases := []struct {
		err         error
		wantStatus  int
		wantOutcome string
	}{
		{fmt.Errorf("%w: to_number", telephony.ErrInvalidNumber), http.StatusBadRequest, "invalid_number"},
		{fmt.Errorf("%w: code 21212", telephony.ErrProviderRejected), http.StatusBadGateway, "provider_rejected"},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError, "error"},
	}

	for _, tc := range cases {
		status, outcome, message := placementFailure(tc.err)
		if status != tc.wantStatus || outcome != tc.wantOutcome {
			t.Errorf("placementFailure(%v) = %d/%s, want %d/%s",
				tc.err, status, outcome, tc.wantStatus, tc.wantOutcome)
		}
		if message == "" {
			t.Errorf("placementFailure(%v) returned empty message", tc.err)
		}
	}
}
