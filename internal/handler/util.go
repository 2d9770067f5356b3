package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goldenspoon/voiceline/internal/telephony"
)

// respond writes v as a JSON response with the given status.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{
		"error": message,
	})
}

// placementFailure maps a call placement error onto an HTTP status, a
// metrics outcome label, and a caller-facing message.
func placementFailure(err error) (status int, outcome, message string) {
	switch {
	case errors.Is(err, telephony.ErrInvalidNumber):
		return http.StatusBadRequest, "invalid_number", "invalid phone number, expected E.164"
	case errors.Is(err, telephony.ErrProviderRejected):
		return http.StatusBadGateway, "provider_rejected", "telephony provider rejected the call"
	default:
		return http.StatusInternalServerError, "error", "failed to place call"
	}
}
