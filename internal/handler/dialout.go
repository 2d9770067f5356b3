package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/model"
	"github.com/goldenspoon/voiceline/pkg/logger"
	"github.com/goldenspoon/voiceline/pkg/metrics"
)

// CallPlacer places an outbound call and returns the provider call ID.
type CallPlacer interface {
	Dial(ctx context.Context, to, from string) (string, error)
}

// DialoutHandler handles outbound call requests.
type DialoutHandler struct {
	placer CallPlacer
	logger *logger.Logger
}

// NewDialoutHandler creates a new dialout handler.
func NewDialoutHandler(placer CallPlacer, log *logger.Logger) *DialoutHandler {
	return &DialoutHandler{
		placer: placer,
		logger: log,
	}
}

// Initiate handles POST /dialout
func (h *DialoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req model.DialoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ToNumber == "" || req.FromNumber == "" {
		respondError(w, http.StatusBadRequest, "to_number and from_number are required")
		return
	}

	callID, err := h.placer.Dial(r.Context(), req.ToNumber, req.FromNumber)
	if err != nil {
		status, outcome, message := placementFailure(err)
		metrics.RecordDialout(outcome)
		if status == http.StatusInternalServerError {
			h.logger.Error("dialout failed", zap.Error(err))
		} else {
			h.logger.Warn("dialout refused", zap.Error(err))
		}
		respondError(w, status, message)
		return
	}

	metrics.RecordDialout("ok")
	respond(w, http.StatusOK, model.DialoutResponse{
		CallID:   callID,
		Status:   "call_initiated",
		ToNumber: req.ToNumber,
	})
}
