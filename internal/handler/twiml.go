package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/telephony"
	"github.com/goldenspoon/voiceline/pkg/logger"
)

// TwiMLHandler serves the markup document the provider fetches after a
// call is answered.
type TwiMLHandler struct {
	routes *telephony.RouteResolver
	logger *logger.Logger
}

// NewTwiMLHandler creates a new markup handler.
func NewTwiMLHandler(routes *telephony.RouteResolver, log *logger.Logger) *TwiMLHandler {
	return &TwiMLHandler{
		routes: routes,
		logger: log,
	}
}

// Serve handles GET|POST /twiml. The provider posts the call's To and
// From numbers as form fields; they are echoed back as stream parameters.
func (h *TwiMLHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request")
		return
	}

	to := r.FormValue("To")
	from := r.FormValue("From")

	doc, err := telephony.BuildStreamTwiML(h.routes.StreamURL(), to, from)
	if err != nil {
		h.logger.Error("markup generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to build markup")
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
