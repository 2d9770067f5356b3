// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// DialoutsTotal tracks outbound call placements by outcome.
	DialoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialouts_total",
			Help: "Total outbound call placement attempts",
		},
		[]string{"status"},
	)

	// CallSessionsActive tracks live media-stream sessions.
	CallSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "call_sessions_active",
			Help: "Number of active call sessions",
		},
	)

	// CallSessionDuration tracks call session duration from start to close.
	CallSessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_session_duration_seconds",
			Help:    "Call session duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// LLMRequestDuration tracks LLM turn latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// FunctionCallsTotal tracks dispatched function calls by name and status.
	FunctionCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "function_calls_total",
			Help: "Total conversational function calls dispatched",
		},
		[]string{"function", "status"},
	)

	// BookingsTotal tracks confirmed bookings.
	BookingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Total bookings confirmed",
		},
	)

	// SpeechSynthesisDuration tracks TTS synthesis latency.
	SpeechSynthesisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "speech_synthesis_duration_seconds",
			Help:    "Text-to-speech synthesis duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
		},
	)

	// TurnFailuresTotal tracks turn-level provider failures inside sessions.
	TurnFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turn_failures_total",
			Help: "Turn-level provider failures",
		},
		[]string{"stage"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordDialout records an outbound call placement attempt.
func RecordDialout(status string) {
	DialoutsTotal.WithLabelValues(status).Inc()
}

// RecordLLMRequest records metrics for one LLM completion.
func RecordLLMRequest(provider, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(provider, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordFunctionCall records one dispatched function call.
func RecordFunctionCall(function, status string) {
	FunctionCallsTotal.WithLabelValues(function, status).Inc()
}

// SessionStarted marks a call session as active.
func SessionStarted() {
	CallSessionsActive.Inc()
}

// SessionEnded marks a call session as closed and records its duration.
func SessionEnded(durationSec float64) {
	CallSessionsActive.Dec()
	CallSessionDuration.Observe(durationSec)
}
