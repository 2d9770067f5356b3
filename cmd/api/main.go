// Package main is the entry point for the voice agent server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/booking"
	"github.com/goldenspoon/voiceline/internal/config"
	"github.com/goldenspoon/voiceline/internal/engine"
	"github.com/goldenspoon/voiceline/internal/functions"
	"github.com/goldenspoon/voiceline/internal/handler"
	"github.com/goldenspoon/voiceline/internal/llm"
	"github.com/goldenspoon/voiceline/internal/middleware"
	"github.com/goldenspoon/voiceline/internal/session"
	"github.com/goldenspoon/voiceline/internal/stt"
	"github.com/goldenspoon/voiceline/internal/telephony"
	"github.com/goldenspoon/voiceline/internal/tts"
	"github.com/goldenspoon/voiceline/pkg/logger"
	"github.com/goldenspoon/voiceline/pkg/tracing"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting voice agent server")

	// Route configuration must be complete before any call can be placed.
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrRouteConfigMissing) {
			log.Error("route configuration missing",
				zap.String("deploy_mode", cfg.DeployMode),
				zap.Error(err))
		} else {
			log.Error("invalid configuration", zap.Error(err))
		}
		os.Exit(1)
	}

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "voiceline", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Resolve stream and TwiML addresses for the configured deploy mode.
	routes, err := telephony.NewRouteResolver(cfg)
	if err != nil {
		log.Error("failed to resolve routes", zap.Error(err))
		os.Exit(1)
	}
	log.Info("routes resolved",
		zap.String("deploy_mode", cfg.DeployMode),
		zap.String("stream_url", routes.StreamURL()),
		zap.String("twiml_url", routes.TwiMLURL()))

	// Telephony provider client.
	dialer, err := telephony.NewDialer(cfg.TwilioAccountSID, cfg.TwilioAuthToken, routes.TwiMLURL(), log)
	if err != nil {
		log.Error("failed to create dialer", zap.Error(err))
		os.Exit(1)
	}

	// Initialize LLM client
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == "anthropic" && cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, calls will be refused", zap.Error(err))
		llmClient = nil
	}
	if llmClient == nil {
		log.Warn("no LLM provider configured")
	}

	// Speech clients. Missing credentials degrade to a server that can
	// still serve dialout and TwiML but not live calls.
	var transcriber stt.Transcriber
	var synth tts.Synthesizer
	transcriber, err = stt.NewGoogleTranscriber(ctx, cfg.GoogleCredentialsFile, cfg.STTLanguage, log)
	if err != nil {
		log.Warn("failed to create speech-to-text client", zap.Error(err))
		transcriber = nil
	} else {
		defer transcriber.Close()
	}
	synth, err = tts.NewGoogleSynthesizer(ctx, cfg.GoogleCredentialsFile, cfg.TTSVoice)
	if err != nil {
		log.Warn("failed to create text-to-speech client", zap.Error(err))
		synth = nil
	} else {
		defer synth.Close()
	}

	// Booking state and callable functions.
	store := booking.NewStore(cfg.Restaurant.DefaultSlotCapacity)
	registry := functions.NewRegistry(store, cfg.Restaurant, log)

	engineCfg := engine.Config{
		SystemPrompt:      engine.SystemPrompt(cfg.Restaurant),
		MaxFunctionRounds: cfg.MaxFunctionRounds,
		MaxTurnFailures:   cfg.MaxTurnFailures,
	}

	manager := session.NewManager(transcriber, synth, llmClient, registry, store, engineCfg, cfg.TeardownGrace, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(llmClient)
	dialoutHandler := handler.NewDialoutHandler(dialer, log)
	twimlHandler := handler.NewTwiMLHandler(routes, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Call control
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/dialout", dialoutHandler.Initiate)
	})

	// The provider fetches TwiML with POST by default but GET is allowed.
	r.Get("/twiml", twimlHandler.Serve)
	r.Post("/twiml", twimlHandler.Serve)

	// Media stream websocket
	r.Get("/ws", manager.HandleStream)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server",
		zap.Int("active_sessions", manager.ActiveSessions()))

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// Drain live calls before exiting.
	manager.Shutdown(shutdownCtx)

	log.Info("server stopped")
}
