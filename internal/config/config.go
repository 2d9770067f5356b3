// Package config provides environment configuration for the voice server.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Deployment modes for resolving the externally reachable stream address.
const (
	ModeLocal   = "local"
	ModeManaged = "managed"
)

// ErrRouteConfigMissing indicates the deployment mode lacks the settings
// needed to resolve the media-stream address. It is fatal at startup.
var ErrRouteConfigMissing = errors.New("route configuration missing")

// Restaurant holds the static restaurant facts served by
// get_restaurant_info and quoted in the agent's system prompt.
type Restaurant struct {
	Name     string
	General  string
	Hours    string
	Menu     string
	Location string
	Capacity string

	DefaultSlotCapacity int
	MaxPartySize        int
}

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Deployment / routing
	DeployMode   string
	LocalBaseURL string
	AgentName    string
	OrgName      string

	// Twilio settings
	TwilioAccountSID string
	TwilioAuthToken  string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string

	// Speech settings
	GoogleCredentialsFile string
	STTLanguage           string
	TTSVoice              string

	// Engine tuning
	MaxFunctionRounds  int
	MaxTurnFailures    int
	TeardownGrace      time.Duration
	ProviderCallBudget time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool

	// Restaurant facts
	Restaurant Restaurant
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "7860"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Deployment
		DeployMode:   getEnv("DEPLOY_MODE", ModeLocal),
		LocalBaseURL: getEnv("LOCAL_BASE_URL", ""),
		AgentName:    getEnv("AGENT_NAME", ""),
		OrgName:      getEnv("ORG_NAME", ""),

		// Twilio
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),

		// Speech
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		STTLanguage:           getEnv("STT_LANGUAGE", "en-US"),
		TTSVoice:              getEnv("TTS_VOICE", "en-GB-Neural2-C"),

		// Engine
		MaxFunctionRounds:  getIntEnv("MAX_FUNCTION_ROUNDS", 5),
		MaxTurnFailures:    getIntEnv("MAX_TURN_FAILURES", 3),
		TeardownGrace:      getDurationEnv("TEARDOWN_GRACE", 10*time.Second),
		ProviderCallBudget: getDurationEnv("PROVIDER_CALL_BUDGET", 30*time.Second),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),

		Restaurant: Restaurant{
			Name:     getEnv("RESTAURANT_NAME", "The Golden Spoon Restaurant"),
			General:  getEnv("RESTAURANT_GENERAL", "The Golden Spoon Restaurant is open Tuesday to Sunday, 11 AM to 10 PM. We are closed on Mondays."),
			Hours:    getEnv("RESTAURANT_HOURS", "Lunch: 11 AM - 3 PM, Dinner: 5 PM - 10 PM. Closed Mondays."),
			Menu:     getEnv("RESTAURANT_MENU", "We offer Italian and Mediterranean cuisine with vegetarian, vegan, and gluten-free options."),
			Location: getEnv("RESTAURANT_LOCATION", "123 Main Street, Downtown. Free parking available."),
			Capacity: getEnv("RESTAURANT_CAPACITY", "We can accommodate parties up to 12 guests."),

			DefaultSlotCapacity: getIntEnv("DEFAULT_SLOT_CAPACITY", 12),
			MaxPartySize:        getIntEnv("MAX_PARTY_SIZE", 12),
		},
	}
}

// Validate checks settings that must be correct before the server can
// serve calls. Route misconfiguration is fatal at startup, not at call
// time.
func (c *Config) Validate() error {
	switch c.DeployMode {
	case ModeLocal:
		if c.LocalBaseURL == "" {
			return ErrRouteConfigMissing
		}
	case ModeManaged:
		if c.AgentName == "" || c.OrgName == "" {
			return ErrRouteConfigMissing
		}
	default:
		return ErrRouteConfigMissing
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
