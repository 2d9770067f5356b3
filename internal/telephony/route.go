// Package telephony talks to the telephony provider: placing outbound
// calls, generating the stream markup the provider fetches on answer, and
// resolving the externally reachable stream address.
package telephony

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goldenspoon/voiceline/internal/config"
)

// managedDomain is the host suffix under which managed deployments are
// reachable, derived from agent and organization names.
const managedDomain = "agents.voiceline.dev"

// RouteResolver computes the externally reachable addresses for the media
// stream and the markup endpoint. It is a pure function of configuration,
// resolved once at startup.
type RouteResolver struct {
	streamURL string
	twimlURL  string
}

// NewRouteResolver resolves routes for the active deployment mode.
// Misconfiguration fails here, before any call is placed.
func NewRouteResolver(cfg *config.Config) (*RouteResolver, error) {
	switch cfg.DeployMode {
	case config.ModeLocal:
		if cfg.LocalBaseURL == "" {
			return nil, config.ErrRouteConfigMissing
		}
		base, err := url.Parse(cfg.LocalBaseURL)
		if err != nil || base.Host == "" {
			return nil, fmt.Errorf("%w: invalid base URL %q", config.ErrRouteConfigMissing, cfg.LocalBaseURL)
		}

		wsScheme := "ws"
		if base.Scheme == "https" || base.Scheme == "wss" {
			wsScheme = "wss"
		}
		httpScheme := "http"
		if wsScheme == "wss" {
			httpScheme = "https"
		}

		basePath := strings.TrimSuffix(base.Path, "/")
		return &RouteResolver{
			streamURL: fmt.Sprintf("%s://%s%s/ws", wsScheme, base.Host, basePath),
			twimlURL:  fmt.Sprintf("%s://%s%s/twiml", httpScheme, base.Host, basePath),
		}, nil

	case config.ModeManaged:
		if cfg.AgentName == "" || cfg.OrgName == "" {
			return nil, config.ErrRouteConfigMissing
		}
		host := fmt.Sprintf("%s.%s.%s", cfg.AgentName, cfg.OrgName, managedDomain)
		return &RouteResolver{
			streamURL: fmt.Sprintf("wss://%s/ws", host),
			twimlURL:  fmt.Sprintf("https://%s/twiml", host),
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown deploy mode %q", config.ErrRouteConfigMissing, cfg.DeployMode)
	}
}

// StreamURL returns the WebSocket address the provider connects its media
// stream to.
func (r *RouteResolver) StreamURL() string {
	return r.streamURL
}

// TwiMLURL returns the address the provider fetches call markup from.
func (r *RouteResolver) TwiMLURL() string {
	return r.twimlURL
}
