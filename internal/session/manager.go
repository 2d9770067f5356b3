package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/booking"
	"github.com/goldenspoon/voiceline/internal/engine"
	"github.com/goldenspoon/voiceline/internal/llm"
	"github.com/goldenspoon/voiceline/internal/stt"
	"github.com/goldenspoon/voiceline/internal/tts"
	"github.com/goldenspoon/voiceline/pkg/logger"
)

// Manager accepts provider media-stream connections and runs one Session
// per call. The host places no limit on concurrent sessions.
type Manager struct {
	upgrader    websocket.Upgrader
	transcriber stt.Transcriber
	synth       tts.Synthesizer
	llm         llm.Client
	registry    engine.Dispatcher
	store       *booking.Store
	engineCfg   engine.Config
	grace       time.Duration
	logger      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager wires the per-session dependencies.
func NewManager(
	transcriber stt.Transcriber,
	synth tts.Synthesizer,
	client llm.Client,
	registry engine.Dispatcher,
	store *booking.Store,
	engineCfg engine.Config,
	grace time.Duration,
	log *logger.Logger,
) *Manager {
	return &Manager{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		transcriber: transcriber,
		synth:       synth,
		llm:         client,
		registry:    registry,
		store:       store,
		engineCfg:   engineCfg,
		grace:       grace,
		logger:      log,
		sessions:    make(map[string]*Session),
	}
}

// HandleStream upgrades the provider connection and serves the session on
// the handler goroutine.
func (m *Manager) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// The cancel func is wired before the session becomes visible to
	// Shutdown, so teardown never races its creation.
	ctx, cancel := context.WithCancel(r.Context())
	s := newSession(conn, m)
	s.cancel = cancel

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.serve(ctx)
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown tears down every live session, waiting for each within the
// given context.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.teardown()
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
}
