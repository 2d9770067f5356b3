package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/engine"
	"github.com/goldenspoon/voiceline/internal/model"
	"github.com/goldenspoon/voiceline/internal/stt"
	"github.com/goldenspoon/voiceline/pkg/logger"
	"github.com/goldenspoon/voiceline/pkg/metrics"
)

// outboundChunkSize is the audio chunk size for outbound media frames:
// 200 ms of 8 kHz mu-law.
const outboundChunkSize = 1600

// Session owns one live media stream and the conversation engine bound to
// it. Sessions are independent: a fault in one never reaches another.
type Session struct {
	id      string
	conn    *websocket.Conn
	manager *Manager
	logger  *logger.Logger

	mu    sync.Mutex
	state model.SessionState
	info  model.CallSession

	audioOut  chan []byte
	sttStream stt.Stream
	eng       *engine.Engine
	engDone   chan error

	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, m *Manager) *Session {
	return &Session{
		id:       uuid.New().String(),
		conn:     conn,
		manager:  m,
		logger:   m.logger,
		state:    model.SessionAwaitingStart,
		audioOut: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// State returns the session's lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a snapshot of the call session record.
func (s *Session) Info() model.CallSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *Session) setState(st model.SessionState) {
	s.mu.Lock()
	s.state = st
	s.info.State = st
	s.mu.Unlock()
}

// serve reads protocol messages until the stream stops or fails, then
// tears the session down. A panic in one session is contained here.
func (s *Session) serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panic", zap.Any("panic", r))
		}
		s.teardown()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("stream read ended", zap.Error(err))
			}
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case eventConnected:
			// Protocol handshake, nothing to do yet.

		case eventStart:
			if msg.Start == nil || s.State() != model.SessionAwaitingStart {
				continue
			}
			if err := s.handleStart(ctx, msg.Start); err != nil {
				s.logger.Error("session start failed", zap.Error(err))
				return
			}

		case eventMedia:
			if msg.Media == nil || s.State() != model.SessionActive {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if err != nil {
				continue
			}
			if err := s.sttStream.Send(audio); err != nil {
				s.logger.Warn("forwarding audio to recognizer failed", zap.Error(err))
				return
			}

		case eventMark:
			// Playback synchronization marker, unused.

		case eventStop:
			return
		}
	}
}

// handleStart transitions AwaitingStart -> Active: record the call
// parameters set by the markup document, open the recognition stream, and
// start the engine.
func (s *Session) handleStart(ctx context.Context, start *startEvent) error {
	if s.manager.transcriber == nil || s.manager.synth == nil || s.manager.llm == nil {
		return errors.New("media pipeline not configured")
	}

	log := s.logger.WithSession(s.id, start.CallSID)

	s.mu.Lock()
	s.info = model.CallSession{
		SessionID:  s.id,
		StreamSID:  start.StreamSID,
		CallSID:    start.CallSID,
		ToNumber:   start.CustomParameters["to_number"],
		FromNumber: start.CustomParameters["from_number"],
		StartedAt:  time.Now(),
		State:      model.SessionActive,
	}
	s.state = model.SessionActive
	s.logger = log
	s.mu.Unlock()

	log.Info("call session started",
		zap.String("stream_sid", start.StreamSID),
		zap.String("to", start.CustomParameters["to_number"]),
		zap.String("from", start.CustomParameters["from_number"]),
	)

	sttStream, err := s.manager.transcriber.OpenStream(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sttStream = sttStream
	s.eng = engine.New(s.manager.llm, s.manager.registry, s.manager.synth, s.manager.engineCfg, log)
	s.engDone = make(chan error, 1)
	s.mu.Unlock()

	metrics.SessionStarted()

	go s.writeLoop(ctx, start.StreamSID)

	go func() {
		err := s.eng.Run(ctx, sttStream.Results(), s.audioOut)
		s.engDone <- err
		// A fatal engine error ends the call from our side; closing the
		// connection unblocks the read loop.
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("engine ended with error", zap.Error(err))
			_ = s.conn.Close()
		}
	}()

	return nil
}

// writeLoop forwards engine audio to the provider stream, preserving
// order and splitting clips into media-frame sized chunks.
func (s *Session) writeLoop(ctx context.Context, streamSID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case audio := <-s.audioOut:
			for off := 0; off < len(audio); off += outboundChunkSize {
				end := off + outboundChunkSize
				if end > len(audio) {
					end = len(audio)
				}
				if err := s.conn.WriteJSON(outboundMedia(streamSID, audio[off:end])); err != nil {
					return
				}
			}
		}
	}
}

// teardown completes the session even if the engine is mid-turn: cancel
// pending provider calls, close the recognition stream, and wait out the
// grace period for the engine to come back.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		wasActive := s.State() == model.SessionActive
		s.setState(model.SessionClosing)

		if s.cancel != nil {
			s.cancel()
		}
		_ = s.conn.Close()

		s.mu.Lock()
		sttStream := s.sttStream
		engDone := s.engDone
		log := s.logger
		s.mu.Unlock()

		if sttStream != nil {
			_ = sttStream.Close()
		}

		if engDone != nil {
			select {
			case <-engDone:
			case <-time.After(s.manager.grace):
				log.Warn("engine did not stop within grace period")
			}
		}

		s.setState(model.SessionClosed)
		close(s.done)

		if wasActive {
			started := s.Info().StartedAt
			metrics.SessionEnded(time.Since(started).Seconds())
			log.Info("call session ended",
				zap.Duration("duration", time.Since(started)),
				zap.Int("total_bookings", s.manager.store.TotalBookings()),
			)
		}

		s.manager.remove(s)
	})
}
