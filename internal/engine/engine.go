// Package engine drives one call's conversation: listen for the caller,
// think with the language model, dispatch requested functions, and speak
// the reply. Stages within one engine are strictly sequential.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/internal/llm"
	"github.com/goldenspoon/voiceline/internal/model"
	"github.com/goldenspoon/voiceline/internal/stt"
	"github.com/goldenspoon/voiceline/internal/tts"
	"github.com/goldenspoon/voiceline/pkg/logger"
	"github.com/goldenspoon/voiceline/pkg/metrics"
)

// State is the engine's turn-machine state.
type State string

const (
	StateWaitForUser     State = "wait_for_user"
	StateListening       State = "listening"
	StateThinking        State = "thinking"
	StateFunctionCalling State = "function_calling"
	StateSpeaking        State = "speaking"
	StateEnded           State = "ended"
)

var (
	// ErrFunctionLoopExceeded indicates the model kept requesting
	// function calls past the per-turn round cap.
	ErrFunctionLoopExceeded = errors.New("function call loop exceeded")

	// ErrSessionFatal indicates consecutive turn failures exhausted the
	// recovery budget and the session must be torn down.
	ErrSessionFatal = errors.New("session fatal")
)

// fallbackUtterance is spoken after a recoverable turn failure.
const fallbackUtterance = "I'm sorry, I'm having a little trouble right now. Could you say that again?"

// Dispatcher is the function registry surface the engine needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) *model.FunctionCallResult
	Definitions() []llm.ToolDefinition
}

// Config tunes one engine instance.
type Config struct {
	SystemPrompt      string
	Model             string
	Temperature       float64
	MaxFunctionRounds int
	MaxTurnFailures   int
}

// Engine is the per-session conversation state machine. It does not speak
// first: it stays in StateWaitForUser until the first transcribed caller
// utterance arrives.
type Engine struct {
	llm        llm.Client
	dispatcher Dispatcher
	tts        tts.Synthesizer
	cfg        Config
	logger     *logger.Logger

	mu       sync.Mutex
	state    State
	history  []llm.ChatMessage
	failures int
}

// New creates an engine bound to one call session.
func New(client llm.Client, dispatcher Dispatcher, synth tts.Synthesizer, cfg Config, log *logger.Logger) *Engine {
	if cfg.MaxFunctionRounds <= 0 {
		cfg.MaxFunctionRounds = 5
	}
	if cfg.MaxTurnFailures <= 0 {
		cfg.MaxTurnFailures = 3
	}
	return &Engine{
		llm:        client,
		dispatcher: dispatcher,
		tts:        synth,
		cfg:        cfg,
		logger:     log,
		state:      StateWaitForUser,
	}
}

// State returns the current turn-machine state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Turns returns the session's ordered conversation turns so far.
func (e *Engine) Turns() []model.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()

	turns := make([]model.Turn, 0, len(e.history))
	for _, m := range e.history {
		switch m.Role {
		case llm.RoleUser:
			turns = append(turns, model.Turn{Role: model.RoleUser, Content: m.Content})
		case llm.RoleAssistant:
			turns = append(turns, model.Turn{Role: model.RoleAgent, Content: m.Content})
		case llm.RoleTool:
			turns = append(turns, model.Turn{
				Role:       model.RoleFunction,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return turns
}

// Run processes caller utterances until the context is cancelled, the
// utterance channel closes, or consecutive failures become fatal. Audio
// for the caller is emitted on audioOut in speaking order.
func (e *Engine) Run(ctx context.Context, utterances <-chan stt.Utterance, audioOut chan<- []byte) error {
	defer e.setState(StateEnded)

	for {
		text, err := e.listen(ctx, utterances)
		if err != nil {
			return err
		}
		if text == "" {
			// Channel closed: the stream ended.
			return nil
		}

		e.appendMessage(llm.ChatMessage{Role: llm.RoleUser, Content: text})

		if err := e.takeTurn(ctx, audioOut); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			e.mu.Lock()
			e.failures++
			failures := e.failures
			e.mu.Unlock()

			e.logger.Warn("turn failed",
				zap.Error(err),
				zap.Int("consecutive_failures", failures),
			)

			if failures >= e.cfg.MaxTurnFailures {
				return fmt.Errorf("%w: %v", ErrSessionFatal, err)
			}

			e.speakFallback(ctx, audioOut)
			continue
		}

		e.mu.Lock()
		e.failures = 0
		e.mu.Unlock()
	}
}

// listen accumulates transcription until an end-of-utterance signal. It
// returns "" without error when the utterance channel closes.
func (e *Engine) listen(ctx context.Context, utterances <-chan stt.Utterance) (string, error) {
	if e.State() != StateWaitForUser {
		e.setState(StateListening)
	}

	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case u, ok := <-utterances:
			if !ok {
				return "", nil
			}
			// The first utterance moves the engine out of WaitForUser;
			// this happens exactly once per session.
			if e.State() == StateWaitForUser {
				e.setState(StateListening)
			}
			partial.WriteString(u.Text)
			if u.Final {
				text := strings.TrimSpace(partial.String())
				if text == "" {
					partial.Reset()
					continue
				}
				return text, nil
			}
		}
	}
}

// takeTurn runs think -> (function rounds) -> speak for the latest user
// utterance.
func (e *Engine) takeTurn(ctx context.Context, audioOut chan<- []byte) error {
	e.setState(StateThinking)

	var reply string
	for round := 0; ; round++ {
		resp, err := e.llm.Chat(ctx, &llm.ChatRequest{
			Model:       e.cfg.Model,
			System:      e.cfg.SystemPrompt,
			Messages:    e.messages(),
			Tools:       e.dispatcher.Definitions(),
			Temperature: e.cfg.Temperature,
		})
		if err != nil {
			metrics.RecordLLMRequest(e.llm.Name(), "error", 0, 0, 0)
			metrics.TurnFailuresTotal.WithLabelValues("thinking").Inc()
			return fmt.Errorf("thinking: %w", err)
		}
		metrics.RecordLLMRequest(e.llm.Name(), "ok",
			float64(resp.LatencyMs)/1000, resp.TokensIn, resp.TokensOut)

		if len(resp.ToolCalls) == 0 {
			reply = resp.Content
			break
		}

		if round >= e.cfg.MaxFunctionRounds {
			return ErrFunctionLoopExceeded
		}

		e.setState(StateFunctionCalling)
		e.appendMessage(llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Calls run in the order the model requested them.
		for _, tc := range resp.ToolCalls {
			result := e.dispatcher.Dispatch(ctx, tc.Name, tc.Arguments)
			encoded, err := json.Marshal(result)
			if err != nil {
				encoded = []byte(`{"status":"error","code":"encoding_failed"}`)
			}
			e.appendMessage(llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    string(encoded),
				Name:       tc.Name,
				ToolCallID: tc.ID,
			})
		}

		e.setState(StateThinking)
	}

	if strings.TrimSpace(reply) == "" {
		e.setState(StateListening)
		return nil
	}

	e.setState(StateSpeaking)
	audio, err := e.tts.Synthesize(ctx, reply)
	if err != nil {
		metrics.TurnFailuresTotal.WithLabelValues("speaking").Inc()
		return fmt.Errorf("speaking: %w", err)
	}

	if err := e.emit(ctx, audioOut, audio); err != nil {
		return err
	}

	e.appendMessage(llm.ChatMessage{Role: llm.RoleAssistant, Content: reply})
	e.setState(StateListening)
	return nil
}

// speakFallback emits the apologetic fallback after a failed turn. Best
// effort: synthesis errors here are logged, not escalated.
func (e *Engine) speakFallback(ctx context.Context, audioOut chan<- []byte) {
	audio, err := e.tts.Synthesize(ctx, fallbackUtterance)
	if err != nil {
		e.logger.Warn("fallback synthesis failed", zap.Error(err))
		return
	}
	if err := e.emit(ctx, audioOut, audio); err != nil {
		return
	}
	e.appendMessage(llm.ChatMessage{Role: llm.RoleAssistant, Content: fallbackUtterance})
	e.setState(StateListening)
}

func (e *Engine) emit(ctx context.Context, audioOut chan<- []byte, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	select {
	case audioOut <- audio:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) appendMessage(m llm.ChatMessage) {
	e.mu.Lock()
	e.history = append(e.history, m)
	e.mu.Unlock()
}

func (e *Engine) messages() []llm.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]llm.ChatMessage, len(e.history))
	copy(out, e.history)
	return out
}
