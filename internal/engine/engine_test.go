package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/goldenspoon/voiceline/internal/llm"
	"github.com/goldenspoon/voiceline/internal/model"
	"github.com/goldenspoon/voiceline/internal/stt"
	"github.com/goldenspoon/voiceline/pkg/logger"
)

type scripted struct {
	resp *llm.ChatResponse
	err  error
}

type fakeLLM struct {
	script []scripted
	calls  int
}

func (f *fakeLLM) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if len(f.script) == 0 {
		return &llm.ChatResponse{Content: "Of course."}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.resp, next.err
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

type fakeTTS struct {
	err error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(text), nil
}

func (f *fakeTTS) Close() error { return nil }

type fakeDispatcher struct {
	dispatched []string
	result     *model.FunctionCallResult
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) *model.FunctionCallResult {
	f.dispatched = append(f.dispatched, name)
	if f.result != nil {
		return f.result
	}
	return &model.FunctionCallResult{Status: model.FunctionOK, Payload: map[string]any{"ok": true}}
}

func (f *fakeDispatcher) Definitions() []llm.ToolDefinition { return nil }

func newTestEngine(t *testing.T, client llm.Client, disp Dispatcher, synth *fakeTTS, cfg Config) *Engine {
	t.Helper()
	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return New(client, disp, synth, cfg, log)
}

// run feeds the utterances, closes the channel, and drains emitted audio.
func run(t *testing.T, e *Engine, texts []string) ([]string, error) {
	t.Helper()

	utterances := make(chan stt.Utterance, len(texts))
	for _, text := range texts {
		utterances <- stt.Utterance{Text: text, Final: true}
	}
	close(utterances)

	audioOut := make(chan []byte, 16)
	err := e.Run(context.Background(), utterances, audioOut)
	close(audioOut)

	var spoken []string
	for clip := range audioOut {
		spoken = append(spoken, string(clip))
	}
	return spoken, err
}

func TestEngineStartsWaiting(t *testing.T) {
	e := newTestEngine(t, &fakeLLM{}, &fakeDispatcher{}, &fakeTTS{}, Config{})
	if e.State() != StateWaitForUser {
		t.Errorf("initial state = %s, want %s", e.State(), StateWaitForUser)
	}
	if len(e.Turns()) != 0 {
		t.Errorf("fresh engine has %d turns", len(e.Turns()))
	}
}

func TestEngineNeverSpeaksFirst(t *testing.T) {
	client := &fakeLLM{}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{})

	// Stream ends without the caller ever speaking.
	spoken, err := run(t, e, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(spoken) != 0 {
		t.Errorf("engine spoke %d clips with no user turn", len(spoken))
	}
	if client.calls != 0 {
		t.Errorf("model was consulted %d times with no user turn", client.calls)
	}
}

func TestEngineTurnCycle(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{resp: &llm.ChatResponse{Content: "We open at eleven."}},
	}}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{})

	spoken, err := run(t, e, []string{"What time do you open?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(spoken) != 1 || spoken[0] != "We open at eleven." {
		t.Errorf("spoken = %v", spoken)
	}

	turns := e.Turns()
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Role != model.RoleUser || turns[0].Content != "What time do you open?" {
		t.Errorf("turn 0 = %+v", turns[0])
	}
	if turns[1].Role != model.RoleAgent || turns[1].Content != "We open at eleven." {
		t.Errorf("turn 1 = %+v", turns[1])
	}
	if e.State() != StateEnded {
		t.Errorf("state after Run = %s, want %s", e.State(), StateEnded)
	}
}

func TestEngineDispatchesFunctionsInOrder(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "check_availability", Arguments: json.RawMessage(`{"date":"2026-09-04","time":"19:00","guests":4}`)},
			{ID: "call_2", Name: "get_restaurant_info", Arguments: json.RawMessage(`{"info_type":"hours"}`)},
		}}},
		{resp: &llm.ChatResponse{Content: "Yes, we have a table."}},
	}}
	disp := &fakeDispatcher{}
	e := newTestEngine(t, client, disp, &fakeTTS{}, Config{})

	spoken, err := run(t, e, []string{"Do you have a table for four tonight?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(disp.dispatched) != 2 ||
		disp.dispatched[0] != "check_availability" ||
		disp.dispatched[1] != "get_restaurant_info" {
		t.Errorf("dispatched = %v", disp.dispatched)
	}
	if len(spoken) != 1 || spoken[0] != "Yes, we have a table." {
		t.Errorf("spoken = %v", spoken)
	}

	// Function results are threaded into the history by call ID.
	turns := e.Turns()
	var toolTurns []model.Turn
	for _, turn := range turns {
		if turn.Role == model.RoleFunction {
			toolTurns = append(toolTurns, turn)
		}
	}
	if len(toolTurns) != 2 {
		t.Fatalf("function turns = %d, want 2", len(toolTurns))
	}
	if toolTurns[0].ToolCallID != "call_1" || toolTurns[1].ToolCallID != "call_2" {
		t.Errorf("tool call IDs = %q, %q", toolTurns[0].ToolCallID, toolTurns[1].ToolCallID)
	}
}

func TestEngineFunctionLoopCapped(t *testing.T) {
	// The model endlessly requests the same function.
	loopCall := scripted{resp: &llm.ChatResponse{ToolCalls: []llm.ToolCall{
		{ID: "loop", Name: "check_availability", Arguments: json.RawMessage(`{}`)},
	}}}
	var script []scripted
	for i := 0; i < 20; i++ {
		script = append(script, loopCall)
	}
	client := &fakeLLM{script: script}
	disp := &fakeDispatcher{}
	e := newTestEngine(t, client, disp, &fakeTTS{}, Config{MaxFunctionRounds: 2, MaxTurnFailures: 1})

	_, err := run(t, e, []string{"Book me a table."})
	if !errors.Is(err, ErrSessionFatal) {
		t.Fatalf("err = %v, want ErrSessionFatal", err)
	}
	if len(disp.dispatched) != 2 {
		t.Errorf("dispatched %d calls, want 2 (round cap)", len(disp.dispatched))
	}
}

func TestEngineRecoversFromTurnFailures(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{err: errors.New("model unavailable")},
		{resp: &llm.ChatResponse{Content: "Sorry about that. How can I help?"}},
	}}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{MaxTurnFailures: 3})

	spoken, err := run(t, e, []string{"Hello?", "Can you hear me?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// First turn speaks the fallback, second succeeds.
	if len(spoken) != 2 {
		t.Fatalf("spoken = %v", spoken)
	}
	if spoken[0] != fallbackUtterance {
		t.Errorf("first clip = %q, want fallback", spoken[0])
	}
	if spoken[1] != "Sorry about that. How can I help?" {
		t.Errorf("second clip = %q", spoken[1])
	}
}

func TestEngineFatalAfterConsecutiveFailures(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{err: errors.New("model unavailable")},
		{err: errors.New("model unavailable")},
		{err: errors.New("model unavailable")},
	}}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{MaxTurnFailures: 3})

	spoken, err := run(t, e, []string{"Hello?", "Hello?", "Hello?"})
	if !errors.Is(err, ErrSessionFatal) {
		t.Fatalf("err = %v, want ErrSessionFatal", err)
	}
	// Two fallbacks before the third failure became fatal.
	if len(spoken) != 2 {
		t.Errorf("spoken %d clips, want 2 fallbacks", len(spoken))
	}
}

func TestEngineSuccessResetsFailureBudget(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{err: errors.New("blip")},
		{err: errors.New("blip")},
		{resp: &llm.ChatResponse{Content: "Back with you."}},
		{err: errors.New("blip")},
		{err: errors.New("blip")},
		{resp: &llm.ChatResponse{Content: "Still here."}},
	}}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{MaxTurnFailures: 3})

	_, err := run(t, e, []string{"a", "b", "c", "d", "e", "f"})
	if err != nil {
		t.Fatalf("Run: %v (failure budget should reset on success)", err)
	}
}

func TestEngineSynthesisFailureCountsAsTurnFailure(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{resp: &llm.ChatResponse{Content: "Reply one."}},
		{resp: &llm.ChatResponse{Content: "Reply two."}},
		{resp: &llm.ChatResponse{Content: "Reply three."}},
	}}
	synth := &fakeTTS{err: errors.New("voice service down")}
	e := newTestEngine(t, client, &fakeDispatcher{}, synth, Config{MaxTurnFailures: 3})

	_, err := run(t, e, []string{"a", "b", "c"})
	if !errors.Is(err, ErrSessionFatal) {
		t.Fatalf("err = %v, want ErrSessionFatal", err)
	}
}

func TestEngineEmptyReplySkipsSpeaking(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{resp: &llm.ChatResponse{Content: "   "}},
	}}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{})

	spoken, err := run(t, e, []string{"..."})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(spoken) != 0 {
		t.Errorf("spoken = %v, want none", spoken)
	}
}

func TestEngineAccumulatesPartialUtterances(t *testing.T) {
	client := &fakeLLM{script: []scripted{
		{resp: &llm.ChatResponse{Content: "A table for two, got it."}},
	}}
	e := newTestEngine(t, client, &fakeDispatcher{}, &fakeTTS{}, Config{})

	utterances := make(chan stt.Utterance, 4)
	utterances <- stt.Utterance{Text: "A table "}
	utterances <- stt.Utterance{Text: "for two ", Final: false}
	utterances <- stt.Utterance{Text: "please", Final: true}
	close(utterances)

	audioOut := make(chan []byte, 4)
	if err := e.Run(context.Background(), utterances, audioOut); err != nil {
		t.Fatalf("Run: %v", err)
	}

	turns := e.Turns()
	if len(turns) == 0 || turns[0].Content != "A table for two please" {
		t.Errorf("turns = %+v", turns)
	}
}
