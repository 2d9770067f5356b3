package stt

import (
	"context"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/goldenspoon/voiceline/pkg/logger"
)

type fakeRecognizeClient struct {
	speechpb.Speech_StreamingRecognizeClient
	resps chan *speechpb.StreamingRecognizeResponse
}

func (f *fakeRecognizeClient) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	resp, ok := <-f.resps
	if !ok {
		return nil, io.EOF
	}
	return resp, nil
}

func finalResult(text string) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal: true,
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{
				Transcript: text,
			}},
		}},
	}
}

func TestRecvLoopDeliversFinalResults(t *testing.T) {
	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	rec := &fakeRecognizeClient{resps: make(chan *speechpb.StreamingRecognizeResponse, 2)}
	rec.resps <- finalResult("hello")
	rec.resps <- &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{IsFinal: false}},
	}
	close(rec.resps)

	gs := &googleStream{rec: rec, results: make(chan Utterance, 16)}
	go gs.recvLoop(context.Background(), log)

	var got []Utterance
	for u := range gs.results {
		got = append(got, u)
	}
	if len(got) != 1 || got[0].Text != "hello" || !got[0].Final {
		t.Errorf("results = %+v, want one final \"hello\"", got)
	}
}

func TestRecvLoopReleasedByCancellation(t *testing.T) {
	log, err := logger.New("error")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	rec := &fakeRecognizeClient{resps: make(chan *speechpb.StreamingRecognizeResponse, 8)}
	for i := 0; i < 8; i++ {
		rec.resps <- finalResult("pending")
	}

	// Nothing drains results, so the loop blocks once the buffer fills.
	ctx, cancel := context.WithCancel(context.Background())
	gs := &googleStream{rec: rec, results: make(chan Utterance, 1)}

	done := make(chan struct{})
	go func() {
		gs.recvLoop(ctx, log)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recvLoop did not exit after cancellation")
	}
}
