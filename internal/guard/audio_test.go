package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/wardenhq/warden/pkg/provider/llm"
	llmmock "github.com/wardenhq/warden/pkg/provider/llm/mock"
	"github.com/wardenhq/warden/pkg/provider/stt"
	sttmock "github.com/wardenhq/warden/pkg/provider/stt/mock"
)

func TestOnAudioWithoutTranscriberFails(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &llmmock.Provider{})
	if _, err := e.OnAudio(context.Background(), []float32{0}); !errors.Is(err, ErrNoTranscriber) {
		t.Fatalf("err: want ErrNoTranscriber, got %v", err)
	}
}

func TestOnAudioGatesNonSpeech(t *testing.T) {
	t.Parallel()

	responder := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Who goes there?"},
	}
	scribe := &sttmock.Provider{
		Result: stt.Transcript{Text: "wind noise", NoSpeechProb: 0.92},
	}
	e := newTestEngine(t, responder, WithTranscriber(scribe))

	reply, err := e.OnAudio(context.Background(), make([]float32, 16000))
	if err != nil {
		t.Fatalf("OnAudio: %v", err)
	}
	if reply != e.params.InvalidInputReply {
		t.Errorf("reply: want invalid-input line, got %q", reply)
	}
	if got := e.esc.Level(); got != 0 {
		t.Errorf("escalation level: want 0, got %d", got)
	}
	if len(responder.CompleteCalls) != 0 {
		t.Errorf("responder calls: want 0, got %d", len(responder.CompleteCalls))
	}
}

func TestOnAudioRunsDialogueTurn(t *testing.T) {
	t.Parallel()

	responder := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Identify yourself."},
	}
	scribe := &sttmock.Provider{
		Result: stt.Transcript{Text: "let me in", NoSpeechProb: 0.05},
	}
	e := newTestEngine(t, responder, WithTranscriber(scribe))

	reply, err := e.OnAudio(context.Background(), make([]float32, 16000))
	if err != nil {
		t.Fatalf("OnAudio: %v", err)
	}
	if reply != "Identify yourself." {
		t.Errorf("reply: got %q", reply)
	}
	if got := e.esc.Level(); got != 1 {
		t.Errorf("escalation level: want 1, got %d", got)
	}
	if len(scribe.TranscribeCalls) != 1 {
		t.Fatalf("transcribe calls: want 1, got %d", len(scribe.TranscribeCalls))
	}
	if got := len(scribe.TranscribeCalls[0].Samples); got != 16000 {
		t.Errorf("samples forwarded: want 16000, got %d", got)
	}
}

func TestOnAudioTranscribeError(t *testing.T) {
	t.Parallel()

	responder := &llmmock.Provider{}
	scribe := &sttmock.Provider{TranscribeErr: errors.New("model gone")}
	e := newTestEngine(t, responder, WithTranscriber(scribe))

	if _, err := e.OnAudio(context.Background(), []float32{0}); err == nil {
		t.Fatal("want transcription error")
	}
	if len(responder.CompleteCalls) != 0 {
		t.Errorf("responder calls: want 0, got %d", len(responder.CompleteCalls))
	}
}
