package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/observe"
	"github.com/wardenhq/warden/pkg/provider/stt"
)

// noSpeechCeiling is the transcription gate: windows the model scores at or
// above this no-speech probability are discarded without a dialogue turn.
const noSpeechCeiling = 0.5

// ErrNoTranscriber is returned by OnAudio when the engine was built without
// a speech-to-text provider.
var ErrNoTranscriber = errors.New("guard: no transcriber configured")

// WithTranscriber enables the audio turn path. Without it, OnAudio fails
// and callers must use OnUserUtterance directly.
func WithTranscriber(p stt.Provider) Option {
	return func(e *Engine) { e.scribe = p }
}

// OnAudio transcribes one window of mono float32 PCM samples and runs the
// result through a dialogue turn. Windows that the model considers to hold
// no speech are answered with the invalid-input line and do not escalate.
func (e *Engine) OnAudio(ctx context.Context, samples []float32) (string, error) {
	if e.scribe == nil {
		return "", ErrNoTranscriber
	}

	start := time.Now()
	t, err := e.scribe.Transcribe(ctx, samples)
	e.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		e.metrics.RecordProviderError(ctx, "transcriber", "stt")
		return "", fmt.Errorf("guard: transcribe: %w", err)
	}

	if t.NoSpeechProb >= noSpeechCeiling {
		observe.Logger(ctx).Debug("audio window gated as non-speech",
			"no_speech_prob", t.NoSpeechProb)
		return e.params.InvalidInputReply, nil
	}
	return e.OnUserUtterance(ctx, t.Text)
}
