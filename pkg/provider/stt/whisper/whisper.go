// Package whisper implements stt.Provider using the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/wardenhq/warden/pkg/provider/stt"
)

// defaultLanguage is the BCP-47 language code used when none is configured.
const defaultLanguage = "en"

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider with a locally loaded whisper.cpp model.
// The model is loaded once at startup and shared across all Transcribe
// calls; each call creates its own whisper context, so concurrent calls are
// safe.
type Provider struct {
	model    whisperlib.Model
	language string

	closeOnce sync.Once
	closeErr  error
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription (e.g., "en",
// "de"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		if lang != "" {
			p.language = lang
		}
	}
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Provider. Samples must be 16 kHz mono float32
// in [-1, 1].
func (p *Provider) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if len(samples) == 0 {
		return stt.Transcript{NoSpeechProb: 1}, nil
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines; create a fresh context per inference.
	wctx, err := p.model.NewContext()
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	out := stt.Transcript{Text: strings.Join(parts, " ")}
	if out.Text == "" {
		out.NoSpeechProb = 1
	}
	return out, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.model != nil {
			p.closeErr = p.model.Close()
		}
	})
	return p.closeErr
}
