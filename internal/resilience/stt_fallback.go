package resilience

import (
	"context"
	"errors"

	"github.com/wardenhq/warden/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the transcription against the first healthy provider. If the
// primary fails, subsequent fallbacks are tried with the same samples.
func (f *STTFallback) Transcribe(ctx context.Context, samples []float32) (stt.Transcript, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (stt.Transcript, error) {
		return p.Transcribe(ctx, samples)
	})
}

// Close releases every backend in the group, joining their errors.
func (f *STTFallback) Close() error {
	var errs []error
	for i := range f.group.entries {
		if err := f.group.entries[i].value.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
