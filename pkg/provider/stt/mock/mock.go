// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/wardenhq/warden/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the PCM window passed to Transcribe.
	Samples []float32
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call.
	Result stt.Transcript

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Transcribe records the call and returns Result, TranscribeErr.
func (p *Provider) Transcribe(_ context.Context, samples []float32) (stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Samples: cp})
	return p.Result, p.TranscribeErr
}

// Close records the call and returns CloseErr.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCallCount++
	return p.CloseErr
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
