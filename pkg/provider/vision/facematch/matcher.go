// Package facematch implements vision.Classifier by matching per-frame face
// encodings against a store of trusted encodings.
//
// The matcher composes three collaborators, all opaque behind interfaces:
// a [FrameSource] (the exclusively-held camera resource), an [Encoder]
// (external face detection + embedding model), and a [facestore.Store] of
// enrolled trusted encodings. A frame is Trusted when any detected face is
// within the configured cosine-distance tolerance of any trusted encoding.
package facematch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wardenhq/warden/pkg/facestore"
	"github.com/wardenhq/warden/pkg/provider/vision"
)

// defaultTolerance is the maximum cosine distance for a face to count as a
// trusted match. Lower is stricter.
const defaultTolerance = 0.6

// FrameSource produces raw sensor frames. It owns the underlying capture
// device exclusively; Close must release it.
type FrameSource interface {
	// Frame captures the current frame. An error means the device produced
	// nothing this cycle (sensing failure).
	Frame(ctx context.Context) ([]byte, error)

	// Close releases the capture device. Safe to call more than once.
	Close() error
}

// Encoder turns a raw frame into zero or more face embedding vectors, one
// per detected face. A frame with no faces yields an empty slice and a nil
// error.
type Encoder interface {
	Encode(ctx context.Context, frame []byte) ([][]float32, error)
}

// Matcher implements [vision.Classifier]. It is safe for concurrent use,
// though the sensing loop is the only production caller.
type Matcher struct {
	frames    FrameSource
	encoder   Encoder
	store     facestore.Store
	tolerance float64

	closeOnce sync.Once
	closeErr  error
}

// Compile-time interface check.
var _ vision.Classifier = (*Matcher)(nil)

// Option is a functional option for configuring a Matcher.
type Option func(*Matcher)

// WithTolerance sets the maximum cosine distance for a trusted match.
// Default: 0.6.
func WithTolerance(t float64) Option {
	return func(m *Matcher) {
		if t > 0 {
			m.tolerance = t
		}
	}
}

// New constructs a Matcher from its collaborators.
func New(frames FrameSource, encoder Encoder, store facestore.Store, opts ...Option) (*Matcher, error) {
	if frames == nil {
		return nil, errors.New("facematch: frame source must not be nil")
	}
	if encoder == nil {
		return nil, errors.New("facematch: encoder must not be nil")
	}
	if store == nil {
		return nil, errors.New("facematch: store must not be nil")
	}

	m := &Matcher{
		frames:    frames,
		encoder:   encoder,
		store:     store,
		tolerance: defaultTolerance,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Classify implements [vision.Classifier].
//
// No frame → error (the cycle is skipped upstream). No detected faces →
// LabelNoSignal. Any face within tolerance of a trusted encoding →
// LabelTrusted with the matched name. Faces present but none matching →
// LabelUntrusted.
func (m *Matcher) Classify(ctx context.Context) (vision.Result, error) {
	frame, err := m.frames.Frame(ctx)
	if err != nil {
		return vision.Result{}, fmt.Errorf("facematch: capture frame: %w", err)
	}

	encodings, err := m.encoder.Encode(ctx, frame)
	if err != nil {
		return vision.Result{}, fmt.Errorf("facematch: encode frame: %w", err)
	}
	if len(encodings) == 0 {
		return vision.Result{Label: vision.LabelNoSignal}, nil
	}

	best := vision.Result{Label: vision.LabelUntrusted}
	for _, enc := range encodings {
		matches, err := m.store.Nearest(ctx, enc, 1)
		if err != nil {
			return vision.Result{}, fmt.Errorf("facematch: nearest lookup: %w", err)
		}
		if len(matches) == 0 {
			continue
		}
		if d := matches[0].Distance; d <= m.tolerance {
			confidence := 1 - d/m.tolerance
			if best.Label != vision.LabelTrusted || confidence > best.Confidence {
				best = vision.Result{
					Label:      vision.LabelTrusted,
					Confidence: confidence,
					Subject:    matches[0].Name,
				}
			}
		}
	}
	return best, nil
}

// Close releases the frame source. The encoder and store are shared
// collaborators owned by the caller.
func (m *Matcher) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.frames.Close()
	})
	return m.closeErr
}
