// Package vision defines the Classifier interface for per-frame identity
// classification backends.
//
// A classifier wraps an external face detection/matching pipeline and
// surfaces it as a single callable: one invocation per sensing cycle,
// returning a discrete trust label for whoever is currently in front of the
// sensor. How faces are encoded or compared is the implementation's
// business; the guard engine only consumes labels.
//
// Implementations must be safe for concurrent use, although the sensing
// loop is the only production caller and invokes Classify sequentially.
package vision

import "context"

// Label is the discrete per-frame classification outcome.
type Label int

const (
	// LabelNoSignal means the frame contained no usable identity signal
	// (no face detected, or the sensing hardware produced no frame content).
	LabelNoSignal Label = iota

	// LabelTrusted means at least one face in the frame matched a trusted
	// identity.
	LabelTrusted

	// LabelUntrusted means faces were present but none matched a trusted
	// identity.
	LabelUntrusted
)

// String returns the human-readable name of the label.
func (l Label) String() string {
	switch l {
	case LabelTrusted:
		return "trusted"
	case LabelUntrusted:
		return "untrusted"
	case LabelNoSignal:
		return "no-signal"
	default:
		return "unknown"
	}
}

// Result is the outcome of classifying one sensor frame.
type Result struct {
	// Label is the trust classification for this frame.
	Label Label

	// Confidence is an optional score in [0.0, 1.0]. Implementations that
	// have no meaningful confidence report 0.
	Confidence float64

	// Subject is the matched trusted identity name when Label is
	// LabelTrusted. Empty otherwise.
	Subject string
}

// Classifier is the abstraction over any per-frame identity classifier.
//
// Classify may perform I/O (camera read, model inference, database lookup)
// and must respect context cancellation. A non-nil error means the sensing
// resource failed to produce a classifiable frame this cycle; callers treat
// it as a recoverable sensing failure, not a verdict.
type Classifier interface {
	// Classify captures and classifies the current sensor frame.
	Classify(ctx context.Context) (Result, error)

	// Close releases the underlying sensing resource (camera handle, model
	// context). Calling Close more than once is safe and returns nil.
	Close() error
}
