// Package guard implements the trust aggregation and escalation engine.
//
// A background sensing loop (the [Sentinel]) classifies the scene once per
// cadence and feeds discrete observations into a time-bounded sliding
// window (the [Aggregator]). The window's majority vote drives a debounced
// [VerificationState], and the [EscalationController] escalates the guard's
// dialogue posture for every chat turn that happens while unverified.
//
// The engine is constructed once at startup ([New]) and torn down once at
// shutdown; there is no package-level state.
package guard

import (
	"time"

	"github.com/wardenhq/warden/pkg/provider/vision"
)

// Observation is a single timestamped classifier outcome. It is immutable
// once created and owned by the Aggregator's window after ingestion.
type Observation struct {
	// Timestamp is when the classification was taken. The sensing loop is
	// the single producer and guarantees non-decreasing timestamps; the
	// Aggregator relies on this ordering and does not defend against
	// violations.
	Timestamp time.Time

	// Label is the classifier's trust outcome for this cycle.
	Label vision.Label
}
