package guard

import (
	"sync"
	"time"

	"github.com/wardenhq/warden/pkg/provider/vision"
)

// Aggregator smooths the noisy per-cycle classifier signal into a stable
// trust verdict using a time-bounded sliding window with a majority vote.
//
// The window is exclusively owned by the Aggregator: [Aggregator.Ingest] is
// the only mutation path, and the sensing loop is its single producer.
// [Aggregator.Verdict] may be called concurrently from other goroutines.
type Aggregator struct {
	mu        sync.Mutex
	window    []Observation
	maxAge    time.Duration
	threshold float64
	failOpen  bool

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewAggregator creates an Aggregator retaining observations for maxAge and
// reporting a verified verdict when the trusted fraction of the window is at
// least threshold. failOpen selects the verdict for an empty window; the
// production default is false (fail-closed/untrusted).
func NewAggregator(maxAge time.Duration, threshold float64, failOpen bool) *Aggregator {
	return &Aggregator{
		maxAge:    maxAge,
		threshold: threshold,
		failOpen:  failOpen,
		now:       time.Now,
	}
}

// Ingest appends o to the window, evicts observations older than the window
// duration, and returns the recomputed verdict.
func (a *Aggregator) Ingest(o Observation) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.window = append(a.window, o)
	a.evict()
	return a.vote(a.window)
}

// Verdict returns the current verdict without mutating the window. Stale
// observations are excluded from the vote, so the verdict decays toward the
// fail-closed default as the sensing signal goes quiet, even between
// ingests.
func (a *Aggregator) Verdict() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-a.maxAge)
	live := a.window
	for len(live) > 0 && live[0].Timestamp.Before(cutoff) {
		live = live[1:]
	}
	return a.vote(live)
}

// Len reports the number of retained observations. Intended for tests and
// the status endpoint.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.window)
}

// evict drops observations older than maxAge from the front of the window.
// A fully stale window collapses to empty; that is a valid state, not an
// error. Must be called with a.mu held.
//
// Surviving observations are copied to a fresh backing array so evicted
// entries do not pin memory for the process lifetime.
func (a *Aggregator) evict() {
	cutoff := a.now().Add(-a.maxAge)

	start := 0
	for start < len(a.window) && a.window[start].Timestamp.Before(cutoff) {
		start++
	}
	if start == 0 {
		return
	}

	fresh := make([]Observation, len(a.window)-start)
	copy(fresh, a.window[start:])
	a.window = fresh
}

// vote computes the windowed majority verdict. NoSignal observations count
// toward the total as non-trusted, so a signal outage drives the verdict
// toward untrusted as trusted observations age out. The comparison is >=,
// so an exact tie verifies; tests depend on this tie-break.
func (a *Aggregator) vote(window []Observation) bool {
	if len(window) == 0 {
		return a.failOpen
	}

	trusted := 0
	for _, o := range window {
		if o.Label == vision.LabelTrusted {
			trusted++
		}
	}
	return float64(trusted)/float64(len(window)) >= a.threshold
}
