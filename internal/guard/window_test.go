package guard

import (
	"testing"
	"time"

	"github.com/wardenhq/warden/pkg/provider/vision"
)

// fakeClock is a controllable time source for Aggregator tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time              { return c.t }
func (c *fakeClock) advance(d time.Duration)     { c.t = c.t.Add(d) }
func (c *fakeClock) obs(l vision.Label) Observation {
	return Observation{Timestamp: c.t, Label: l}
}

func newTestAggregator(window time.Duration, threshold float64) (*Aggregator, *fakeClock) {
	clock := newFakeClock()
	a := NewAggregator(window, threshold, false)
	a.now = clock.now
	return a, clock
}

func TestAggregatorMajorityVote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		labels []vision.Label
		want   bool
	}{
		{
			name:   "single trusted observation",
			labels: []vision.Label{vision.LabelTrusted},
			want:   true,
		},
		{
			name:   "single untrusted observation",
			labels: []vision.Label{vision.LabelUntrusted},
			want:   false,
		},
		{
			name:   "one third trusted is untrusted",
			labels: []vision.Label{vision.LabelTrusted, vision.LabelUntrusted, vision.LabelUntrusted},
			want:   false,
		},
		{
			name:   "exact tie verifies",
			labels: []vision.Label{vision.LabelTrusted, vision.LabelUntrusted},
			want:   true,
		},
		{
			name:   "no-signal counts as non-trusted",
			labels: []vision.Label{vision.LabelTrusted, vision.LabelNoSignal, vision.LabelNoSignal},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, clock := newTestAggregator(3*time.Second, 0.5)
			var verdict bool
			for _, l := range tt.labels {
				verdict = a.Ingest(clock.obs(l))
				clock.advance(100 * time.Millisecond)
			}
			if verdict != tt.want {
				t.Errorf("ingest verdict: want %v, got %v", tt.want, verdict)
			}
			if got := a.Verdict(); got != tt.want {
				t.Errorf("Verdict(): want %v, got %v", tt.want, got)
			}
		})
	}
}

// Four trusted observations within one second verify; four seconds of
// silence afterwards empty the window and the verdict fails closed.
func TestAggregatorDecaysToUntrusted(t *testing.T) {
	t.Parallel()

	a, clock := newTestAggregator(3*time.Second, 0.5)

	for i := 0; i < 4; i++ {
		if !a.Ingest(clock.obs(vision.LabelTrusted)) {
			t.Fatalf("verdict after trusted ingest %d: want true", i+1)
		}
		clock.advance(250 * time.Millisecond)
	}

	clock.advance(4 * time.Second)
	if a.Verdict() {
		t.Fatal("verdict after 4s of silence: want false")
	}
}

func TestAggregatorEvictsStaleEntries(t *testing.T) {
	t.Parallel()

	a, clock := newTestAggregator(3*time.Second, 0.5)

	a.Ingest(clock.obs(vision.LabelTrusted))
	clock.advance(5 * time.Second)

	// The old trusted entry is stale; the fresh untrusted entry is alone in
	// the window.
	if a.Ingest(clock.obs(vision.LabelUntrusted)) {
		t.Fatal("verdict: want false after stale eviction")
	}
	if n := a.Len(); n != 1 {
		t.Fatalf("window length: want 1, got %d", n)
	}
}

// A window that went entirely stale (e.g. after process suspension) must
// collapse to empty without error.
func TestAggregatorFullStaleFlush(t *testing.T) {
	t.Parallel()

	a, clock := newTestAggregator(3*time.Second, 0.5)

	for i := 0; i < 5; i++ {
		a.Ingest(clock.obs(vision.LabelTrusted))
		clock.advance(100 * time.Millisecond)
	}

	clock.advance(time.Hour)
	a.Ingest(clock.obs(vision.LabelUntrusted))
	if n := a.Len(); n != 1 {
		t.Fatalf("window length after full flush: want 1, got %d", n)
	}
}

func TestAggregatorFailOpen(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	a := NewAggregator(3*time.Second, 0.5, true)
	a.now = clock.now

	if !a.Verdict() {
		t.Fatal("empty window with fail_open: want true")
	}
}

func TestAggregatorEmptyWindowFailsClosed(t *testing.T) {
	t.Parallel()

	a, _ := newTestAggregator(3*time.Second, 0.5)
	if a.Verdict() {
		t.Fatal("empty window: want false")
	}
}

// A lone trusted observation outvoted by two untrusted ones inside the
// window yields an untrusted verdict.
func TestAggregatorScenarioOneOfThree(t *testing.T) {
	t.Parallel()

	a, clock := newTestAggregator(3*time.Second, 0.5)

	a.Ingest(clock.obs(vision.LabelTrusted))
	clock.advance(time.Second)
	a.Ingest(clock.obs(vision.LabelUntrusted))
	clock.advance(time.Second)
	if a.Ingest(clock.obs(vision.LabelUntrusted)) {
		t.Fatal("verdict: want false for trusted fraction 1/3")
	}
}
