package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/observe"
	"github.com/wardenhq/warden/pkg/provider/vision"
)

// defaultCadence is the pause between sensing cycles.
const defaultCadence = 10 * time.Second

// Sentinel drives the sensing loop: every cadence it asks the classifier
// for the current label, feeds the observation into the aggregator, and
// publishes the resulting verdict to the verification state. It is the
// sole producer of observations.
type Sentinel struct {
	classifier vision.Classifier
	agg        *Aggregator
	state      *VerificationState
	metrics    *observe.Metrics

	cadence     time.Duration
	maxFailures int

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once

	// fatalErr receives the terminal error when consecutive classifier
	// failures exceed maxFailures.
	fatalErr chan error
}

// SentinelOption configures a [Sentinel].
type SentinelOption func(*Sentinel)

// WithCadence sets the pause between sensing cycles. The default is 10
// seconds.
func WithCadence(d time.Duration) SentinelOption {
	return func(s *Sentinel) {
		if d > 0 {
			s.cadence = d
		}
	}
}

// WithMaxConsecutiveFailures sets how many classifier failures in a row are
// tolerated before the sentinel gives up. The default is 6.
func WithMaxConsecutiveFailures(n int) SentinelOption {
	return func(s *Sentinel) {
		if n > 0 {
			s.maxFailures = n
		}
	}
}

// NewSentinel builds a sentinel over the given classifier, aggregator, and
// verification state.
func NewSentinel(classifier vision.Classifier, agg *Aggregator, state *VerificationState, opts ...SentinelOption) *Sentinel {
	s := &Sentinel{
		classifier:  classifier,
		agg:         agg,
		state:       state,
		metrics:     observe.DefaultMetrics(),
		cadence:     defaultCadence,
		maxFailures: 6,
		done:        make(chan struct{}),
		finished:    make(chan struct{}),
		fatalErr:    make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the sensing loop in a background goroutine. Calling Start
// more than once is an error.
func (s *Sentinel) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("guard: sentinel already started")
	}
	s.started = true
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

// Stop tears the sensing loop down and closes the classifier. It is safe
// to call before Start and safe to call more than once; every call after
// the first is a no-op.
func (s *Sentinel) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.finished
		}

		if err := s.classifier.Close(); err != nil {
			slog.Warn("sentinel: classifier close failed", "err", err)
		}
	})
}

// Fatal returns a channel that receives the terminal error if the sensing
// loop aborts on its own (too many consecutive classifier failures).
func (s *Sentinel) Fatal() <-chan error {
	return s.fatalErr
}

func (s *Sentinel) loop(ctx context.Context) {
	defer close(s.finished)

	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	// Run one cycle immediately so the verdict does not stay stale for a
	// full cadence after startup.
	failures := 0
	if !s.cycle(ctx, &failures) {
		return
	}

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.cycle(ctx, &failures) {
				return
			}
		}
	}
}

// cycle performs one classify-and-ingest round. It returns false when the
// loop must terminate.
func (s *Sentinel) cycle(ctx context.Context, failures *int) bool {
	start := time.Now()
	result, err := s.classifier.Classify(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		*failures++
		s.metrics.RecordProviderError(ctx, "classifier", "vision")
		slog.Warn("sentinel: classification failed, skipping cycle",
			"err", err, "consecutive_failures", *failures)
		if *failures >= s.maxFailures {
			select {
			case s.fatalErr <- fmt.Errorf("guard: %d consecutive classification failures: %w", *failures, err):
			default:
			}
			return false
		}
		return true
	}
	*failures = 0

	obs := Observation{Timestamp: time.Now(), Label: result.Label}
	before := s.agg.Len()
	verdict := s.agg.Ingest(obs)
	s.metrics.WindowSize.Add(ctx, int64(s.agg.Len()-before))
	s.metrics.RecordClassification(ctx, result.Label.String())
	s.metrics.SensingCycleDuration.Record(ctx, time.Since(start).Seconds())

	if s.state.Set(verdict) {
		s.metrics.RecordVerdictFlip(ctx, verdict)
		slog.Info("sentinel: verification verdict changed",
			"verified", verdict, "subject", result.Subject, "window_size", s.agg.Len())
	}
	return true
}
