package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/wardenhq/warden/internal/observe"
	"github.com/wardenhq/warden/pkg/provider/llm"
	"github.com/wardenhq/warden/pkg/provider/stt"
	"github.com/wardenhq/warden/pkg/provider/vision"
)

// Generation defaults for spoken guard replies.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 150
)

const (
	defaultFallbackReply     = "Stay where you are. I am having trouble hearing you, please repeat that."
	defaultInvalidInputReply = "I did not catch that. Please say it again."
)

// EventType classifies entries on the engine's event stream.
type EventType string

const (
	// EventVerdictFlip fires when the verification verdict changes.
	EventVerdictFlip EventType = "verdict_flip"
	// EventEscalation fires when the escalation level advances.
	EventEscalation EventType = "escalation"
	// EventReply fires when the guard speaks a reply.
	EventReply EventType = "reply"
)

// Event is one entry on the engine's event stream.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Verified  bool      `json:"verified"`
	Level     int       `json:"level"`
	Detail    string    `json:"detail,omitempty"`
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	Verified        bool      `json:"verified"`
	EscalationLevel int       `json:"escalation_level"`
	WindowSize      int       `json:"window_size"`
	LastFlip        time.Time `json:"last_flip,omitempty"`
}

// CommandMatcher recognises operator voice commands in an utterance.
// Implementations must be safe for concurrent use.
type CommandMatcher interface {
	// Match returns the canonical command name and true when the utterance
	// is a known operator command.
	Match(utterance string) (command string, ok bool)
}

// Params configures an [Engine].
type Params struct {
	// Window is the sliding-window length for trust aggregation.
	// Default: 3s.
	Window time.Duration

	// Cadence is the pause between sensing cycles. Default: 10s.
	Cadence time.Duration

	// Threshold is the trusted fraction required for a verified verdict.
	// An exact tie counts as verified. Default: 0.5.
	Threshold float64

	// FailOpen makes an empty window verify instead of deny. Default: false.
	FailOpen bool

	// MaxConsecutiveFailures bounds tolerated classifier failures in a row.
	// Default: 6.
	MaxConsecutiveFailures int

	// FallbackReply is spoken when reply generation fails. Defaults to a
	// neutral hold-position line.
	FallbackReply string

	// InvalidInputReply is spoken when the visitor's utterance is empty.
	InvalidInputReply string

	// Tiers is the escalation ladder. Defaults to [DefaultTiers].
	Tiers []Tier

	// Temperature and MaxTokens tune reply generation. Defaults: 0.7, 150.
	Temperature float64
	MaxTokens   int
}

// withDefaults fills in zero fields.
func (p Params) withDefaults() Params {
	if p.Window <= 0 {
		p.Window = 3 * time.Second
	}
	if p.Cadence <= 0 {
		p.Cadence = defaultCadence
	}
	if p.Threshold == 0 {
		p.Threshold = 0.5
	}
	if p.MaxConsecutiveFailures <= 0 {
		p.MaxConsecutiveFailures = 6
	}
	if p.FallbackReply == "" {
		p.FallbackReply = defaultFallbackReply
	}
	if p.InvalidInputReply == "" {
		p.InvalidInputReply = defaultInvalidInputReply
	}
	if len(p.Tiers) == 0 {
		p.Tiers = DefaultTiers()
	}
	if p.Temperature == 0 {
		p.Temperature = defaultTemperature
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = defaultMaxTokens
	}
	return p
}

// Validate reports every invalid field at once.
func (p Params) Validate() error {
	var errs []error
	if p.Window < 0 {
		errs = append(errs, errors.New("window must be positive"))
	}
	if p.Cadence < 0 {
		errs = append(errs, errors.New("cadence must be positive"))
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be within [0,1], got %v", p.Threshold))
	}
	for i, tier := range p.Tiers {
		if strings.TrimSpace(tier.Directive) == "" {
			errs = append(errs, fmt.Errorf("tier %d: directive must not be empty", i+1))
		}
	}
	return errors.Join(errs...)
}

// Engine ties the sensing loop, the verification state, and the escalating
// dialogue policy together. One Engine guards one entrance.
type Engine struct {
	params    Params
	responder llm.Provider
	state     *VerificationState
	agg       *Aggregator
	esc       *EscalationController
	sentinel  *Sentinel
	matcher   CommandMatcher
	scribe    stt.Provider
	metrics   *observe.Metrics

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithCommandMatcher enables operator voice commands. Commands are only
// honoured while the speaker is verified.
func WithCommandMatcher(m CommandMatcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// New builds an Engine over the given classifier and reply generator.
func New(classifier vision.Classifier, responder llm.Provider, params Params, opts ...Option) (*Engine, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("guard: invalid parameters: %w", err)
	}
	if classifier == nil {
		return nil, errors.New("guard: classifier must not be nil")
	}
	if responder == nil {
		return nil, errors.New("guard: responder must not be nil")
	}

	e := &Engine{
		params:    params,
		responder: responder,
		state:     NewVerificationState(),
		agg:       NewAggregator(params.Window, params.Threshold, params.FailOpen),
		esc:       NewEscalationController(params.Tiers),
		metrics:   observe.DefaultMetrics(),
		subs:      make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	// A flip to verified wipes the escalation; either direction is
	// published to subscribers.
	e.state.OnFlip(func(verified bool, at time.Time) {
		level := e.esc.Level()
		if verified {
			if e.esc.Reset() {
				e.metrics.EscalationLevel.Add(context.Background(), int64(-level))
				level = 0
			}
		}
		e.publish(Event{
			Type:      EventVerdictFlip,
			Timestamp: at,
			Verified:  verified,
			Level:     level,
		})
	})

	e.sentinel = NewSentinel(classifier, e.agg, e.state,
		WithCadence(params.Cadence),
		WithMaxConsecutiveFailures(params.MaxConsecutiveFailures),
	)
	return e, nil
}

// Start launches the sensing loop.
func (e *Engine) Start(ctx context.Context) error {
	return e.sentinel.Start(ctx)
}

// Stop shuts the sensing loop down and releases the classifier. Safe to
// call before Start and safe to call twice.
func (e *Engine) Stop() {
	e.sentinel.Stop()
}

// Fatal exposes the sensing loop's terminal error channel.
func (e *Engine) Fatal() <-chan error {
	return e.sentinel.Fatal()
}

// Verified returns the current verification verdict without blocking.
func (e *Engine) Verified() bool {
	return e.state.Get()
}

// Snapshot returns the engine's current status.
func (e *Engine) Snapshot() Status {
	return Status{
		Verified:        e.state.Get(),
		EscalationLevel: e.esc.Level(),
		WindowSize:      e.agg.Len(),
		LastFlip:        e.state.LastChanged(),
	}
}

// SetTiers swaps the escalation ladder wording at runtime, typically after
// a configuration reload. An in-progress escalation keeps its level,
// clamped into the new ladder.
func (e *Engine) SetTiers(tiers []Tier) {
	e.esc.SetTiers(tiers)
}

// Subscribe registers an event stream consumer. Events are delivered
// best-effort: a slow consumer misses events rather than stalling the
// engine. The returned cancel function must be called when done.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	e.subMu.Lock()
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()
	e.metrics.EventSubscribers.Add(context.Background(), 1)

	cancel := func() {
		e.subMu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
			e.metrics.EventSubscribers.Add(context.Background(), -1)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

// publish fans an event out to all subscribers without blocking.
func (e *Engine) publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// OnUserUtterance handles one dialogue turn and returns the guard's spoken
// reply. The verification verdict is read exactly once per turn; the reply
// is generated without holding any engine lock.
func (e *Engine) OnUserUtterance(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return e.params.InvalidInputReply, nil
	}

	verified := e.state.Get()

	if verified && e.matcher != nil {
		if cmd, ok := e.matcher.Match(text); ok {
			return e.runCommand(ctx, cmd), nil
		}
	}

	var policy PolicyDescriptor
	if verified {
		// Level 0 resolves to the concierge policy; tiers are not consulted.
		policy = BuildPolicy(0, nil, text)
	} else {
		var level int
		policy, level = e.esc.NextPolicy(text)
		e.metrics.EscalationLevel.Add(ctx, 1)
		e.publish(Event{Type: EventEscalation, Verified: false, Level: level})
		observe.Logger(ctx).Info("escalation advanced", "level", level)
	}

	reply := e.generate(ctx, policy)

	kind := "escalation"
	if verified {
		kind = "verified"
	}
	e.metrics.RecordGuardReply(ctx, kind)
	e.publish(Event{
		Type:     EventReply,
		Verified: verified,
		Level:    policy.Level,
		Detail:   reply,
	})
	return reply, nil
}

// generate calls the reply provider and falls back to the configured line
// when the provider fails or returns nothing. The escalation level is not
// rolled back on failure.
func (e *Engine) generate(ctx context.Context, policy PolicyDescriptor) string {
	start := time.Now()
	resp, err := e.responder.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: policy.SystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: policy.Utterance},
		},
		Temperature: e.params.Temperature,
		MaxTokens:   e.params.MaxTokens,
	})
	e.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		e.metrics.RecordProviderError(ctx, "responder", "llm")
		observe.Logger(ctx).Warn("reply generation failed, using fallback", "err", err)
		return e.params.FallbackReply
	}
	var reply string
	if resp != nil {
		reply = strings.TrimSpace(resp.Content)
	}
	if reply == "" {
		observe.Logger(ctx).Warn("reply generation returned empty content, using fallback")
		return e.params.FallbackReply
	}
	return reply
}

// runCommand executes an operator command and returns the acknowledgement.
func (e *Engine) runCommand(ctx context.Context, cmd string) string {
	e.metrics.OperatorCommands.Add(ctx, 1, metric.WithAttributes(observe.Attr("command", cmd)))
	switch cmd {
	case CommandStatusReport:
		st := e.Snapshot()
		return fmt.Sprintf("All quiet. Verification holds, escalation level %d, %d observations in the window.",
			st.EscalationLevel, st.WindowSize)
	case CommandStandDown, CommandResetEscalation:
		level := e.esc.Level()
		if e.esc.Reset() {
			e.metrics.EscalationLevel.Add(ctx, int64(-level))
		}
		return "Understood. Standing down and resetting the escalation."
	default:
		return "Command received."
	}
}

// Canonical operator command names understood by the engine.
const (
	CommandStatusReport    = "status report"
	CommandStandDown       = "stand down"
	CommandResetEscalation = "reset escalation"
)
