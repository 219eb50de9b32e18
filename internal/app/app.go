// Package app wires all Warden subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes them until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock providers through the Providers struct and tune
// behaviour via functional options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/guard"
	"github.com/wardenhq/warden/internal/health"
	"github.com/wardenhq/warden/internal/resilience"
	"github.com/wardenhq/warden/internal/server"
	"github.com/wardenhq/warden/internal/voicecmd"
	"github.com/wardenhq/warden/pkg/facestore"
	"github.com/wardenhq/warden/pkg/provider/llm"
	"github.com/wardenhq/warden/pkg/provider/stt"
	"github.com/wardenhq/warden/pkg/provider/vision"
)

// Providers holds one interface value per provider slot. LLM and Vision are
// required; STT is optional and enables the audio turn endpoint. Populated
// by main.go via the config registry.
type Providers struct {
	LLM          llm.Provider
	LLMFallbacks []NamedLLM
	Vision       vision.Classifier
	STT          stt.Provider

	// Faces backs the /faces enrollment endpoints. Optional.
	Faces facestore.Store
}

// NamedLLM pairs a fallback LLM provider with the name it is logged under.
type NamedLLM struct {
	Name     string
	Provider llm.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg    *config.Config
	engine *guard.Engine
	srv    *server.Server

	configPath string
	watcher    *config.Watcher
	logLevel   *slog.LevelVar
	checkers   []health.Checker

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithConfigPath enables hot reload of the config file at path. Only tier
// wording and the log level are applied live; other changes log a restart
// hint.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithLogLevel hands the App the level var behind the process logger so a
// config reload can adjust verbosity.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// WithHealthChecker adds a readiness checker to the /readyz endpoint.
func WithHealthChecker(c health.Checker) Option {
	return func(a *App) { a.checkers = append(a.checkers, c) }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, errors.New("app: an LLM provider is required")
	}
	if providers.Vision == nil {
		return nil, errors.New("app: a vision classifier is required")
	}

	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Reply generation with failover ───────────────────────────────
	responder := resilience.NewLLMFallback(providers.LLM, llmName(cfg), resilience.FallbackConfig{})
	for _, fb := range providers.LLMFallbacks {
		responder.AddFallback(fb.Name, fb.Provider)
		slog.Info("registered LLM fallback", "name", fb.Name)
	}

	// ── 2. Guard engine ──────────────────────────────────────────────────
	engineOpts := a.engineOptions(providers)
	engine, err := guard.New(providers.Vision, responder, cfg.Guard.Params(), engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: build guard engine: %w", err)
	}
	a.engine = engine

	// ── 3. HTTP server ────────────────────────────────────────────────────
	srvCfg := server.Config{ListenAddr: cfg.Server.ListenAddr}
	if cfg.Server.TLS != nil {
		srvCfg.CertFile = cfg.Server.TLS.CertFile
		srvCfg.KeyFile = cfg.Server.TLS.KeyFile
	}
	a.srv = server.New(srvCfg, engine, providers.Faces, a.checkers...)

	// ── 4. Config watcher (optional) ──────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.applyReload)
		if err != nil {
			return nil, fmt.Errorf("app: watch config: %w", err)
		}
		a.watcher = w
		a.closers = append(a.closers, func() error {
			w.Stop()
			return nil
		})
	}

	return a, nil
}

// engineOptions assembles the guard options from config and providers.
func (a *App) engineOptions(providers *Providers) []guard.Option {
	var opts []guard.Option

	if a.cfg.Operator.Enabled {
		filter := voicecmd.New(
			[]string{
				guard.CommandStatusReport,
				guard.CommandStandDown,
				guard.CommandResetEscalation,
			},
			voicecmd.WithPhoneticThreshold(a.cfg.Operator.PhoneticThreshold),
			voicecmd.WithFuzzyThreshold(a.cfg.Operator.FuzzyThreshold),
		)
		opts = append(opts, guard.WithCommandMatcher(filter))
		slog.Info("operator voice commands enabled")
	}

	if providers.STT != nil {
		scribe := resilience.NewSTTFallback(providers.STT, sttName(a.cfg), resilience.FallbackConfig{})
		opts = append(opts, guard.WithTranscriber(scribe))
		a.closers = append(a.closers, scribe.Close)
	}

	return opts
}

// applyReload reacts to a config file change. Only tier wording, operator
// thresholds, and the log level are safe to apply live.
func (a *App) applyReload(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		return
	}

	if d.TiersChanged {
		a.engine.SetTiers(new.Guard.Tiers)
		slog.Info("escalation tiers reloaded", "tiers", len(new.Guard.Tiers))
	}
	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RepliesChanged || d.OperatorChanged {
		slog.Warn("reply lines and operator settings require a restart to take effect")
	}
}

// Engine exposes the guard engine, mainly for tests.
func (a *App) Engine() *guard.Engine {
	return a.engine
}

// Run starts the sensing loop and the HTTP server and blocks until ctx is
// cancelled or the sensing loop dies. A clean cancellation returns
// context.Canceled.
func (a *App) Run(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("app: start guard engine: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.srv.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-a.engine.Fatal():
			return fmt.Errorf("app: sensing loop died: %w", err)
		}
	})

	slog.Info("app running", "listen_addr", a.cfg.Server.ListenAddr)
	return g.Wait()
}

// Shutdown stops the engine and tears down all subsystems in order. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.engine.Stop()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func llmName(cfg *config.Config) string {
	if cfg.Providers.LLM.Name != "" {
		return cfg.Providers.LLM.Name
	}
	return "primary"
}

func sttName(cfg *config.Config) string {
	if cfg.Providers.STT.Name != "" {
		return cfg.Providers.STT.Name
	}
	return "primary"
}

// slogLevel converts a config.LogLevel to its slog equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
