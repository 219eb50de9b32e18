// Command warden is the main entry point for the Warden door guard server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/wardenhq/warden/internal/app"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/health"
	"github.com/wardenhq/warden/internal/observe"
	"github.com/wardenhq/warden/pkg/facestore"
	pgstore "github.com/wardenhq/warden/pkg/facestore/postgres"
	"github.com/wardenhq/warden/pkg/provider/llm"
	"github.com/wardenhq/warden/pkg/provider/llm/anyllm"
	"github.com/wardenhq/warden/pkg/provider/stt"
	"github.com/wardenhq/warden/pkg/provider/stt/whisper"
	"github.com/wardenhq/warden/pkg/provider/vision"
	"github.com/wardenhq/warden/pkg/provider/vision/facematch"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch", false, "hot-reload the config file on change")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warden: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := &slog.LevelVar{}
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("warden starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "warden",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Face store ────────────────────────────────────────────────────────────
	store, storeCloser, storeChecker, err := buildFaceStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open face store", "err", err)
		return 1
	}
	defer storeCloser()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, store, cfg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	providers.Faces = store

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	opts := []app.Option{app.WithLogLevel(levelVar)}
	if *watch {
		opts = append(opts, app.WithConfigPath(*configPath))
	}
	if storeChecker != nil {
		opts = append(opts, app.WithHealthChecker(*storeChecker))
	}

	application, err := app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Face store ─────────────────────────────────────────────────────────────────

// buildFaceStore opens the pgvector-backed store when a DSN is configured and
// falls back to the in-memory store otherwise. The returned checker probes the
// database for /readyz and is nil for the in-memory store.
func buildFaceStore(ctx context.Context, cfg *config.Config) (facestore.Store, func(), *health.Checker, error) {
	if dsn := cfg.FaceStore.PostgresDSN; dsn != "" {
		dims := cfg.FaceStore.EncodingDimensions
		if dims == 0 {
			dims = 128 // dlib-style face encodings
		}
		store, err := pgstore.NewStore(ctx, dsn, dims)
		if err != nil {
			return nil, nil, nil, err
		}
		checker := &health.Checker{Name: "facestore", Check: store.Ping}
		slog.Info("face store connected", "backend", "postgres", "dimensions", dims)
		return store, store.Close, checker, nil
	}

	slog.Info("face store running in memory; enrolled faces are lost on restart")
	return facestore.NewMemStore(), func() {}, nil, nil
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry, store facestore.Store, cfg *config.Config) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── Vision ────────────────────────────────────────────────────────────────

	reg.RegisterVision("facematch", func(entry config.ProviderEntry) (vision.Classifier, error) {
		snapshotURL := optString(entry.Options, "snapshot_url")
		encoderURL := optString(entry.Options, "encoder_url")
		if snapshotURL == "" || encoderURL == "" {
			return nil, errors.New("facematch requires options.snapshot_url and options.encoder_url")
		}

		frames := facematch.NewSnapshotSource(snapshotURL)
		encoder := facematch.NewHTTPEncoder(encoderURL)

		var opts []facematch.Option
		if cfg.FaceStore.Tolerance > 0 {
			opts = append(opts, facematch.WithTolerance(cfg.FaceStore.Tolerance))
		}
		return facematch.New(frames, encoder, store, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(modelPath, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.LLM = p
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	for _, entry := range cfg.Providers.LLMFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
		}
		ps.LLMFallbacks = append(ps.LLMFallbacks, app.NamedLLM{Name: entry.Name, Provider: p})
		slog.Info("provider created", "kind", "llm-fallback", "name", entry.Name)
	}

	if name := cfg.Providers.Vision.Name; name != "" {
		p, err := reg.CreateVision(cfg.Providers.Vision)
		if err != nil {
			return nil, fmt.Errorf("create vision provider %q: %w", name, err)
		}
		ps.Vision = p
		slog.Info("provider created", "kind", "vision", "name", name)
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "stt", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		} else {
			ps.STT = p
			slog.Info("provider created", "kind", "stt", "name", name)
		}
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Warden — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("Vision", cfg.Providers.Vision.Name, "")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	backend := "memory"
	if cfg.FaceStore.PostgresDSN != "" {
		backend = "postgres"
	}
	fmt.Printf("║  Face store      : %-19s ║\n", backend)
	if cfg.Operator.Enabled {
		fmt.Printf("║  Operator cmds   : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Operator cmds   : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

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

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
