package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":    {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"vision": {"facematch"},
	"stt":    {"whisper"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Guard engine
	if cfg.Guard.Window < 0 {
		errs = append(errs, fmt.Errorf("guard.window %v must not be negative", cfg.Guard.Window))
	}
	if cfg.Guard.Cadence < 0 {
		errs = append(errs, fmt.Errorf("guard.cadence %v must not be negative", cfg.Guard.Cadence))
	}
	if cfg.Guard.Threshold < 0 || cfg.Guard.Threshold > 1 {
		errs = append(errs, fmt.Errorf("guard.threshold %v is out of range [0, 1]", cfg.Guard.Threshold))
	}
	if cfg.Guard.MaxConsecutiveFailures < 0 {
		errs = append(errs, fmt.Errorf("guard.max_consecutive_failures %d must not be negative", cfg.Guard.MaxConsecutiveFailures))
	}
	for i, tier := range cfg.Guard.Tiers {
		if strings.TrimSpace(tier.Directive) == "" {
			errs = append(errs, fmt.Errorf("guard.tiers[%d].directive is required", i))
		}
	}
	if cfg.Guard.Window > 0 && cfg.Guard.Cadence > 0 && cfg.Guard.Window < cfg.Guard.Cadence {
		slog.Warn("guard.window is shorter than guard.cadence; the window usually holds at most one observation",
			"window", cfg.Guard.Window, "cadence", cfg.Guard.Cadence)
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("vision", cfg.Providers.Vision.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", fb.Name)
	}

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the guard will only speak fallback lines")
	}

	// Face store
	if cfg.FaceStore.EncodingDimensions < 0 {
		errs = append(errs, fmt.Errorf("facestore.encoding_dimensions %d must not be negative", cfg.FaceStore.EncodingDimensions))
	}
	if cfg.FaceStore.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("facestore.tolerance %v must not be negative", cfg.FaceStore.Tolerance))
	}
	if cfg.Providers.Vision.Name == "facematch" && cfg.FaceStore.PostgresDSN == "" {
		slog.Warn("facestore.postgres_dsn is empty; enrolled faces are kept in memory and lost on restart")
	}

	// Operator commands
	if cfg.Operator.PhoneticThreshold < 0 || cfg.Operator.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("operator.phonetic_threshold %v is out of range [0, 1]", cfg.Operator.PhoneticThreshold))
	}
	if cfg.Operator.FuzzyThreshold < 0 || cfg.Operator.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("operator.fuzzy_threshold %v is out of range [0, 1]", cfg.Operator.FuzzyThreshold))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
