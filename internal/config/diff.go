package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	// TiersChanged is true when the escalation ladder wording changed.
	TiersChanged bool

	// RepliesChanged is true when the fallback or invalid-input lines changed.
	RepliesChanged bool

	// OperatorChanged is true when the operator command thresholds changed.
	OperatorChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// Any reports whether the diff contains any hot-reloadable change.
func (d ConfigDiff) Any() bool {
	return d.TiersChanged || d.RepliesChanged || d.OperatorChanged || d.LogLevelChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; window,
// cadence, and provider selection need a restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Guard.Tiers, new.Guard.Tiers) {
		d.TiersChanged = true
	}

	if old.Guard.FallbackReply != new.Guard.FallbackReply ||
		old.Guard.InvalidInputReply != new.Guard.InvalidInputReply {
		d.RepliesChanged = true
	}

	if old.Operator != new.Operator {
		d.OperatorChanged = true
	}

	return d
}
