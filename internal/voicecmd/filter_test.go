package voicecmd

import "testing"

var testCommands = []string{"status report", "stand down", "reset escalation"}

func TestMatch_ExactPhrases(t *testing.T) {
	t.Parallel()
	f := New(testCommands)

	for _, cmd := range testCommands {
		got, ok := f.Match(cmd)
		if !ok {
			t.Errorf("Match(%q): want ok", cmd)
			continue
		}
		if got != cmd {
			t.Errorf("Match(%q) = %q, want itself", cmd, got)
		}
	}
}

func TestMatch_IsCaseInsensitive(t *testing.T) {
	t.Parallel()
	f := New(testCommands)

	got, ok := f.Match("STATUS REPORT")
	if !ok || got != "status report" {
		t.Errorf("Match(STATUS REPORT) = %q, %v", got, ok)
	}
}

func TestMatch_ToleratesTranscriptionArtifacts(t *testing.T) {
	t.Parallel()
	f := New(testCommands)

	tests := []struct {
		utterance string
		want      string
	}{
		// Merged words, a common whisper artifact.
		{"standown", "stand down"},
		// Filler word in the middle.
		{"reset the escalation", "reset escalation"},
		// Slightly mangled spelling.
		{"status repor", "status report"},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got, ok := f.Match(tt.utterance)
			if !ok {
				t.Fatalf("Match(%q): want ok", tt.utterance)
			}
			if got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.utterance, got, tt.want)
			}
		})
	}
}

func TestMatch_RejectsOrdinarySpeech(t *testing.T) {
	t.Parallel()
	f := New(testCommands)

	utterances := []string{
		"open the pod bay doors",
		"good morning",
		"is it going to rain later",
		"",
		"   ",
	}
	for _, u := range utterances {
		if got, ok := f.Match(u); ok {
			t.Errorf("Match(%q) = %q, want no match", u, got)
		}
	}
}

func TestMatch_EmptyCommandSet(t *testing.T) {
	t.Parallel()
	f := New(nil)

	if got, ok := f.Match("stand down"); ok {
		t.Errorf("Match with no commands = %q, want no match", got)
	}
}

func TestThresholdOptions(t *testing.T) {
	t.Parallel()

	// A maximally strict filter only accepts exact phrases.
	strict := New(testCommands, WithPhoneticThreshold(1.0), WithFuzzyThreshold(1.0))
	if _, ok := strict.Match("status repor"); ok {
		t.Error("strict filter should reject mangled phrase")
	}
	if _, ok := strict.Match("status report"); !ok {
		t.Error("strict filter should accept exact phrase")
	}
}
