package guard

import (
	"strings"
	"testing"
)

func TestEscalationSaturatesAtLadderTop(t *testing.T) {
	t.Parallel()

	c := NewEscalationController(DefaultTiers())
	max := c.MaxLevel()

	var levels []int
	for i := 0; i < max+3; i++ {
		_, level := c.NextPolicy("who are you")
		levels = append(levels, level)
	}

	for i := 1; i < len(levels); i++ {
		if levels[i] < levels[i-1] {
			t.Fatalf("level decreased without reset: %v", levels)
		}
	}
	if got := levels[len(levels)-1]; got != max {
		t.Fatalf("saturated level: want %d, got %d", max, got)
	}
}

func TestEscalationResetOnVerify(t *testing.T) {
	t.Parallel()

	c := NewEscalationController(nil)
	c.NextPolicy("hello")
	c.NextPolicy("hello again")

	if !c.Reset() {
		t.Fatal("Reset with nonzero level: want true")
	}
	if c.Reset() {
		t.Fatal("Reset at level zero: want false")
	}
	if got := c.Level(); got != 0 {
		t.Fatalf("level after reset: want 0, got %d", got)
	}
}

func TestEscalationPolicyFollowsTier(t *testing.T) {
	t.Parallel()

	tiers := []Tier{
		{Tone: "polite", Directive: "ask for a badge"},
		{Tone: "harsh", Directive: "demand they leave"},
	}
	c := NewEscalationController(tiers)

	p1, _ := c.NextPolicy("hi")
	if !strings.Contains(p1.SystemPrompt, "ask for a badge") {
		t.Errorf("level 1 prompt missing directive: %q", p1.SystemPrompt)
	}
	p2, _ := c.NextPolicy("hi")
	if !strings.Contains(p2.SystemPrompt, "demand they leave") {
		t.Errorf("level 2 prompt missing directive: %q", p2.SystemPrompt)
	}
	// Past the ladder top the final tier repeats.
	p3, level := c.NextPolicy("hi")
	if level != 2 {
		t.Fatalf("saturated level: want 2, got %d", level)
	}
	if p3.SystemPrompt != p2.SystemPrompt {
		t.Error("saturated prompt should match final tier")
	}
}

func TestBuildPolicyVerified(t *testing.T) {
	t.Parallel()

	p := BuildPolicy(0, DefaultTiers(), "open the door please")
	if p.Level != 0 {
		t.Fatalf("level: want 0, got %d", p.Level)
	}
	if !strings.Contains(p.SystemPrompt, "verified as trusted") {
		t.Errorf("verified prompt missing trust statement: %q", p.SystemPrompt)
	}
	if !strings.Contains(p.SystemPrompt, "misunderstanding during verification") {
		t.Errorf("verified prompt missing apology instruction: %q", p.SystemPrompt)
	}
	if p.Utterance != "open the door please" {
		t.Errorf("utterance not passed through: %q", p.Utterance)
	}
}

func TestSetTiersClampsLevel(t *testing.T) {
	t.Parallel()

	c := NewEscalationController(DefaultTiers())
	for i := 0; i < 3; i++ {
		c.NextPolicy("x")
	}
	c.SetTiers([]Tier{{Tone: "flat", Directive: "ask them to wait"}})
	if got := c.Level(); got != 1 {
		t.Fatalf("level after shrinking ladder: want 1, got %d", got)
	}
}
