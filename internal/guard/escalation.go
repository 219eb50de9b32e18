package guard

import "sync"

// EscalationController tracks the escalation level of the conversation
// with an unverified visitor. The level only ever moves up while the
// visitor stays unverified and saturates at the top of the ladder; a
// successful verification resets it to zero.
type EscalationController struct {
	mu    sync.Mutex
	level int
	tiers []Tier
}

// NewEscalationController builds a controller over the given ladder.
// A nil or empty ladder falls back to DefaultTiers.
func NewEscalationController(tiers []Tier) *EscalationController {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &EscalationController{tiers: tiers}
}

// Level returns the current escalation level. Zero means no active
// escalation.
func (c *EscalationController) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// MaxLevel returns the saturation point of the ladder.
func (c *EscalationController) MaxLevel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tiers)
}

// NextPolicy advances the escalation by one step (saturating at the top
// tier) and returns the policy for the new level together with that
// level. The increment happens before prompt construction and sticks even
// if the reply generation that follows fails.
func (c *EscalationController) NextPolicy(utterance string) (PolicyDescriptor, int) {
	c.mu.Lock()
	if c.level < len(c.tiers) {
		c.level++
	}
	level := c.level
	tiers := c.tiers
	c.mu.Unlock()

	return BuildPolicy(level, tiers, utterance), level
}

// Reset drops the level back to zero and reports whether it was nonzero.
// Called when the visitor flips to verified.
func (c *EscalationController) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.level == 0 {
		return false
	}
	c.level = 0
	return true
}

// SetTiers swaps the ladder wording, e.g. after a config reload. The
// current level is clamped into the new ladder.
func (c *EscalationController) SetTiers(tiers []Tier) {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiers = tiers
	if c.level > len(tiers) {
		c.level = len(tiers)
	}
}
