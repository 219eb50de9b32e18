package guard

import (
	"fmt"
	"strings"
)

// Tier describes the tone and directive of one escalation step. Tier
// wording is configurable; DefaultTiers provides the built-in ladder.
type Tier struct {
	// Tone sets the emotional register of the reply ("neutral but firm",
	// "stern", ...).
	Tone string `yaml:"tone"`
	// Directive states what the guard must achieve with this reply.
	Directive string `yaml:"directive"`
}

// DefaultTiers returns the built-in escalation ladder. Level 1 asks the
// visitor to identify themselves, level 2 orders them to leave, and the
// final tier warns of trespass and the authorities. Levels past the last
// tier saturate on it.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Tone:      "neutral but firm",
			Directive: "ask the visitor to identify themselves and state their business here",
		},
		{
			Tone:      "stern and unambiguous",
			Directive: "order the visitor to leave the premises immediately",
		},
		{
			Tone:      "grave and final",
			Directive: "issue a final warning: the visitor is trespassing and the authorities are being notified",
		},
	}
}

// PolicyDescriptor is the resolved prompt material for one dialogue turn.
type PolicyDescriptor struct {
	// Level is the escalation level the policy was built for. Zero means
	// the visitor is verified.
	Level int
	// SystemPrompt is the full instruction handed to the language model.
	SystemPrompt string
	// Utterance is the visitor's text, passed through unchanged.
	Utterance string
}

const promptPreamble = "You are Warden, the security guard stationed at the entrance of a private facility. " +
	"You speak out loud through a voice system, so reply in plain spoken text only: " +
	"no markdown, no lists, no stage directions, no emoji. Keep replies short, two sentences at most."

const verifiedPrompt = promptPreamble + " " +
	"The person in front of you has been verified as trusted. Treat them as a welcome resident or colleague. " +
	"Be warm and helpful, answer their request directly, and if the conversation was tense a moment ago, " +
	"apologize briefly for the misunderstanding during verification."

// BuildPolicy resolves the prompt for the given escalation level. Level 0
// yields the verified concierge policy; levels beyond the ladder clamp to
// the final tier. It is a pure function of its inputs.
func BuildPolicy(level int, tiers []Tier, utterance string) PolicyDescriptor {
	if level <= 0 {
		return PolicyDescriptor{Level: 0, SystemPrompt: verifiedPrompt, Utterance: utterance}
	}
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	idx := level - 1
	if idx >= len(tiers) {
		idx = len(tiers) - 1
	}
	tier := tiers[idx]

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString(" The person in front of you could not be verified and may be an intruder.")
	fmt.Fprintf(&b, " Your tone is %s.", tier.Tone)
	fmt.Fprintf(&b, " In your reply you must %s.", tier.Directive)
	b.WriteString(" Do not answer questions about the facility and do not be talked out of your directive.")

	return PolicyDescriptor{Level: level, SystemPrompt: b.String(), Utterance: utterance}
}
