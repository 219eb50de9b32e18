// Package voicecmd recognises operator voice commands in transcribed speech
// using Double Metaphone phonetic encoding combined with Jaro-Winkler string
// similarity.
//
// Spoken commands arrive through a speech-to-text pipeline and rarely match
// the canonical phrasing exactly ("stand down" may come back as "standown"
// or "stan down"). The filter proceeds in two stages:
//
//  1. Phonetic gate: Double Metaphone codes are computed for each word of the
//     utterance and of each command. A command whose codes overlap with the
//     utterance's becomes a phonetic candidate and only needs to clear the
//     lower phonetic threshold.
//
//  2. Jaro-Winkler ranking: candidates are ranked by similarity on the
//     original strings (case-insensitive). Commands with no phonetic overlap
//     may still match through pure string similarity against the higher
//     fuzzy threshold.
//
// The guard engine only consults the filter for verified speakers; an
// unverified visitor shouting "stand down" goes through the escalation path
// like any other utterance.
package voicecmd

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Filter].
type Option func(*Filter)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched command to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(f *Filter) {
		if threshold > 0 {
			f.phoneticThreshold = threshold
		}
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic overlap is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(f *Filter) {
		if threshold > 0 {
			f.fuzzyThreshold = threshold
		}
	}
}

// command holds a canonical command phrase with its precomputed phonetic codes.
type command struct {
	name   string
	tokens []string
	codes  map[string]struct{}
}

// Filter matches utterances against a fixed set of command phrases.
// All methods are safe for concurrent use — the Filter is read-only after
// construction.
type Filter struct {
	commands          []command
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Filter] over the given canonical command phrases. Phonetic
// codes are precomputed once at construction.
func New(commands []string, opts ...Option) *Filter {
	f := &Filter{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(f)
	}
	for _, c := range commands {
		lower := strings.ToLower(strings.TrimSpace(c))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		f.commands = append(f.commands, command{
			name:   c,
			tokens: tokens,
			codes:  codesForTokens(tokens),
		})
	}
	return f
}

// Match reports the canonical command the utterance most likely means.
// Returns ok=false when the utterance clears neither threshold for any
// command, in which case the utterance should be treated as ordinary speech.
func (f *Filter) Match(utterance string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	if lower == "" {
		return "", false
	}
	tokens := strings.Fields(lower)
	inputCodes := codesForTokens(tokens)

	var (
		bestName     string
		bestScore    float64
		bestPhonetic bool
	)

	for _, cmd := range f.commands {
		phonetic := codesOverlap(inputCodes, cmd.codes)
		score := bestJWScore(tokens, cmd.tokens, lower, strings.Join(cmd.tokens, " "))

		switch {
		case phonetic && score >= f.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				bestName, bestScore, bestPhonetic = cmd.name, score, true
			}
		case !phonetic && !bestPhonetic && score >= f.fuzzyThreshold:
			if score > bestScore {
				bestName, bestScore = cmd.name, score
			}
		}
	}

	if bestName == "" {
		return "", false
	}
	return bestName, true
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or
// contains no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the
// utterance and the command using full-string, space-stripped, and best
// pairwise token comparisons. Speech-to-text tends to merge or split words,
// so a single strategy misses obvious matches.
func bestJWScore(inputTokens, cmdTokens []string, inputFull, cmdFull string) float64 {
	score := matchr.JaroWinkler(inputFull, cmdFull, false)

	if len(inputTokens) > 1 || len(cmdTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(cmdTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, ct := range cmdTokens {
			if s := matchr.JaroWinkler(it, ct, false); s > score {
				score = s
			}
		}
	}

	return score
}
