// Package match resolves free-form text to catalog intents using normalized
// string similarity.
package match

import (
	"strings"

	"github.com/agext/levenshtein"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
)

// DefaultThreshold is the inclusive lower bound for a match.
const DefaultThreshold = 0.80

// Result describes the winning intent for a piece of text.
type Result struct {
	Intent *domain.CommandDefinition
	Sample string  // the sample that produced the best score
	Score  float64 // normalized similarity in [0, 1]
}

// Matcher scores text against every sample of every catalog intent.
// It is stateless and safe for concurrent use.
type Matcher struct {
	threshold float64
	params    *levenshtein.Params
}

// Option configures the Matcher.
type Option func(*Matcher)

// WithThreshold overrides the inclusive match threshold.
func WithThreshold(t float64) Option {
	return func(m *Matcher) {
		m.threshold = t
	}
}

// New creates a Matcher with the default threshold.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		threshold: DefaultThreshold,
		params:    levenshtein.NewParams(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the best-scoring intent with score >= threshold, or false.
// Scoring is O(intents x samples). Ties at the maximum score resolve to the
// earliest-registered intent: a later intent only displaces the current best
// on a strictly greater score, so the result never depends on map iteration
// order. Normalization (lower-case, trimmed) keeps the signature cacheable
// by normalized text should a cache ever be added in front of this.
func (m *Matcher) Match(text string, cat *catalog.Catalog) (Result, bool) {
	needle := Normalize(text)
	if needle == "" {
		return Result{}, false
	}

	var best Result
	for _, def := range cat.Intents() {
		for _, sample := range samplesOf(def) {
			score := levenshtein.Similarity(needle, Normalize(sample), m.params)
			if score > best.Score {
				best = Result{Intent: def, Sample: sample, Score: score}
			}
		}
	}

	if best.Intent == nil || best.Score < m.threshold {
		return Result{}, false
	}
	return best, true
}

// Normalize lower-cases and trims text the way both matching and goto/expect
// token comparison do.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func samplesOf(def *domain.CommandDefinition) []string {
	if len(def.Samples) == 0 {
		return []string{def.Name}
	}
	// The name is always an implicit sample.
	return append([]string{def.Name}, def.Samples...)
}
