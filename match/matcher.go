// Package match aligns two unordered lists of line-item records before
// per-field comparison. The default algorithm is a greedy, similarity-
// weighted assignment; an injected ExternalMatcher can take over the
// pairing decisions.
package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/datar-psa/extracteval/api"
)

// DefaultWeight is the weight applied to item sub-fields absent from the
// weight table.
const DefaultWeight = 1.0

// nameField is the sub-field evaluated with the layered name heuristic.
const nameField = "name"

// DefaultFieldWeights returns the built-in item sub-field weight table.
// The item name dominates: it is what humans use to recognize a row.
func DefaultFieldWeights() map[string]float64 {
	return map[string]float64{
		"name":         3.0,
		"quantity":     2.0,
		"price":        2.0,
		"sub_total":    2.0,
		"unit":         1.0,
		"spec":         1.0,
		"note":         0.5,
		"account_item": 1.0,
	}
}

// Options configures Matcher creation
type Options struct {
	fieldWeights  map[string]float64
	defaultWeight float64
	external      api.ExternalMatcher
	logger        *zap.Logger
}

// WithFieldWeights replaces the item sub-field weight table
func WithFieldWeights(weights map[string]float64) func(*Options) {
	return func(opts *Options) {
		opts.fieldWeights = weights
	}
}

// WithDefaultWeight sets the weight for sub-fields absent from the table
func WithDefaultWeight(weight float64) func(*Options) {
	return func(opts *Options) {
		opts.defaultWeight = weight
	}
}

// WithExternalMatcher delegates pairing decisions to the given capability
func WithExternalMatcher(external api.ExternalMatcher) func(*Options) {
	return func(opts *Options) {
		opts.external = external
	}
}

// WithLogger sets the logger used to report external-matcher degradation
func WithLogger(logger *zap.Logger) func(*Options) {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Matcher aligns expected and actual item lists. It holds read-only
// configuration only, so a single Matcher may be shared across goroutines.
type Matcher struct {
	fieldWeights  map[string]float64
	defaultWeight float64
	external      api.ExternalMatcher
	logger        *zap.Logger
}

// NewMatcher creates a matcher using functional options. Without options it
// uses the built-in weight table, the rule-based algorithm, and no logging.
func NewMatcher(opts ...func(*Options)) *Matcher {
	options := &Options{
		fieldWeights:  DefaultFieldWeights(),
		defaultWeight: DefaultWeight,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return &Matcher{
		fieldWeights:  options.fieldWeights,
		defaultWeight: options.defaultWeight,
		external:      options.external,
		logger:        options.logger,
	}
}

// pairing is one assignment decision: which actual item (by index) was
// chosen for an expected item, with its score and field breakdown.
type pairing struct {
	actualIndex  int // api.UnmatchedIndex when no counterpart
	score        float64
	fieldMatches map[string]bool
	reason       string
}

// Match aligns the two lists and returns the overall similarity score in
// [0,1] together with one ItemMatch per expected item, in expected-list
// order.
//
// Edge cases: both lists empty scores 1.0 with no matches; an empty
// expected list against a non-empty actual list scores 0.0 with no matches
// (there is nothing to attribute the surplus to); a non-empty expected list
// against an empty actual list scores 0.0 with one unmatched entry per
// expected item.
func (m *Matcher) Match(ctx context.Context, expectedItems, actualItems []api.Record) (float64, []api.ItemMatch) {
	if len(expectedItems) == 0 {
		if len(actualItems) == 0 {
			return 1.0, nil
		}
		return 0.0, nil
	}

	pairings := m.pair(ctx, expectedItems, actualItems)

	matches := make([]api.ItemMatch, len(pairings))
	total := 0.0
	for i, p := range pairings {
		var matched api.Record
		if p.actualIndex != api.UnmatchedIndex {
			matched = actualItems[p.actualIndex]
		}
		fieldMatches := p.fieldMatches
		if fieldMatches == nil {
			fieldMatches = map[string]bool{}
		}
		matches[i] = api.ItemMatch{
			ExpectedItem: expectedItems[i],
			MatchedItem:  matched,
			MatchScore:   p.score,
			FieldMatches: fieldMatches,
			MatchReason:  p.reason,
		}
		total += p.score
	}

	return total / float64(len(matches)), matches
}

// pair runs either the external or the rule-based assignment. The expected
// list must be non-empty.
func (m *Matcher) pair(ctx context.Context, expectedItems, actualItems []api.Record) []pairing {
	if len(actualItems) == 0 {
		return unmatchedPairings(len(expectedItems), "")
	}
	if m.external != nil {
		return m.pairExternal(ctx, expectedItems, actualItems)
	}
	return m.pairGreedy(expectedItems, actualItems)
}

// pairGreedy is the rule-based assignment: for each expected item in
// original order, take the best-scoring unused actual item. Ties keep the
// earliest actual index, and earlier expected items get first pick. This is
// deliberately not a globally optimal assignment; the ordering bias keeps
// results deterministic and favors earlier items when ambiguity exists.
func (m *Matcher) pairGreedy(expectedItems, actualItems []api.Record) []pairing {
	pairings := make([]pairing, len(expectedItems))
	used := make([]bool, len(actualItems))

	for i, expected := range expectedItems {
		best := pairing{actualIndex: api.UnmatchedIndex}
		for j, actual := range actualItems {
			if used[j] {
				continue
			}
			score, fieldMatches := m.similarity(expected, actual)
			// strictly greater keeps the earliest index on ties, and a
			// best score of zero stays unmatched
			if score > best.score {
				best = pairing{actualIndex: j, score: score, fieldMatches: fieldMatches}
			}
		}
		if best.actualIndex != api.UnmatchedIndex {
			used[best.actualIndex] = true
		}
		pairings[i] = best
	}

	return pairings
}

// pairExternal delegates pairing to the configured capability. Confidence
// from the external result becomes the match score as-is; the field-level
// breakdown is still computed locally for whichever pair was selected. Any
// external error degrades the whole list to unmatched — an unreachable or
// misbehaving matcher must never abort evaluation.
func (m *Matcher) pairExternal(ctx context.Context, expectedItems, actualItems []api.Record) []pairing {
	indexMatches, err := m.external.MatchItems(ctx, expectedItems, actualItems)
	if err != nil {
		m.logger.Warn("external matcher failed, degrading to unmatched",
			zap.Error(err),
			zap.Int("expected_items", len(expectedItems)),
			zap.Int("actual_items", len(actualItems)),
		)
		return unmatchedPairings(len(expectedItems), "external matcher unavailable")
	}

	byExpected := make(map[int]api.IndexMatch, len(indexMatches))
	for _, im := range indexMatches {
		if im.ExpectedIndex < 0 || im.ExpectedIndex >= len(expectedItems) {
			continue
		}
		if _, ok := byExpected[im.ExpectedIndex]; ok {
			continue
		}
		byExpected[im.ExpectedIndex] = im
	}

	pairings := make([]pairing, len(expectedItems))
	for i := range expectedItems {
		im, ok := byExpected[i]
		if !ok || im.ActualIndex < 0 || im.ActualIndex >= len(actualItems) {
			reason := "no counterpart found"
			if ok {
				reason = orDefault(im.Reason, reason)
			}
			pairings[i] = pairing{actualIndex: api.UnmatchedIndex, reason: reason}
			continue
		}
		_, fieldMatches := m.similarity(expectedItems[i], actualItems[im.ActualIndex])
		pairings[i] = pairing{
			actualIndex:  im.ActualIndex,
			score:        clamp01(im.Confidence),
			fieldMatches: fieldMatches,
			reason:       im.Reason,
		}
	}

	return pairings
}

func unmatchedPairings(n int, reason string) []pairing {
	pairings := make([]pairing, n)
	for i := range pairings {
		pairings[i] = pairing{actualIndex: api.UnmatchedIndex, reason: reason}
	}
	return pairings
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
