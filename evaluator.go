package extracteval

import (
	"context"
	"math"
	"sort"

	"github.com/datar-psa/extracteval/api"
	"github.com/datar-psa/extracteval/compare"
	"github.com/datar-psa/extracteval/match"
)

// ItemsKey is the reserved top-level field holding the line-item list. It
// is recognized structurally, not configurable.
const ItemsKey = "items"

// EvaluatorOptions configures Evaluator creation
type EvaluatorOptions struct {
	registry      *compare.Registry
	matcher       *match.Matcher
	fieldWeights  map[string]float64
	defaultWeight float64
}

// WithRegistry sets the comparator registry for the evaluator
func WithRegistry(registry *compare.Registry) func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.registry = registry
	}
}

// WithMatcher sets the item matcher for the evaluator
func WithMatcher(matcher *match.Matcher) func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.matcher = matcher
	}
}

// WithFieldWeights sets the per-field weight table. Keys are top-level
// field names, or dotted item sub-field names such as "items.price".
func WithFieldWeights(weights map[string]float64) func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.fieldWeights = weights
	}
}

// WithDefaultWeight sets the weight applied to fields absent from the table
func WithDefaultWeight(weight float64) func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.defaultWeight = weight
	}
}

// Evaluator grades an extracted record against an expected one. It holds
// read-only configuration, so one Evaluator may grade documents from many
// goroutines concurrently.
type Evaluator struct {
	registry      *compare.Registry
	matcher       *match.Matcher
	fieldWeights  map[string]float64
	defaultWeight float64
}

// NewEvaluator creates an evaluator using functional options. The weight
// table is validated here: a negative or NaN weight is a configuration
// error surfaced immediately, never deferred into evaluation.
func NewEvaluator(opts ...func(*EvaluatorOptions)) (*Evaluator, error) {
	options := &EvaluatorOptions{
		defaultWeight: 1.0,
	}
	for _, opt := range opts {
		opt(options)
	}

	if !validWeight(options.defaultWeight) {
		return nil, ErrInvalidWeight
	}
	for name, weight := range options.fieldWeights {
		if !validWeight(weight) {
			return nil, invalidWeightError(name)
		}
	}

	if options.registry == nil {
		options.registry = compare.NewRegistry()
	}
	if options.matcher == nil {
		options.matcher = match.NewMatcher()
	}

	return &Evaluator{
		registry:      options.registry,
		matcher:       options.matcher,
		fieldWeights:  options.fieldWeights,
		defaultWeight: options.defaultWeight,
	}, nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsNaN(w)
}

// Evaluate grades actual against expected and returns one result per
// top-level field, plus one result per sub-field of every aligned item
// pair. Every field from either record yields exactly one result; nothing
// is silently dropped. Iterating sorted field names keeps repeated runs on
// the same inputs byte-identical.
func (e *Evaluator) Evaluate(ctx context.Context, expected, actual api.Record) []api.FieldResult {
	var results []api.FieldResult

	for _, field := range unionKeys(expected, actual) {
		if field == ItemsKey {
			items := e.evaluateItems(ctx, asItemList(expected[field]), asItemList(actual[field]))
			results = append(results, items...)
			continue
		}
		weight := e.weightFor(field)
		comparator := e.registry.Resolve(field)
		results = append(results, comparator.Compare(field, expected[field], actual[field], weight, nil))
	}

	return results
}

// evaluateItems aligns the two lists, then walks every aligned pair and
// every sub-field seen across all items. Sub-fields absent from one side
// compare as nil and score accordingly; each result carries the pair index.
func (e *Evaluator) evaluateItems(ctx context.Context, expectedItems, actualItems []api.Record) []api.FieldResult {
	expectedAligned, actualAligned := e.matcher.Realign(ctx, expectedItems, actualItems)

	subFields := make(map[string]struct{})
	for _, item := range expectedAligned {
		for k := range item {
			subFields[k] = struct{}{}
		}
	}
	for _, item := range actualAligned {
		for k := range item {
			subFields[k] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(subFields))
	for k := range subFields {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var results []api.FieldResult
	for i := range expectedAligned {
		for _, sub := range sorted {
			key := ItemsKey + "." + sub
			weight := e.weightFor(key)
			comparator := e.registry.Resolve(key)
			results = append(results, comparator.Compare(key, expectedAligned[i][sub], actualAligned[i][sub], weight, api.Index(i)))
		}
	}
	return results
}

func (e *Evaluator) weightFor(field string) float64 {
	if weight, ok := e.fieldWeights[field]; ok {
		return weight
	}
	return e.defaultWeight
}

// asItemList extracts a list of item records from a raw field value.
// Missing or non-list values count as empty; list entries that are not
// records are skipped.
func asItemList(v any) []api.Record {
	switch list := v.(type) {
	case nil:
		return nil
	case []api.Record:
		return list
	case []any:
		items := make([]api.Record, 0, len(list))
		for _, entry := range list {
			if record, ok := entry.(map[string]any); ok {
				items = append(items, record)
			}
		}
		return items
	default:
		return nil
	}
}

func unionKeys(a, b api.Record) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
