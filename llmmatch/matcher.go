// Package llmmatch implements the ExternalMatcher capability on top of an
// LLM generator: items are rendered into a human-readable listing, the
// model pairs them under a JSON schema, and the response is repaired into
// exactly one decision per expected item.
package llmmatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/datar-psa/extracteval/api"
	"github.com/datar-psa/extracteval/normalize"
)

// Options configures Matcher creation
type Options struct {
	llm api.LLMGenerator
}

// WithLLMGenerator sets the LLM generator used for matching
func WithLLMGenerator(llm api.LLMGenerator) func(*Options) {
	return func(opts *Options) {
		opts.llm = llm
	}
}

// Matcher pairs expected and actual line items via an LLM.
type Matcher struct {
	llm api.LLMGenerator
}

// NewMatcher creates a new LLM-backed matcher using functional options.
func NewMatcher(opts ...func(*Options)) *Matcher {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	return &Matcher{llm: options.llm}
}

const matchingPromptTemplate = `Match the items of the expected list against the actual list.

# Expected items
%s
# Actual items
%s
# Matching rules
1. Match items whose names are the same or similar.
2. Allow abbreviations, spelling variants and partial matches (e.g. "pump" vs "pump motor unit").
3. Prefer pairs whose quantity and unit price also agree.
4. Treat supplied goods (price 0) as a special case.

Return one match per expected item. Use actual_index -1 when no actual item
corresponds. Confidence is a value between 0 and 1.`

// matchSchema is the JSON schema for the structured matching response.
var matchSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"matches": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"expected_index": map[string]interface{}{"type": "integer"},
					"actual_index":   map[string]interface{}{"type": "integer"},
					"confidence":     map[string]interface{}{"type": "number"},
					"reason":         map[string]interface{}{"type": "string"},
				},
				"required": []string{"expected_index", "actual_index", "confidence"},
			},
		},
	},
	"required": []string{"matches"},
}

// MatchItems implements api.ExternalMatcher. The response is repaired
// rather than trusted: out-of-range indices are dropped, duplicate expected
// indices keep the first decision, expected items the model skipped come
// back unmatched, and the result is ordered by expected index.
func (m *Matcher) MatchItems(ctx context.Context, expectedItems, actualItems []api.Record) ([]api.IndexMatch, error) {
	if len(expectedItems) == 0 || len(actualItems) == 0 {
		return nil, nil
	}
	if m.llm == nil {
		return nil, fmt.Errorf("LLM generator is required")
	}

	prompt := fmt.Sprintf(matchingPromptTemplate, renderItems(expectedItems), renderItems(actualItems))

	response, err := m.llm.StructuredGenerate(ctx, prompt, matchSchema)
	if err != nil {
		return nil, fmt.Errorf("matching generation failed: %w", err)
	}

	return repairMatches(response, len(expectedItems)), nil
}

// renderItems formats items one per line, index-prefixed, keeping only the
// fields a human would use to recognize a row.
func renderItems(items []api.Record) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d: %s\n", i, renderItem(item))
	}
	return b.String()
}

func renderItem(item api.Record) string {
	var parts []string
	if name := item["name"]; !normalize.IsEmpty(name) {
		parts = append(parts, fmt.Sprintf("name:%v", name))
	}
	if quantity, ok := item["quantity"]; ok && quantity != nil {
		unit := ""
		if u := item["unit"]; !normalize.IsEmpty(u) {
			unit = fmt.Sprintf("%v", u)
		}
		parts = append(parts, fmt.Sprintf("quantity:%v%s", quantity, unit))
	}
	if price, ok := item["price"]; ok && price != nil {
		parts = append(parts, fmt.Sprintf("unit price:%v", price))
	}
	if spec := item["spec"]; !normalize.IsEmpty(spec) {
		parts = append(parts, fmt.Sprintf("spec:%v", spec))
	}
	if note := item["note"]; !normalize.IsEmpty(note) {
		parts = append(parts, fmt.Sprintf("note:%v", note))
	}
	return strings.Join(parts, " / ")
}

// repairMatches turns the structured response into exactly one IndexMatch
// per expected item.
func repairMatches(response map[string]interface{}, expectedCount int) []api.IndexMatch {
	result := make([]api.IndexMatch, 0, expectedCount)
	seen := make(map[int]bool, expectedCount)

	if raw, ok := response["matches"].([]interface{}); ok {
		for _, entry := range raw {
			fields, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			expectedIndex, ok := asInt(fields["expected_index"])
			if !ok || expectedIndex < 0 || expectedIndex >= expectedCount || seen[expectedIndex] {
				continue
			}
			actualIndex, ok := asInt(fields["actual_index"])
			if !ok {
				actualIndex = api.UnmatchedIndex
			}
			confidence, _ := asFloat(fields["confidence"])
			reason, _ := fields["reason"].(string)

			seen[expectedIndex] = true
			result = append(result, api.IndexMatch{
				ExpectedIndex: expectedIndex,
				ActualIndex:   actualIndex,
				Confidence:    confidence,
				Reason:        reason,
			})
		}
	}

	for i := 0; i < expectedCount; i++ {
		if !seen[i] {
			result = append(result, api.IndexMatch{ExpectedIndex: i, ActualIndex: api.UnmatchedIndex})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpectedIndex < result[j].ExpectedIndex
	})

	return result
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Verify that Matcher implements ExternalMatcher
var _ api.ExternalMatcher = (*Matcher)(nil)
