// Package embedmatch implements the ExternalMatcher capability with text
// embeddings: item names are embedded once per list and paired greedily by
// cosine similarity. It is a cheaper alternative to the LLM-backed matcher
// when only name-level semantics are needed.
package embedmatch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/datar-psa/extracteval/api"
	"github.com/datar-psa/extracteval/normalize"
)

// DefaultThreshold is the minimum cosine similarity for a pairing.
const DefaultThreshold = 0.75

// Options configures Matcher creation
type Options struct {
	embedder  api.Embedder
	threshold float64
}

// WithEmbedder sets the embedder used to vectorize item names
func WithEmbedder(embedder api.Embedder) func(*Options) {
	return func(opts *Options) {
		opts.embedder = embedder
	}
}

// WithThreshold overrides the minimum similarity for a pairing
func WithThreshold(threshold float64) func(*Options) {
	return func(opts *Options) {
		opts.threshold = threshold
	}
}

// Matcher pairs items by embedding similarity of their names.
type Matcher struct {
	embedder  api.Embedder
	threshold float64
}

// NewMatcher creates a new embedding-backed matcher using functional options.
func NewMatcher(opts ...func(*Options)) *Matcher {
	options := &Options{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(options)
	}
	return &Matcher{embedder: options.embedder, threshold: options.threshold}
}

// MatchItems implements api.ExternalMatcher. Pairing is greedy in expected
// order over the unused actual items, same tie-breaking as the rule-based
// matcher: the earliest actual index wins on equal similarity.
func (m *Matcher) MatchItems(ctx context.Context, expectedItems, actualItems []api.Record) ([]api.IndexMatch, error) {
	if len(expectedItems) == 0 || len(actualItems) == 0 {
		return nil, nil
	}
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	expectedVecs, err := m.embedAll(ctx, expectedItems)
	if err != nil {
		return nil, fmt.Errorf("failed to embed expected items: %w", err)
	}
	actualVecs, err := m.embedAll(ctx, actualItems)
	if err != nil {
		return nil, fmt.Errorf("failed to embed actual items: %w", err)
	}

	result := make([]api.IndexMatch, 0, len(expectedItems))
	used := make([]bool, len(actualItems))

	for i := range expectedItems {
		bestIndex := api.UnmatchedIndex
		bestSim := m.threshold
		for j := range actualItems {
			if used[j] {
				continue
			}
			if sim := cosineSimilarity(expectedVecs[i], actualVecs[j]); sim > bestSim {
				bestSim = sim
				bestIndex = j
			}
		}

		im := api.IndexMatch{ExpectedIndex: i, ActualIndex: bestIndex}
		if bestIndex != api.UnmatchedIndex {
			used[bestIndex] = true
			im.Confidence = clamp01(bestSim)
			im.Reason = fmt.Sprintf("embedding similarity %.2f", bestSim)
		}
		result = append(result, im)
	}

	return result, nil
}

func (m *Matcher) embedAll(ctx context.Context, items []api.Record) ([][]float64, error) {
	vecs := make([][]float64, len(items))
	for i, item := range items {
		vec, err := m.embedder.Embed(ctx, itemText(item))
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// itemText is the embedded rendering of an item: the name when present,
// otherwise all non-empty fields in key order.
func itemText(item api.Record) string {
	if name := normalize.Text(item["name"]); name != "" {
		return name
	}
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		if v := normalize.Text(item[k]); v != "" {
			parts = append(parts, k+":"+v)
		}
	}
	return strings.Join(parts, " ")
}

// cosineSimilarity computes the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (normA * normB)
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

// Verify that Matcher implements ExternalMatcher
var _ api.ExternalMatcher = (*Matcher)(nil)
