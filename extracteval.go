// Package extracteval grades machine-generated structured-extraction
// output (invoice-style records with line items) against human-authored
// expected records: per-field comparison strategies, weighted aggregation,
// and unordered line-item matching.
package extracteval

import (
	"google.golang.org/genai"

	"github.com/datar-psa/extracteval/api"
	"github.com/datar-psa/extracteval/embedmatch"
	"github.com/datar-psa/extracteval/gemini"
	"github.com/datar-psa/extracteval/llmmatch"
)

type Record = api.Record
type FieldResult = api.FieldResult
type ItemMatch = api.ItemMatch
type IndexMatch = api.IndexMatch
type ExternalMatcher = api.ExternalMatcher
type LLMGenerator = api.LLMGenerator
type Embedder = api.Embedder

// UnmatchedIndex is re-exported for ExternalMatcher implementations.
const UnmatchedIndex = api.UnmatchedIndex

// GeminiOptions configures Gemini-backed matcher creation
type GeminiOptions struct {
	genaiClient *genai.Client
	modelName   string
	threshold   float64
}

// WithGenaiClient sets the Gemini client for the matcher
func WithGenaiClient(client *genai.Client) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.genaiClient = client
	}
}

// WithModelName sets the model name for the matcher
func WithModelName(modelName string) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.modelName = modelName
	}
}

// WithSimilarityThreshold sets the pairing threshold for the embedding matcher
func WithSimilarityThreshold(threshold float64) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.threshold = threshold
	}
}

// NewGeminiItemMatcher creates an LLM-backed ExternalMatcher using a Gemini
// client and model name. Example model: "gemini-2.5-flash".
func NewGeminiItemMatcher(opts ...func(*GeminiOptions)) api.ExternalMatcher {
	options := &GeminiOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var matcherOptions []func(*llmmatch.Options)
	if options.genaiClient != nil && options.modelName != "" {
		matcherOptions = append(matcherOptions, llmmatch.WithLLMGenerator(gemini.NewGenerator(options.genaiClient, options.modelName)))
	}
	return llmmatch.NewMatcher(matcherOptions...)
}

// NewGeminiEmbeddingMatcher creates an embedding-backed ExternalMatcher
// using a Gemini client and embedding model name. Example model:
// "text-embedding-005".
func NewGeminiEmbeddingMatcher(opts ...func(*GeminiOptions)) api.ExternalMatcher {
	options := &GeminiOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var matcherOptions []func(*embedmatch.Options)
	if options.genaiClient != nil && options.modelName != "" {
		matcherOptions = append(matcherOptions, embedmatch.WithEmbedder(gemini.NewEmbedder(options.genaiClient, options.modelName)))
	}
	if options.threshold > 0 {
		matcherOptions = append(matcherOptions, embedmatch.WithThreshold(options.threshold))
	}
	return embedmatch.NewMatcher(matcherOptions...)
}
