package api

import (
	"context"
	"strconv"
)

// Record is a string-keyed extraction record of JSON-compatible values.
// Top-level records may nest a list of item records under the reserved
// "items" key; item records hold scalars only.
type Record = map[string]any

// UnmatchedIndex is the actual-index sentinel an ExternalMatcher returns
// when an expected item has no counterpart.
const UnmatchedIndex = -1

// FieldResult is the outcome of comparing one expected/actual field pair.
// Score is always Weight for a correct result and 0 for an incorrect one;
// construct through CorrectResult or IncorrectResult to keep that invariant.
type FieldResult struct {
	// FieldName is a dotted path for nested fields (e.g. "items.price")
	FieldName string `json:"field_name"`
	// ExpectedValue is the human-authored reference value, possibly nil
	ExpectedValue any `json:"expected_value"`
	// ActualValue is the machine-extracted value, possibly nil
	ActualValue any `json:"actual_value"`
	// Weight is the field's contribution ceiling in the aggregate score
	Weight float64 `json:"weight"`
	// Score equals Weight when correct, 0 otherwise
	Score float64 `json:"score"`
	// IsCorrect reports whether the comparison succeeded
	IsCorrect bool `json:"is_correct"`
	// ItemIndex identifies the aligned item pair for line-item sub-fields
	ItemIndex *int `json:"item_index,omitempty"`
	// Details carries optional structured metadata (e.g. match breakdowns)
	Details map[string]any `json:"details,omitempty"`
}

// CorrectResult creates a correct field result with Score == Weight.
// It panics on a negative weight: that is a programming error, not a data
// condition reachable through the evaluation entry points.
func CorrectResult(fieldName string, expected, actual any, weight float64, itemIndex *int) FieldResult {
	mustValidWeight(fieldName, weight)
	return FieldResult{
		FieldName:     fieldName,
		ExpectedValue: expected,
		ActualValue:   actual,
		Weight:        weight,
		Score:         weight,
		IsCorrect:     true,
		ItemIndex:     itemIndex,
	}
}

// IncorrectResult creates an incorrect field result with Score == 0.
func IncorrectResult(fieldName string, expected, actual any, weight float64, itemIndex *int) FieldResult {
	mustValidWeight(fieldName, weight)
	return FieldResult{
		FieldName:     fieldName,
		ExpectedValue: expected,
		ActualValue:   actual,
		Weight:        weight,
		Score:         0,
		IsCorrect:     false,
		ItemIndex:     itemIndex,
	}
}

func mustValidWeight(fieldName string, weight float64) {
	if weight < 0 {
		panic("extracteval: negative weight for field " + fieldName)
	}
}

// WithDetails returns a copy of the result carrying the given metadata.
func (r FieldResult) WithDetails(details map[string]any) FieldResult {
	r.Details = details
	return r
}

// DisplayName is the reporting key for the result: item sub-fields are
// suffixed with their pair index, e.g. "items.price[2]".
func (r FieldResult) DisplayName() string {
	if r.ItemIndex != nil {
		return r.FieldName + "[" + strconv.Itoa(*r.ItemIndex) + "]"
	}
	return r.FieldName
}

// Index is a convenience for building the optional ItemIndex field.
func Index(i int) *int {
	return &i
}

// ItemMatch pairs one expected line item with its best counterpart from the
// actual list. MatchedItem is nil when no counterpart was found.
type ItemMatch struct {
	ExpectedItem Record          `json:"expected"`
	MatchedItem  Record          `json:"matched,omitempty"`
	MatchScore   float64         `json:"score"`
	FieldMatches map[string]bool `json:"field_matches"`
	MatchReason  string          `json:"reason,omitempty"`
}

// IndexMatch is one pairing decision from an ExternalMatcher: the expected
// item at ExpectedIndex corresponds to the actual item at ActualIndex with
// the given confidence, or to nothing when ActualIndex is UnmatchedIndex.
type IndexMatch struct {
	ExpectedIndex int     `json:"expected_index"`
	ActualIndex   int     `json:"actual_index"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason,omitempty"`
}

// ExternalMatcher is an injectable capability that pairs expected and actual
// line items. Implementations must return exactly one IndexMatch per
// expected item, ordered by expected index. The core treats it as a black
// box: any error degrades the item list to unmatched rather than failing
// the evaluation.
type ExternalMatcher interface {
	MatchItems(ctx context.Context, expectedItems, actualItems []Record) ([]IndexMatch, error)
}

// LLMGenerator is an interface for generating text using an LLM
// This interface must be implemented by library consumers
// A Gemini implementation is provided in the gemini subpackage
type LLMGenerator interface {
	// Generate generates text based on the provided prompt
	// Returns the generated text or an error
	Generate(ctx context.Context, prompt string) (string, error)

	// StructuredGenerate generates structured data based on the provided prompt and JSON schema
	// schema must be a valid JSON schema (map[string]interface{})
	// Returns the generated data as a map[string]interface{} or an error
	StructuredGenerate(ctx context.Context, prompt string, schema map[string]interface{}) (map[string]interface{}, error)
}

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates an embedding vector for the given text
	// Returns a normalized vector (length = 1) suitable for cosine similarity
	Embed(ctx context.Context, text string) ([]float64, error)
}
