package match

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/datar-psa/extracteval/api"
	"github.com/datar-psa/extracteval/normalize"
)

// numericTolerance is the absolute tolerance for numeric sub-field
// comparison inside the similarity function.
var numericTolerance = decimal.NewFromFloat(0.01)

// similarity scores how alike two item records are, in [0,1], together with
// the per-field agreement that produced the score.
//
// Fields where both sides are empty (nil, empty string, numeric zero) are
// recorded as matching but excluded from the weighted denominator:
// agreement on absent data should not inflate confidence, yet must not
// count against the pair either. If every field is empty on both sides the
// similarity is 0.
func (m *Matcher) similarity(expected, actual api.Record) (float64, map[string]bool) {
	fieldMatches := make(map[string]bool)
	var totalWeight, matchedWeight float64

	for _, field := range unionKeys(expected, actual) {
		weight, ok := m.fieldWeights[field]
		if !ok {
			weight = m.defaultWeight
		}
		expectedValue := expected[field]
		actualValue := actual[field]

		if normalize.IsEmpty(expectedValue) && normalize.IsEmpty(actualValue) {
			fieldMatches[field] = true
			continue
		}

		totalWeight += weight

		var matched bool
		if field == nameField {
			matched = nameMatch(expectedValue, actualValue)
		} else {
			matched = valueMatch(expectedValue, actualValue)
		}
		fieldMatches[field] = matched
		if matched {
			matchedWeight += weight
		}
	}

	if totalWeight == 0 {
		return 0.0, fieldMatches
	}
	return matchedWeight / totalWeight, fieldMatches
}

// nameMatch applies the layered item-name heuristic, short-circuiting on
// the first success: exact normalized equality, substring containment
// either direction, mark-stripped containment (catches kana voicing
// mistakes like ポンプ vs ホンプ), then token overlap of at least half the
// smaller word set.
func nameMatch(expected, actual any) bool {
	if expected == nil || actual == nil {
		return false
	}

	expectedText := normalize.Text(expected)
	actualText := normalize.Text(actual)

	if expectedText == actualText {
		return true
	}
	if strings.Contains(actualText, expectedText) || strings.Contains(expectedText, actualText) {
		return true
	}

	expectedStripped := normalize.StripMarks(expectedText)
	actualStripped := normalize.StripMarks(actualText)
	if strings.Contains(actualStripped, expectedStripped) || strings.Contains(expectedStripped, actualStripped) {
		return true
	}

	expectedTokens := normalize.Tokens(expectedText)
	actualTokens := normalize.Tokens(actualText)
	if len(expectedTokens) == 0 || len(actualTokens) == 0 {
		return false
	}
	common := 0
	for word := range expectedTokens {
		if _, ok := actualTokens[word]; ok {
			common++
		}
	}
	smaller := len(expectedTokens)
	if len(actualTokens) < smaller {
		smaller = len(actualTokens)
	}
	return float64(common)/float64(smaller) >= 0.5
}

// valueMatch compares non-name sub-fields: numerically with a tight
// tolerance when both sides parse as numbers, otherwise as canonical text.
func valueMatch(expected, actual any) bool {
	if normalize.IsEmpty(expected) && normalize.IsEmpty(actual) {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	expectedAmount, expectedErr := normalize.Amount(expected)
	actualAmount, actualErr := normalize.Amount(actual)
	if expectedErr == nil && actualErr == nil {
		return expectedAmount.Sub(actualAmount).Abs().Cmp(numericTolerance) < 0
	}

	return normalize.Text(expected) == normalize.Text(actual)
}

// unionKeys returns the sorted union of both records' key sets. Sorting
// keeps similarity evaluation order, and therefore the whole match run,
// deterministic.
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
