package match

import (
	"context"
	"encoding/json"

	"github.com/datar-psa/extracteval/api"
)

// itemsCorrectThreshold marks an item list correct as a whole once its
// overall match score reaches it.
const itemsCorrectThreshold = 0.8

// Realign re-sequences both item lists so that matched pairs occupy the
// same index. Matched pairs come first in expected-list order, then
// unmatched expected items against empty actual placeholders, then
// unmatched actual items against empty expected placeholders. After
// realignment, sub-field comparison is a plain positional walk over the
// two lists.
func (m *Matcher) Realign(ctx context.Context, expectedItems, actualItems []api.Record) ([]api.Record, []api.Record) {
	if len(expectedItems) == 0 && len(actualItems) == 0 {
		return nil, nil
	}

	var pairings []pairing
	if len(expectedItems) > 0 {
		pairings = m.pair(ctx, expectedItems, actualItems)
	}

	size := len(expectedItems)
	if len(actualItems) > size {
		size = len(actualItems)
	}
	expectedOut := make([]api.Record, 0, size)
	actualOut := make([]api.Record, 0, size)
	used := make([]bool, len(actualItems))

	// matched pairs keep expected-list order
	for i, p := range pairings {
		if p.actualIndex == api.UnmatchedIndex {
			continue
		}
		expectedOut = append(expectedOut, expectedItems[i])
		actualOut = append(actualOut, actualItems[p.actualIndex])
		used[p.actualIndex] = true
	}

	// unmatched expected items against empty placeholders
	for i, p := range pairings {
		if p.actualIndex != api.UnmatchedIndex {
			continue
		}
		expectedOut = append(expectedOut, expectedItems[i])
		actualOut = append(actualOut, api.Record{})
	}

	// surplus actual items against empty placeholders
	for j, actual := range actualItems {
		if used[j] {
			continue
		}
		expectedOut = append(expectedOut, api.Record{})
		actualOut = append(actualOut, actual)
	}

	return expectedOut, actualOut
}

// ItemsResult rolls the whole list comparison into a single field result
// for reports that want one row per document. The result is correct when
// the overall match score reaches the threshold; the raw score and the
// per-pair breakdown travel in Details so no information is lost to the
// correct/incorrect flattening.
func (m *Matcher) ItemsResult(ctx context.Context, expectedItems, actualItems []api.Record, weight float64) api.FieldResult {
	overall, matches := m.Match(ctx, expectedItems, actualItems)

	details := map[string]any{
		"items_accuracy": overall,
		"matches":        matches,
	}

	expectedValue := compactJSON(expectedItems)
	actualValue := compactJSON(actualItems)

	if overall >= itemsCorrectThreshold {
		return api.CorrectResult("items", expectedValue, actualValue, weight, nil).WithDetails(details)
	}
	return api.IncorrectResult("items", expectedValue, actualValue, weight, nil).WithDetails(details)
}

func compactJSON(items []api.Record) string {
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}
