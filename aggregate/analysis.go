// Package aggregate provides pure, read-only rollup views over a flat list
// of field results: overall accuracy, per-field and per-item summaries, and
// filters.
package aggregate

import (
	"strings"

	"github.com/datar-psa/extracteval/api"
)

// itemsPrefix identifies line-item sub-field results.
const itemsPrefix = "items."

// Analysis wraps a result list. It never mutates the list; all views are
// computed on demand.
type Analysis struct {
	results []api.FieldResult
}

// New creates an analysis over the given results.
func New(results []api.FieldResult) *Analysis {
	return &Analysis{results: results}
}

// OverallAccuracy is the weighted accuracy over all results: total score
// divided by total weight, 0 when the total weight is 0. The value is
// always in [0,1] because each score is either its weight or zero.
func (a *Analysis) OverallAccuracy() float64 {
	return weightedAccuracy(a.results)
}

// ItemsAccuracy is the weighted accuracy restricted to line-item results.
func (a *Analysis) ItemsAccuracy() float64 {
	return weightedAccuracy(a.ItemsResults())
}

// ByFieldName returns the results whose field name matches exactly.
func (a *Analysis) ByFieldName(fieldName string) []api.FieldResult {
	var out []api.FieldResult
	for _, r := range a.results {
		if r.FieldName == fieldName {
			out = append(out, r)
		}
	}
	return out
}

// ByItemIndex returns the results belonging to one aligned item pair.
func (a *Analysis) ByItemIndex(itemIndex int) []api.FieldResult {
	var out []api.FieldResult
	for _, r := range a.results {
		if r.ItemIndex != nil && *r.ItemIndex == itemIndex {
			out = append(out, r)
		}
	}
	return out
}

// ByFieldAndItem returns the single result for a field within one item
// pair, if present.
func (a *Analysis) ByFieldAndItem(fieldName string, itemIndex int) (api.FieldResult, bool) {
	for _, r := range a.results {
		if r.FieldName == fieldName && r.ItemIndex != nil && *r.ItemIndex == itemIndex {
			return r, true
		}
	}
	return api.FieldResult{}, false
}

// ItemsResults returns the line-item sub-field results.
func (a *Analysis) ItemsResults() []api.FieldResult {
	var out []api.FieldResult
	for _, r := range a.results {
		if strings.HasPrefix(r.FieldName, itemsPrefix) {
			out = append(out, r)
		}
	}
	return out
}

// NonItemsResults returns the top-level scalar results.
func (a *Analysis) NonItemsResults() []api.FieldResult {
	var out []api.FieldResult
	for _, r := range a.results {
		if !strings.HasPrefix(r.FieldName, itemsPrefix) {
			out = append(out, r)
		}
	}
	return out
}

// ItemSummary aggregates one aligned item pair.
type ItemSummary struct {
	Accuracy    float64 `json:"accuracy"`
	TotalScore  float64 `json:"total_score"`
	TotalWeight float64 `json:"total_weight"`
	FieldCount  int     `json:"field_count"`
}

// ItemSummaries groups line-item results by pair index and reports each
// pair's weighted accuracy.
func (a *Analysis) ItemSummaries() map[int]ItemSummary {
	grouped := make(map[int][]api.FieldResult)
	for _, r := range a.ItemsResults() {
		if r.ItemIndex == nil {
			continue
		}
		grouped[*r.ItemIndex] = append(grouped[*r.ItemIndex], r)
	}

	summaries := make(map[int]ItemSummary, len(grouped))
	for index, results := range grouped {
		var score, weight float64
		for _, r := range results {
			score += r.Score
			weight += r.Weight
		}
		summaries[index] = ItemSummary{
			Accuracy:    weightedAccuracy(results),
			TotalScore:  score,
			TotalWeight: weight,
			FieldCount:  len(results),
		}
	}
	return summaries
}

// FieldSummary aggregates all results sharing a display name.
type FieldSummary struct {
	// Accuracy is the unweighted correct/total ratio
	Accuracy float64 `json:"accuracy"`
	// WeightedAccuracy is total score over total weight
	WeightedAccuracy float64 `json:"weighted_accuracy"`
	CorrectCount     int     `json:"correct_count"`
	TotalCount       int     `json:"total_count"`
	TotalScore       float64 `json:"total_score"`
	TotalWeight      float64 `json:"total_weight"`
}

// FieldSummaries groups results by display name, where item sub-fields are
// keyed as "items.price[2]".
func (a *Analysis) FieldSummaries() map[string]FieldSummary {
	grouped := make(map[string][]api.FieldResult)
	for _, r := range a.results {
		name := r.DisplayName()
		grouped[name] = append(grouped[name], r)
	}

	summaries := make(map[string]FieldSummary, len(grouped))
	for name, results := range grouped {
		var score, weight float64
		correct := 0
		for _, r := range results {
			score += r.Score
			weight += r.Weight
			if r.IsCorrect {
				correct++
			}
		}
		summary := FieldSummary{
			WeightedAccuracy: weightedAccuracy(results),
			CorrectCount:     correct,
			TotalCount:       len(results),
			TotalScore:       score,
			TotalWeight:      weight,
		}
		if len(results) > 0 {
			summary.Accuracy = float64(correct) / float64(len(results))
		}
		summaries[name] = summary
	}
	return summaries
}

// FieldAccuracies maps each display name to whether its result was correct.
func (a *Analysis) FieldAccuracies() map[string]bool {
	out := make(map[string]bool, len(a.results))
	for _, r := range a.results {
		out[r.DisplayName()] = r.IsCorrect
	}
	return out
}

func weightedAccuracy(results []api.FieldResult) float64 {
	var score, weight float64
	for _, r := range results {
		score += r.Score
		weight += r.Weight
	}
	if weight == 0 {
		return 0
	}
	return score / weight
}
