package aggregate

import (
	"math"
	"testing"

	"github.com/datar-psa/extracteval/api"
)

func sampleResults() []api.FieldResult {
	return []api.FieldResult{
		api.CorrectResult("doc_number", "INV-001", "INV-001", 1.0, nil),
		api.IncorrectResult("doc_date", "2024-01-15", "2024-02-15", 2.0, nil),
		api.CorrectResult("total_price", 1000, 1000, 3.0, nil),
		api.CorrectResult("items.name", "pump", "pump", 3.0, api.Index(0)),
		api.CorrectResult("items.price", 100, 100, 2.0, api.Index(0)),
		api.IncorrectResult("items.name", "motor", nil, 3.0, api.Index(1)),
		api.IncorrectResult("items.price", 200, nil, 2.0, api.Index(1)),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOverallAccuracy(t *testing.T) {
	analysis := New(sampleResults())

	// score 1+3+3+2 = 9, weight 1+2+3+3+2+3+2 = 16
	want := 9.0 / 16.0
	if got := analysis.OverallAccuracy(); !almostEqual(got, want) {
		t.Errorf("OverallAccuracy() = %v, want %v", got, want)
	}
}

func TestOverallAccuracyEmpty(t *testing.T) {
	analysis := New(nil)
	if got := analysis.OverallAccuracy(); got != 0 {
		t.Errorf("OverallAccuracy() on empty results = %v, want 0", got)
	}
}

func TestItemsAccuracy(t *testing.T) {
	analysis := New(sampleResults())

	// items score 3+2 = 5, items weight 3+2+3+2 = 10
	want := 0.5
	if got := analysis.ItemsAccuracy(); !almostEqual(got, want) {
		t.Errorf("ItemsAccuracy() = %v, want %v", got, want)
	}
}

func TestByFieldName(t *testing.T) {
	analysis := New(sampleResults())

	names := analysis.ByFieldName("items.name")
	if len(names) != 2 {
		t.Fatalf("ByFieldName(items.name) returned %d results, want 2", len(names))
	}
	for _, r := range names {
		if r.FieldName != "items.name" {
			t.Errorf("unexpected field name %q", r.FieldName)
		}
	}

	if got := analysis.ByFieldName("missing"); got != nil {
		t.Errorf("ByFieldName(missing) = %v, want nil", got)
	}
}

func TestByItemIndex(t *testing.T) {
	analysis := New(sampleResults())

	first := analysis.ByItemIndex(0)
	if len(first) != 2 {
		t.Fatalf("ByItemIndex(0) returned %d results, want 2", len(first))
	}
	for _, r := range first {
		if !r.IsCorrect {
			t.Errorf("ByItemIndex(0) result %q should be correct", r.FieldName)
		}
	}

	// scalar fields carry no index and never match
	if got := analysis.ByItemIndex(99); got != nil {
		t.Errorf("ByItemIndex(99) = %v, want nil", got)
	}
}

func TestByFieldAndItem(t *testing.T) {
	analysis := New(sampleResults())

	result, ok := analysis.ByFieldAndItem("items.price", 1)
	if !ok {
		t.Fatal("ByFieldAndItem(items.price, 1) not found")
	}
	if result.IsCorrect {
		t.Error("items.price[1] should be incorrect")
	}

	if _, ok := analysis.ByFieldAndItem("doc_number", 0); ok {
		t.Error("scalar field should not resolve by item index")
	}
}

func TestItemsVsNonItemsSplit(t *testing.T) {
	analysis := New(sampleResults())

	items := analysis.ItemsResults()
	scalars := analysis.NonItemsResults()
	if len(items) != 4 {
		t.Errorf("ItemsResults() returned %d results, want 4", len(items))
	}
	if len(scalars) != 3 {
		t.Errorf("NonItemsResults() returned %d results, want 3", len(scalars))
	}
	if len(items)+len(scalars) != len(sampleResults()) {
		t.Error("split should partition the full result list")
	}
}

func TestItemSummaries(t *testing.T) {
	analysis := New(sampleResults())

	summaries := analysis.ItemSummaries()
	if len(summaries) != 2 {
		t.Fatalf("ItemSummaries() returned %d entries, want 2", len(summaries))
	}

	first, ok := summaries[0]
	if !ok {
		t.Fatal("missing summary for item 0")
	}
	if !almostEqual(first.Accuracy, 1.0) {
		t.Errorf("item 0 accuracy = %v, want 1.0", first.Accuracy)
	}
	if first.FieldCount != 2 {
		t.Errorf("item 0 field count = %d, want 2", first.FieldCount)
	}

	second, ok := summaries[1]
	if !ok {
		t.Fatal("missing summary for item 1")
	}
	if !almostEqual(second.Accuracy, 0.0) {
		t.Errorf("item 1 accuracy = %v, want 0.0", second.Accuracy)
	}
	if !almostEqual(second.TotalWeight, 5.0) {
		t.Errorf("item 1 total weight = %v, want 5.0", second.TotalWeight)
	}
}

func TestFieldSummaries(t *testing.T) {
	analysis := New(sampleResults())

	summaries := analysis.FieldSummaries()

	// each item sub-field result gets its own display-name key
	if _, ok := summaries["items.name[0]"]; !ok {
		t.Error("missing summary for items.name[0]")
	}
	if _, ok := summaries["items.name[1]"]; !ok {
		t.Error("missing summary for items.name[1]")
	}

	docDate, ok := summaries["doc_date"]
	if !ok {
		t.Fatal("missing summary for doc_date")
	}
	if docDate.CorrectCount != 0 || docDate.TotalCount != 1 {
		t.Errorf("doc_date counts = %d/%d, want 0/1", docDate.CorrectCount, docDate.TotalCount)
	}
	if !almostEqual(docDate.Accuracy, 0) || !almostEqual(docDate.WeightedAccuracy, 0) {
		t.Errorf("doc_date accuracies = %v/%v, want 0/0", docDate.Accuracy, docDate.WeightedAccuracy)
	}

	total, ok := summaries["total_price"]
	if !ok {
		t.Fatal("missing summary for total_price")
	}
	if !almostEqual(total.WeightedAccuracy, 1.0) {
		t.Errorf("total_price weighted accuracy = %v, want 1.0", total.WeightedAccuracy)
	}
	if !almostEqual(total.TotalScore, 3.0) || !almostEqual(total.TotalWeight, 3.0) {
		t.Errorf("total_price score/weight = %v/%v, want 3/3", total.TotalScore, total.TotalWeight)
	}
}

func TestFieldAccuracies(t *testing.T) {
	analysis := New(sampleResults())

	accuracies := analysis.FieldAccuracies()
	want := map[string]bool{
		"doc_number":     true,
		"doc_date":       false,
		"total_price":    true,
		"items.name[0]":  true,
		"items.price[0]": true,
		"items.name[1]":  false,
		"items.price[1]": false,
	}
	if len(accuracies) != len(want) {
		t.Fatalf("FieldAccuracies() returned %d entries, want %d", len(accuracies), len(want))
	}
	for name, correct := range want {
		if accuracies[name] != correct {
			t.Errorf("FieldAccuracies()[%q] = %v, want %v", name, accuracies[name], correct)
		}
	}
}

func TestScoreNeverExceedsWeight(t *testing.T) {
	analysis := New(sampleResults())

	for name, summary := range analysis.FieldSummaries() {
		if summary.TotalScore > summary.TotalWeight {
			t.Errorf("field %q: score %v exceeds weight %v", name, summary.TotalScore, summary.TotalWeight)
		}
	}
	if got := analysis.OverallAccuracy(); got < 0 || got > 1 {
		t.Errorf("OverallAccuracy() = %v, want value in [0,1]", got)
	}
}
