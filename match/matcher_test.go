package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/datar-psa/extracteval/api"
)

func item(name string, quantity, price any) api.Record {
	return api.Record{"name": name, "quantity": quantity, "price": price}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMatchEdgeCases(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	t.Run("both empty", func(t *testing.T) {
		score, matches := m.Match(ctx, nil, nil)
		if score != 1.0 {
			t.Errorf("score = %v, want 1.0", score)
		}
		if len(matches) != 0 {
			t.Errorf("matches = %v, want empty", matches)
		}
	})

	t.Run("expected empty actual non-empty", func(t *testing.T) {
		score, matches := m.Match(ctx, nil, []api.Record{item("pump", 1, 100)})
		if score != 0.0 {
			t.Errorf("score = %v, want 0.0", score)
		}
		if len(matches) != 0 {
			t.Errorf("matches = %v, want empty", matches)
		}
	})

	t.Run("expected non-empty actual empty", func(t *testing.T) {
		expected := []api.Record{item("pump", 1, 100), item("motor", 2, 200)}
		score, matches := m.Match(ctx, expected, nil)
		if score != 0.0 {
			t.Errorf("score = %v, want 0.0", score)
		}
		if len(matches) != len(expected) {
			t.Fatalf("len(matches) = %d, want %d", len(matches), len(expected))
		}
		for i, match := range matches {
			if match.MatchedItem != nil {
				t.Errorf("matches[%d].MatchedItem = %v, want nil", i, match.MatchedItem)
			}
			if match.MatchScore != 0.0 {
				t.Errorf("matches[%d].MatchScore = %v, want 0.0", i, match.MatchScore)
			}
		}
	})
}

func TestMatchReorderedIdenticalLists(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	a := item("pump unit", 1, 1000)
	b := item("motor", 2, 500)
	c := item("bracket", 10, 30)

	score, matches := m.Match(ctx, []api.Record{a, b, c}, []api.Record{c, a, b})
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0 for identical lists in different order", score)
	}
	for i, match := range matches {
		if match.MatchScore != 1.0 {
			t.Errorf("matches[%d].MatchScore = %v, want 1.0", i, match.MatchScore)
		}
	}
	if !reflect.DeepEqual(matches[0].MatchedItem, a) {
		t.Errorf("matches[0] paired with %v, want %v", matches[0].MatchedItem, a)
	}
}

func TestMatchPartialOverlap(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	expected := []api.Record{
		item("pump", 1, 1000),
		item("valve", 3, 250),
		item("gasket", 8, 40),
	}
	actual := []api.Record{item("pump", 1, 1000)}

	score, matches := m.Match(ctx, expected, actual)
	if !almostEqual(score, 1.0/3.0) {
		t.Errorf("score = %v, want 1/3", score)
	}
	if matches[0].MatchedItem == nil || matches[0].MatchScore != 1.0 {
		t.Errorf("matches[0] = %+v, want full match", matches[0])
	}
	for _, i := range []int{1, 2} {
		if matches[i].MatchedItem != nil {
			t.Errorf("matches[%d].MatchedItem = %v, want nil", i, matches[i].MatchedItem)
		}
		if matches[i].MatchScore != 0.0 {
			t.Errorf("matches[%d].MatchScore = %v, want 0.0", i, matches[i].MatchScore)
		}
	}
}

func TestMatchGreedyTieBreaks(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	// two actual items identical to each other: the earliest index wins,
	// and the earlier expected item gets first pick
	expected := []api.Record{item("bolt", 10, 5), item("bolt", 10, 5)}
	actual := []api.Record{item("bolt", 10, 5), item("bolt", 10, 5)}

	score, matches := m.Match(ctx, expected, actual)
	if score != 1.0 {
		t.Fatalf("score = %v, want 1.0", score)
	}
	if !reflect.DeepEqual(matches[0].MatchedItem, actual[0]) {
		t.Errorf("matches[0] should take the earliest actual index")
	}
	if !reflect.DeepEqual(matches[1].MatchedItem, actual[1]) {
		t.Errorf("matches[1] should take the remaining actual item")
	}
}

func TestSimilarityEmptyFieldsExcludedFromDenominator(t *testing.T) {
	m := NewMatcher()

	// note is empty on both sides: recorded as matching, not weighted
	expected := api.Record{"name": "pump", "note": "", "price": 100}
	actual := api.Record{"name": "pump", "note": nil, "price": 200}

	score, fieldMatches := m.similarity(expected, actual)

	if !fieldMatches["note"] {
		t.Errorf("empty/empty note should be recorded as matching")
	}
	if !fieldMatches["name"] || fieldMatches["price"] {
		t.Errorf("fieldMatches = %v, want name matched and price not", fieldMatches)
	}
	// name 3.0 matched, price 2.0 not; note excluded: 3/5
	if !almostEqual(score, 3.0/5.0) {
		t.Errorf("score = %v, want 0.6", score)
	}
}

func TestSimilarityAllEmptyScoresZero(t *testing.T) {
	m := NewMatcher()
	score, _ := m.similarity(api.Record{"name": "", "price": 0}, api.Record{"name": nil, "price": 0})
	if score != 0.0 {
		t.Errorf("score = %v, want 0.0 when every field is empty on both sides", score)
	}
}

func TestNameMatchHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{name: "exact", expected: "pump", actual: "Pump ", want: true},
		{name: "substring containment", expected: "モータ", actual: "ホンプモータユニット", want: true},
		{name: "containment reversed", expected: "pump motor unit", actual: "motor", want: true},
		{name: "kana voicing difference", expected: "ポンプ", actual: "ホンプユニット", want: true},
		{name: "token overlap at half", expected: "hydraulic pump unit set", actual: "pump unit", want: true},
		{name: "token overlap below half", expected: "hydraulic pump unit set", actual: "gasket kit pump seal", want: false},
		{name: "unrelated", expected: "pump", actual: "valve", want: false},
		{name: "nil side", expected: nil, actual: "pump", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nameMatch(tt.expected, tt.actual); got != tt.want {
				t.Errorf("nameMatch(%v, %v) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestValueMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{name: "numeric with separator", expected: "1,000", actual: 1000, want: true},
		{name: "numeric tolerance", expected: 10.001, actual: 10.002, want: true},
		{name: "numeric mismatch", expected: 100, actual: 101, want: false},
		{name: "text fallback", expected: "Set ", actual: "set", want: true},
		{name: "text mismatch", expected: "set", actual: "kit", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := valueMatch(tt.expected, tt.actual); got != tt.want {
				t.Errorf("valueMatch(%v, %v) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

// stubExternalMatcher is a deterministic ExternalMatcher for unit tests
type stubExternalMatcher struct {
	matches []api.IndexMatch
	err     error
	calls   int
}

func (s *stubExternalMatcher) MatchItems(ctx context.Context, expectedItems, actualItems []api.Record) ([]api.IndexMatch, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func TestMatchExternalConfidencePassThrough(t *testing.T) {
	ctx := context.Background()
	stub := &stubExternalMatcher{
		matches: []api.IndexMatch{
			{ExpectedIndex: 0, ActualIndex: 1, Confidence: 0.9, Reason: "name and quantity agree"},
			{ExpectedIndex: 1, ActualIndex: api.UnmatchedIndex, Confidence: 0.0, Reason: "no counterpart"},
		},
	}
	m := NewMatcher(WithExternalMatcher(stub))

	expected := []api.Record{item("pump", 1, 1000), item("valve", 3, 250)}
	actual := []api.Record{item("gasket", 8, 40), item("pump", 1, 1000)}

	score, matches := m.Match(ctx, expected, actual)

	if stub.calls != 1 {
		t.Fatalf("external matcher called %d times, want 1", stub.calls)
	}
	if matches[0].MatchScore != 0.9 {
		t.Errorf("matches[0].MatchScore = %v, want external confidence 0.9", matches[0].MatchScore)
	}
	if matches[0].MatchReason != "name and quantity agree" {
		t.Errorf("matches[0].MatchReason = %q", matches[0].MatchReason)
	}
	if !reflect.DeepEqual(matches[0].MatchedItem, actual[1]) {
		t.Errorf("matches[0] paired with %v, want actual[1]", matches[0].MatchedItem)
	}
	// field breakdown still computed locally for the selected pair
	if !matches[0].FieldMatches["name"] {
		t.Errorf("matches[0].FieldMatches = %v, want local name agreement", matches[0].FieldMatches)
	}
	if matches[1].MatchedItem != nil || matches[1].MatchScore != 0.0 {
		t.Errorf("matches[1] = %+v, want unmatched", matches[1])
	}
	if !almostEqual(score, 0.45) {
		t.Errorf("score = %v, want 0.45", score)
	}
}

func TestMatchExternalFailureDegradesAndLogs(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	stub := &stubExternalMatcher{err: errors.New("upstream timeout")}
	m := NewMatcher(WithExternalMatcher(stub), WithLogger(zap.New(core)))

	expected := []api.Record{item("pump", 1, 1000), item("valve", 3, 250)}
	actual := []api.Record{item("pump", 1, 1000)}

	score, matches := m.Match(ctx, expected, actual)

	if score != 0.0 {
		t.Errorf("score = %v, want 0.0 after degradation", score)
	}
	for i, match := range matches {
		if match.MatchedItem != nil || match.MatchScore != 0.0 {
			t.Errorf("matches[%d] = %+v, want unmatched", i, match)
		}
	}
	if logs.FilterMessage("external matcher failed, degrading to unmatched").Len() != 1 {
		t.Errorf("expected one degradation warning, got %d log entries", logs.Len())
	}
}

func TestMatchExternalMalformedResponseRepaired(t *testing.T) {
	ctx := context.Background()
	stub := &stubExternalMatcher{
		matches: []api.IndexMatch{
			{ExpectedIndex: 5, ActualIndex: 0, Confidence: 1.0},  // out of range, dropped
			{ExpectedIndex: 0, ActualIndex: 9, Confidence: 1.0},  // actual out of range: unmatched
			{ExpectedIndex: 0, ActualIndex: 0, Confidence: 0.5},  // duplicate expected index, ignored
			{ExpectedIndex: 1, ActualIndex: 0, Confidence: 1.25}, // confidence clamped
		},
	}
	m := NewMatcher(WithExternalMatcher(stub))

	expected := []api.Record{item("pump", 1, 1000), item("valve", 3, 250)}
	actual := []api.Record{item("valve", 3, 250)}

	score, matches := m.Match(ctx, expected, actual)

	if matches[0].MatchedItem != nil {
		t.Errorf("matches[0] should be unmatched when the actual index is out of range")
	}
	if matches[1].MatchScore != 1.0 {
		t.Errorf("matches[1].MatchScore = %v, want confidence clamped to 1.0", matches[1].MatchScore)
	}
	if !almostEqual(score, 0.5) {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestRealign(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	pump := item("pump", 1, 1000)
	valve := item("valve", 3, 250)
	gasket := item("gasket", 8, 40)

	// expected has pump+valve, actual has valve+gasket: one matched pair,
	// one unmatched expected, one surplus actual
	expectedOut, actualOut := m.Realign(ctx, []api.Record{pump, valve}, []api.Record{valve, gasket})

	if len(expectedOut) != 3 || len(actualOut) != 3 {
		t.Fatalf("realigned lengths = %d/%d, want 3/3", len(expectedOut), len(actualOut))
	}
	// matched pair shares index 0
	if !reflect.DeepEqual(expectedOut[0], valve) || !reflect.DeepEqual(actualOut[0], valve) {
		t.Errorf("slot 0 = %v/%v, want the matched valve pair", expectedOut[0], actualOut[0])
	}
	// unmatched expected pump against empty placeholder
	if !reflect.DeepEqual(expectedOut[1], pump) || len(actualOut[1]) != 0 {
		t.Errorf("slot 1 = %v/%v, want pump against empty", expectedOut[1], actualOut[1])
	}
	// surplus actual gasket against empty placeholder
	if len(expectedOut[2]) != 0 || !reflect.DeepEqual(actualOut[2], gasket) {
		t.Errorf("slot 2 = %v/%v, want empty against gasket", expectedOut[2], actualOut[2])
	}
}

func TestRealignEmptySides(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	expectedOut, actualOut := m.Realign(ctx, nil, nil)
	if expectedOut != nil || actualOut != nil {
		t.Errorf("Realign(nil, nil) = %v/%v, want nil/nil", expectedOut, actualOut)
	}

	gasket := item("gasket", 8, 40)
	expectedOut, actualOut = m.Realign(ctx, nil, []api.Record{gasket})
	if len(expectedOut) != 1 || len(expectedOut[0]) != 0 || !reflect.DeepEqual(actualOut[0], gasket) {
		t.Errorf("surplus actual should pair with an empty expected placeholder")
	}
}

func TestItemsResult(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	pump := item("pump", 1, 1000)

	correct := m.ItemsResult(ctx, []api.Record{pump}, []api.Record{pump}, 5.0)
	if !correct.IsCorrect || correct.Score != 5.0 {
		t.Errorf("identical lists should roll up correct with full score, got %+v", correct)
	}
	if acc, ok := correct.Details["items_accuracy"].(float64); !ok || acc != 1.0 {
		t.Errorf("items_accuracy detail = %v, want 1.0", correct.Details["items_accuracy"])
	}

	incorrect := m.ItemsResult(ctx, []api.Record{pump, item("valve", 3, 250)}, []api.Record{pump}, 5.0)
	if incorrect.IsCorrect || incorrect.Score != 0.0 {
		t.Errorf("half-matched list should roll up incorrect with zero score, got %+v", incorrect)
	}
}

func TestMatchDeterminism(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	expected := []api.Record{
		item("pump unit", 1, 1000),
		item("pump", 2, 500),
		item("valve", 3, 250),
	}
	actual := []api.Record{
		item("pump", 2, 500),
		item("pump unit", 1, 1000),
		item("bracket", 10, 30),
	}

	firstScore, firstMatches := m.Match(ctx, expected, actual)
	for i := 0; i < 10; i++ {
		score, matches := m.Match(ctx, expected, actual)
		if score != firstScore {
			t.Fatalf("run %d score = %v, want %v", i, score, firstScore)
		}
		if fmt.Sprintf("%+v", matches) != fmt.Sprintf("%+v", firstMatches) {
			t.Fatalf("run %d matches differ from first run", i)
		}
	}
}
