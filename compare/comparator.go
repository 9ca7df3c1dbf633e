// Package compare holds the per-field comparison strategies and the
// registry that routes field names to them. The strategy set is closed:
// simple text, amount with a parameterizable absolute tolerance, and
// calendar date.
package compare

import (
	"github.com/shopspring/decimal"

	"github.com/datar-psa/extracteval/api"
	"github.com/datar-psa/extracteval/normalize"
)

type kind int

const (
	kindSimple kind = iota
	kindAmount
	kindDate
)

// Comparator evaluates one expected/actual scalar pair under a fixed
// strategy. The zero value is the Simple comparator.
type Comparator struct {
	kind      kind
	tolerance decimal.Decimal
	inclusive bool
}

// Simple compares canonical text: case-insensitive, whitespace-trimmed.
func Simple() Comparator {
	return Comparator{kind: kindSimple}
}

// Amount compares values as monetary amounts with the default absolute
// tolerance of 0.01. The tolerance is deliberately tight: monetary fields
// are typically integer currency units.
func Amount() Comparator {
	return AmountWithin(0.01)
}

// AmountWithin compares amounts with a strict absolute tolerance
// (|expected - actual| < tolerance).
func AmountWithin(tolerance float64) Comparator {
	return Comparator{kind: kindAmount, tolerance: decimal.NewFromFloat(tolerance)}
}

// AmountWithinInclusive compares amounts with an inclusive absolute
// tolerance (|expected - actual| <= tolerance). Used for fields derived by
// downstream calculation, such as tax, that legitimately differ by small
// rounding amounts.
func AmountWithinInclusive(tolerance float64) Comparator {
	return Comparator{kind: kindAmount, tolerance: decimal.NewFromFloat(tolerance), inclusive: true}
}

// Date compares values as calendar dates at day granularity.
func Date() Comparator {
	return Comparator{kind: kindDate}
}

// Compare evaluates the pair and produces a field result. Null handling is
// shared across strategies: both nil is correct, exactly one nil is
// incorrect. A value that fails to parse under the amount or date strategy
// degrades to the simple text comparison for that field; a parse failure
// never aborts evaluation of a document.
func (c Comparator) Compare(fieldName string, expected, actual any, weight float64, itemIndex *int) api.FieldResult {
	if expected == nil && actual == nil {
		return api.CorrectResult(fieldName, expected, actual, weight, itemIndex)
	}
	if expected == nil || actual == nil {
		return api.IncorrectResult(fieldName, expected, actual, weight, itemIndex)
	}

	var matched bool
	switch c.kind {
	case kindAmount:
		matched = c.amountMatch(expected, actual)
	case kindDate:
		matched = dateMatch(expected, actual)
	default:
		matched = textMatch(expected, actual)
	}

	if matched {
		return api.CorrectResult(fieldName, expected, actual, weight, itemIndex)
	}
	return api.IncorrectResult(fieldName, expected, actual, weight, itemIndex)
}

func textMatch(expected, actual any) bool {
	return normalize.Text(expected) == normalize.Text(actual)
}

func (c Comparator) amountMatch(expected, actual any) bool {
	expectedAmount, expectedErr := normalize.Amount(expected)
	actualAmount, actualErr := normalize.Amount(actual)
	if expectedErr != nil || actualErr != nil {
		return textMatch(expected, actual)
	}

	diff := expectedAmount.Sub(actualAmount).Abs()
	if c.inclusive {
		return diff.Cmp(c.tolerance) <= 0
	}
	return diff.Cmp(c.tolerance) < 0
}

func dateMatch(expected, actual any) bool {
	expectedDate, expectedErr := normalize.Date(expected)
	actualDate, actualErr := normalize.Date(actual)
	if expectedErr != nil || actualErr != nil {
		return textMatch(expected, actual)
	}
	return expectedDate.Equal(actualDate)
}
