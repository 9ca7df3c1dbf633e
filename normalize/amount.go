// Package normalize parses raw extraction values into canonical forms so
// that comparators can work on amounts, dates and text uniformly regardless
// of how the source document rendered them.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotAnAmount is returned when a value cannot be parsed as a monetary amount
var ErrNotAnAmount = errors.New("value is not an amount")

// amountStripper removes thousands separators and common currency symbols
// before numeric parsing.
var amountStripper = strings.NewReplacer(
	",", "",
	"¥", "",
	"￥", "",
	"$", "",
	"€", "",
	"£", "",
)

// Amount parses a raw scalar into a decimal amount. Numeric types convert
// directly; strings are trimmed and stripped of currency symbols and
// thousands separators first. Anything with non-numeric residue fails with
// ErrNotAnAmount.
func Amount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("%w: nil", ErrNotAnAmount)
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return amountFromString(n.String())
	case string:
		return amountFromString(n)
	default:
		return amountFromString(fmt.Sprintf("%v", v))
	}
}

func amountFromString(s string) (decimal.Decimal, error) {
	s = amountStripper.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrNotAnAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAnAmount, s)
	}
	return d, nil
}
