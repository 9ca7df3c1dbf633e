package extracteval

import (
	"errors"
	"fmt"

	"github.com/datar-psa/extracteval/compare"
)

var (
	// ErrUnknownStrategy is returned when a field is bound to a comparator
	// strategy that has not been registered
	ErrUnknownStrategy = compare.ErrUnknownStrategy
	// ErrInvalidWeight is returned when a weight table entry is negative or
	// not a number
	ErrInvalidWeight = errors.New("field weight must be a non-negative number")
)

func invalidWeightError(field string) error {
	return fmt.Errorf("%w: %q", ErrInvalidWeight, field)
}
