package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotADate is returned when no layout in the candidate list matches
var ErrNotADate = errors.New("value is not a date")

// dateLayouts is the ordered candidate list; the first full parse wins.
// Unpadded layouts accept both "2024-1-5" and "2024-01-05". The US reading
// deliberately precedes the day-first one, so ambiguous slash dates resolve
// as MM/DD/YYYY.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006年1月2日",
	"1/2/2006",
	"2/1/2006",
}

// Date parses a raw scalar into a calendar date, normalized to midnight UTC
// so that comparisons are at day granularity.
func Date(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return midnight(t), nil
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrNotADate, s)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
