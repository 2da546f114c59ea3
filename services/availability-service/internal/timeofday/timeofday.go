// Package timeofday holds minute-of-day arithmetic shared by every availability component.
package timeofday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the exclusive upper bound of a day; an all-day interval is [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

var ErrInvalidTimeFormat = errors.New("invalid time format")

// Minute is a wall-clock time expressed as minutes since local midnight.
type Minute int

func (m Minute) Add(minutes int) Minute {
	return m + Minute(minutes)
}

// String formats m as HH:MM. MinutesPerDay formats as 24:00.
func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share at least one minute.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Minute) bool {
	return aStart < bEnd && aEnd > bStart
}

// Parse accepts HH:MM or HH:MM:SS. Seconds are validated and then discarded.
// 24:00 and 24:00:00 are accepted as the end of the day.
func Parse(text string) (Minute, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}

	limits := []int{24, 59, 59}
	values := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 || p[0] < '0' || p[0] > '9' || p[1] < '0' || p[1] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
		}
		values[i] = n
	}
	if values[0] == 24 && (values[1] != 0 || len(values) == 3 && values[2] != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}
	return Minute(values[0]*60 + values[1]), nil
}

// ParseInterval parses "HH:MM-HH:MM".
func ParseInterval(text string) (Interval, error) {
	start, end, ok := strings.Cut(text, "-")
	if !ok {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}
	s, err := Parse(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}
