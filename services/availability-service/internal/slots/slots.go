// Package slots walks an operating window and yields the bookable start times.
package slots

import (
	"iter"
	"slices"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
)

// Generate yields, in ascending order, every start time s = Open + k*step such that
// [s, s+duration) fits inside the window and overlaps neither the break nor any unavailable interval.
//
// A closed window or a non-positive duration or step yields nothing. The sequence can be ranged over
// any number of times; each pass recomputes from the same inputs.
func Generate(window calendar.DayWindow, duration, step int, unavailable []constraints.UnavailableInterval) iter.Seq[timeofday.Minute] {
	return func(yield func(timeofday.Minute) bool) {
		if !window.IsOpen || duration <= 0 || step <= 0 {
			return
		}
		for start := window.Open; start.Add(duration) <= window.Close; start = start.Add(step) {
			if Fits(window, start, duration, unavailable) && !yield(start) {
				return
			}
		}
	}
}

// List collects Generate into a slice. The result is nil when nothing is free.
func List(window calendar.DayWindow, duration, step int, unavailable []constraints.UnavailableInterval) []timeofday.Minute {
	return slices.Collect(Generate(window, duration, step, unavailable))
}

// Fits applies the per-candidate rejection rules of Generate without the step grid:
// the candidate must lie inside the open window and avoid the break and every unavailable interval.
func Fits(window calendar.DayWindow, start timeofday.Minute, duration int, unavailable []constraints.UnavailableInterval) bool {
	end := start.Add(duration)
	if !window.IsOpen || duration <= 0 || start < window.Open || end > window.Close {
		return false
	}
	if b := window.Break; b != nil && timeofday.Overlaps(start, end, b.Start, b.End) {
		return false
	}
	for _, u := range unavailable {
		if timeofday.Overlaps(start, end, u.Start, u.End) {
			return false
		}
	}
	return true
}
