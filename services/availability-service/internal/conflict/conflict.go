// Package conflict answers whether one candidate appointment collides with the unavailable set.
package conflict

import (
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
)

type Result struct {
	Blocked bool               `json:"blocked"`
	Reason  string             `json:"reason,omitempty"`
	Source  constraints.Source `json:"source,omitempty"`
}

// Sources reported in addition to constraints.SourceBlock and constraints.SourceBooking.
const (
	SourceClosed constraints.Source = "closed"
	SourceHours  constraints.Source = "hours"
	SourceBreak  constraints.Source = "break"
)

var (
	// Free is the zero Result.
	Free      = Result{}
	ClosedDay = Result{Blocked: true, Reason: "closed", Source: SourceClosed}
)

// Check reports the first entry of unavailable that overlaps [start, start+duration).
//
// ignore is the caller's own booking: the first booking entry whose [Start, End) equals it is skipped,
// once. Blocks are never skipped, and a second booking on the same interval still blocks.
func Check(start timeofday.Minute, duration int, unavailable []constraints.UnavailableInterval, ignore *timeofday.Interval) Result {
	end := start.Add(duration)
	skipped := false
	for _, u := range unavailable {
		if !skipped && ignore != nil && u.Source == constraints.SourceBooking && u.Interval() == *ignore {
			skipped = true
			continue
		}
		if !timeofday.Overlaps(start, end, u.Start, u.End) {
			continue
		}
		return Result{Blocked: true, Reason: u.Reason, Source: u.Source}
	}
	return Free
}

// Validate applies the window rules before Check: a closed day, a candidate outside
// [Open, Close) or one crossing the break is blocked with the matching source.
func Validate(window calendar.DayWindow, start timeofday.Minute, duration int, unavailable []constraints.UnavailableInterval, ignore *timeofday.Interval) Result {
	if !window.IsOpen {
		return ClosedDay
	}
	end := start.Add(duration)
	if duration <= 0 || start < window.Open || end > window.Close {
		return Result{Blocked: true, Reason: "outside operating hours", Source: SourceHours}
	}
	if b := window.Break; b != nil && timeofday.Overlaps(start, end, b.Start, b.End) {
		return Result{Blocked: true, Reason: "break", Source: SourceBreak}
	}
	return Check(start, duration, unavailable, ignore)
}
