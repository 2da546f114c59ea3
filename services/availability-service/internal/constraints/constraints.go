// Package constraints merges blocked ranges and existing bookings into the unavailable set for one date.
package constraints

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
)

type Source string

const (
	SourceBlock   Source = "block"
	SourceBooking Source = "booking"
)

// BlockRange removes time from every date in [StartDate, EndDate] (inclusive).
// StartTime and EndTime are HH:MM[:SS] text; empty means absent. They are ignored when AllDay is set.
type BlockRange struct {
	StartDate calendar.Date
	EndDate   calendar.Date
	AllDay    bool
	StartTime string
	EndTime   string
	Reason    string
}

func (b BlockRange) Covers(date calendar.Date) bool {
	return !date.Before(b.StartDate) && !date.After(b.EndDate)
}

// BookedInterval is a confirmed, non-cancelled appointment.
type BookedInterval struct {
	Date            calendar.Date
	Start           timeofday.Minute
	DurationMinutes int
}

// UnavailableInterval is derived per query and never mutated after construction.
type UnavailableInterval struct {
	Start  timeofday.Minute
	End    timeofday.Minute
	Reason string
	Source Source
}

func (u UnavailableInterval) Interval() timeofday.Interval {
	return timeofday.Interval{Start: u.Start, End: u.End}
}

type Aggregator struct {
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{logger: logger}
}

// UnavailableIntervals returns block intervals followed by booking intervals, in input order.
// Overlapping entries are not merged.
//
// A partial block missing either time is dropped with a warning; it is never widened to all-day.
// A block whose time is present but unparseable is dropped the same way, so one bad row does not
// take the whole date down.
func (a *Aggregator) UnavailableIntervals(date calendar.Date, blocks []BlockRange, bookings []BookedInterval) ([]UnavailableInterval, error) {
	out := make([]UnavailableInterval, 0, len(blocks)+len(bookings))

	for _, b := range blocks {
		if !b.Covers(date) {
			continue
		}
		if b.AllDay {
			out = append(out, UnavailableInterval{Start: 0, End: timeofday.MinutesPerDay, Reason: b.Reason, Source: SourceBlock})
			continue
		}
		startText := strings.TrimSpace(b.StartTime)
		endText := strings.TrimSpace(b.EndTime)
		if startText == "" || endText == "" {
			a.logger.Warn("dropping malformed block range",
				"date", date.String(),
				"start_date", b.StartDate.String(),
				"end_date", b.EndDate.String(),
				"reason", b.Reason,
			)
			continue
		}
		start, errStart := timeofday.Parse(startText)
		end, errEnd := timeofday.Parse(endText)
		if err := errors.Join(errStart, errEnd); err != nil {
			a.logger.Warn("dropping block range with invalid time",
				"date", date.String(),
				"start_date", b.StartDate.String(),
				"end_date", b.EndDate.String(),
				"reason", b.Reason,
				"err", err,
			)
			continue
		}
		out = append(out, UnavailableInterval{Start: start, End: end, Reason: b.Reason, Source: SourceBlock})
	}

	for _, bk := range bookings {
		if bk.Date != date {
			continue
		}
		out = append(out, UnavailableInterval{Start: bk.Start, End: bk.Start.Add(bk.DurationMinutes), Source: SourceBooking})
	}

	return out, nil
}
