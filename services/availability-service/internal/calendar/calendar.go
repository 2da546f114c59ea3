// Package calendar resolves a calendar date to the clinic's operating window for that day.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
)

var ErrInvalidCalendarConfiguration = errors.New("invalid calendar configuration")

// Date is a plain calendar date with no time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf takes the calendar fields of t as-is, in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD and rejects dates that do not exist (e.g. 2026-02-30).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday uses the proleptic Gregorian calendar. No timezone conversion happens here.
func (d Date) Weekday() time.Weekday {
	return d.midnightUTC().Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.midnightUTC().Compare(o.midnightUTC())
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) String() string {
	return d.midnightUTC().Format(time.DateOnly)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// DayWindow is the operating window for one weekday.
type DayWindow struct {
	IsOpen bool                `json:"is_open"`
	Open   timeofday.Minute    `json:"open"`
	Close  timeofday.Minute    `json:"close"`
	Break  *timeofday.Interval `json:"break,omitempty"`
}

// Closed is the window for a day with no operating hours.
var Closed = DayWindow{}

// DefaultWindow applies when the calendar has no entry for a weekday: 09:00-18:00 with a 13:00-14:00 break.
var DefaultWindow = DayWindow{
	IsOpen: true,
	Open:   9 * 60,
	Close:  18 * 60,
	Break:  &timeofday.Interval{Start: 13 * 60, End: 14 * 60},
}

// Validate checks open <= break start < break end <= close and open < close.
// A closed window is always valid; its times are ignored.
func (w DayWindow) Validate() error {
	if !w.IsOpen {
		return nil
	}
	if w.Open < 0 || w.Close > timeofday.MinutesPerDay || w.Open >= w.Close {
		return fmt.Errorf("%w: window %s-%s", ErrInvalidCalendarConfiguration, w.Open, w.Close)
	}
	if b := w.Break; b != nil {
		if b.Start < w.Open || b.Start >= b.End || b.End > w.Close {
			return fmt.Errorf("%w: break %s outside window %s-%s", ErrInvalidCalendarConfiguration, b, w.Open, w.Close)
		}
	}
	return nil
}

// BusinessCalendar maps a weekday to at most one window. A missing key means "not loaded", not "closed".
type BusinessCalendar map[time.Weekday]DayWindow

// Resolved is the outcome of ResolveDay. Fallback is set when DefaultWindow was substituted;
// strict callers should treat such results as provisional and re-query once the calendar is loaded.
type Resolved struct {
	Window   DayWindow
	Fallback bool
}

func ResolveDay(cal BusinessCalendar, date Date) (Resolved, error) {
	w, ok := cal[date.Weekday()]
	if !ok {
		return Resolved{Window: DefaultWindow, Fallback: true}, nil
	}
	if err := w.Validate(); err != nil {
		return Resolved{}, fmt.Errorf("%s (%s): %w", date, date.Weekday(), err)
	}
	return Resolved{Window: w}, nil
}
