package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/memstore"
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
	"github.com/spf13/viper"
)

// Fixture is a clinic schedule snapshot in YAML or JSON. Dates are quoted YYYY-MM-DD strings.
type Fixture struct {
	Hours    map[string]DayFixture `mapstructure:"hours"`
	Blocks   []BlockFixture        `mapstructure:"blocks"`
	Bookings []BookingFixture      `mapstructure:"bookings"`
	Services []ServiceFixture      `mapstructure:"services"`
}

type DayFixture struct {
	Closed bool   `mapstructure:"closed"`
	Open   string `mapstructure:"open"`
	Close  string `mapstructure:"close"`
	Break  string `mapstructure:"break"`
}

type BlockFixture struct {
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
	AllDay    bool   `mapstructure:"all_day"`
	StartTime string `mapstructure:"start_time"`
	EndTime   string `mapstructure:"end_time"`
	Reason    string `mapstructure:"reason"`
}

type BookingFixture struct {
	ID              string `mapstructure:"id"`
	ServiceID       string `mapstructure:"service_id"`
	Date            string `mapstructure:"date"`
	StartTime       string `mapstructure:"start_time"`
	DurationMinutes int    `mapstructure:"duration_minutes"`
	Status          string `mapstructure:"status"`
}

type ServiceFixture struct {
	ID              string `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	DurationMinutes int    `mapstructure:"duration_minutes"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

func readFixture(path string) (Fixture, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Fixture{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := v.Unmarshal(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return f, nil
}

// LoadFixture reads path into a fresh in-memory store.
func LoadFixture(path string) (*memstore.Store, error) {
	f, err := readFixture(path)
	if err != nil {
		return nil, err
	}
	return f.Store()
}

func (f Fixture) Store() (*memstore.Store, error) {
	s := memstore.New()

	for name, day := range f.Hours {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("hours: unknown weekday %q", name)
		}
		w, err := day.window()
		if err != nil {
			return nil, fmt.Errorf("hours.%s: %w", name, err)
		}
		s.SetDay(wd, w)
	}

	for i, b := range f.Blocks {
		start, err := calendar.ParseDate(b.StartDate)
		if err != nil {
			return nil, fmt.Errorf("blocks[%d].start_date: %w", i, err)
		}
		end := start
		if b.EndDate != "" {
			if end, err = calendar.ParseDate(b.EndDate); err != nil {
				return nil, fmt.Errorf("blocks[%d].end_date: %w", i, err)
			}
		}
		s.AddBlock(constraints.BlockRange{
			StartDate: start,
			EndDate:   end,
			AllDay:    b.AllDay,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Reason:    b.Reason,
		})
	}

	for i, b := range f.Bookings {
		date, err := calendar.ParseDate(b.Date)
		if err != nil {
			return nil, fmt.Errorf("bookings[%d].date: %w", i, err)
		}
		start, err := timeofday.Parse(b.StartTime)
		if err != nil {
			return nil, fmt.Errorf("bookings[%d].start_time: %w", i, err)
		}
		s.AddBooking(memstore.Booking{
			ID:        b.ID,
			ServiceID: serviceKey(b.ServiceID),
			Interval:  constraints.BookedInterval{Date: date, Start: start, DurationMinutes: b.DurationMinutes},
			Cancelled: strings.EqualFold(b.Status, "cancelled"),
		})
	}

	for _, svc := range f.Services {
		s.SetService(serviceKey(svc.ID), svc.DurationMinutes)
	}
	return s, nil
}

// serviceKey puts a fixture service id in the canonical form request ids are parsed into.
func serviceKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return id.String()
	}
	return strings.ToLower(raw)
}

func (d DayFixture) window() (calendar.DayWindow, error) {
	if d.Closed {
		return calendar.Closed, nil
	}
	open, err := timeofday.Parse(d.Open)
	if err != nil {
		return calendar.DayWindow{}, fmt.Errorf("open: %w", err)
	}
	closeAt, err := timeofday.Parse(d.Close)
	if err != nil {
		return calendar.DayWindow{}, fmt.Errorf("close: %w", err)
	}
	w := calendar.DayWindow{IsOpen: true, Open: open, Close: closeAt}
	if strings.TrimSpace(d.Break) != "" {
		b, err := timeofday.ParseInterval(d.Break)
		if err != nil {
			return calendar.DayWindow{}, fmt.Errorf("break: %w", err)
		}
		w.Break = &b
	}
	return w, nil
}
