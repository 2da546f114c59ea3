// Package memstore holds the constraint sources in memory. It backs the operator CLI and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
)

type Booking struct {
	ID        string
	ServiceID string
	Interval  constraints.BookedInterval
	Cancelled bool
}

type Store struct {
	mu       sync.RWMutex
	calendar calendar.BusinessCalendar
	blocks   []constraints.BlockRange
	bookings []Booking
	services map[string]int
	readErr  error
}

func New() *Store {
	return &Store{
		calendar: calendar.BusinessCalendar{},
		services: map[string]int{},
	}
}

func (s *Store) SetDay(day time.Weekday, w calendar.DayWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar[day] = w
}

func (s *Store) AddBlock(b constraints.BlockRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, b)
}

func (s *Store) AddBooking(b Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, b)
}

// CancelBooking reports whether a live booking with id existed.
func (s *Store) CancelBooking(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id && !s.bookings[i].Cancelled {
			s.bookings[i].Cancelled = true
			return true
		}
	}
	return false
}

func (s *Store) SetService(id string, durationMinutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[id] = durationMinutes
}

// SetReadError makes every read fail with err until it is cleared with nil.
func (s *Store) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

func (s *Store) BusinessCalendar(ctx context.Context) (calendar.BusinessCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make(calendar.BusinessCalendar, len(s.calendar))
	for k, v := range s.calendar {
		out[k] = v
	}
	return out, nil
}

func (s *Store) BlockedRanges(ctx context.Context, from, to calendar.Date) ([]constraints.BlockRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []constraints.BlockRange
	for _, b := range s.blocks {
		if b.StartDate.After(to) || b.EndDate.Before(from) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) BookedIntervals(ctx context.Context, date calendar.Date, serviceID string) ([]constraints.BookedInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []constraints.BookedInterval
	for _, b := range s.bookings {
		if b.Cancelled || b.Interval.Date != date {
			continue
		}
		if serviceID != "" && b.ServiceID != serviceID {
			continue
		}
		out = append(out, b.Interval)
	}
	return out, nil
}

func (s *Store) ServiceDuration(ctx context.Context, serviceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.readErr != nil {
		return 0, s.readErr
	}
	d, ok := s.services[serviceID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", engine.ErrServiceNotFound, serviceID)
	}
	return d, nil
}
