package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
)

var day = calendar.NewDate(2026, time.October, 14)

func TestStore_BlockedRangesIntersect(t *testing.T) {
	s := New()
	s.AddBlock(constraints.BlockRange{StartDate: day.AddDays(-5), EndDate: day.AddDays(-1), AllDay: true})
	s.AddBlock(constraints.BlockRange{StartDate: day.AddDays(-1), EndDate: day.AddDays(1), AllDay: true, Reason: "holiday"})
	s.AddBlock(constraints.BlockRange{StartDate: day.AddDays(1), EndDate: day.AddDays(2), AllDay: true})

	got, err := s.BlockedRanges(context.Background(), day, day)
	if err != nil {
		t.Fatalf("BlockedRanges failed: %v", err)
	}
	if len(got) != 1 || got[0].Reason != "holiday" {
		t.Fatalf("unexpected blocks %+v", got)
	}
}

func TestStore_BookingsSkipCancelledAndFilterService(t *testing.T) {
	s := New()
	s.AddBooking(Booking{ID: "a", ServiceID: "cleaning", Interval: constraints.BookedInterval{Date: day, Start: 540, DurationMinutes: 30}})
	s.AddBooking(Booking{ID: "b", ServiceID: "whitening", Interval: constraints.BookedInterval{Date: day, Start: 600, DurationMinutes: 60}})
	s.AddBooking(Booking{ID: "c", ServiceID: "cleaning", Interval: constraints.BookedInterval{Date: day.AddDays(1), Start: 540, DurationMinutes: 30}})

	if !s.CancelBooking("a") {
		t.Fatalf("expected cancel to succeed")
	}
	if s.CancelBooking("a") {
		t.Fatalf("second cancel must report false")
	}

	all, _ := s.BookedIntervals(context.Background(), day, "")
	if len(all) != 1 || all[0].Start != 600 {
		t.Fatalf("unexpected bookings %+v", all)
	}
	cleaning, _ := s.BookedIntervals(context.Background(), day, "cleaning")
	if len(cleaning) != 0 {
		t.Fatalf("expected no live cleaning bookings, got %+v", cleaning)
	}
}

func TestStore_ServiceAndErrors(t *testing.T) {
	s := New()
	s.SetService("cleaning", 45)
	if d, err := s.ServiceDuration(context.Background(), "cleaning"); err != nil || d != 45 {
		t.Fatalf("unexpected duration %d err %v", d, err)
	}
	if _, err := s.ServiceDuration(context.Background(), "missing"); !errors.Is(err, engine.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}

	boom := errors.New("boom")
	s.SetReadError(boom)
	if _, err := s.BusinessCalendar(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.SetReadError(nil)
	if _, err := s.BusinessCalendar(context.Background()); err != nil {
		t.Fatalf("expected read to recover, got %v", err)
	}
}
