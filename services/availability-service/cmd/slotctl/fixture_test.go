package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
)

func TestFixtureStore_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	body := `{
  "hours": {"Monday": {"open": "08:00", "close": "17:00", "break": "12:00-12:30"}},
  "blocks": [{"start_date": "2026-10-19", "end_date": "2026-10-20", "all_day": true, "reason": "holiday"}]
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}

	cal, err := s.BusinessCalendar(context.Background())
	if err != nil {
		t.Fatalf("BusinessCalendar failed: %v", err)
	}
	mon, ok := cal[time.Monday]
	if !ok || !mon.IsOpen || mon.Open != 480 || mon.Close != 1020 || mon.Break == nil || mon.Break.Start != 720 || mon.Break.End != 750 {
		t.Fatalf("unexpected monday window %+v", mon)
	}

	day := calendar.NewDate(2026, time.October, 20)
	blocks, err := s.BlockedRanges(context.Background(), day, day)
	if err != nil {
		t.Fatalf("BlockedRanges failed: %v", err)
	}
	if len(blocks) != 1 || !blocks[0].AllDay || blocks[0].Reason != "holiday" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestFixtureStore_Errors(t *testing.T) {
	cases := []Fixture{
		{Hours: map[string]DayFixture{"funday": {Open: "09:00", Close: "17:00"}}},
		{Hours: map[string]DayFixture{"monday": {Open: "9am", Close: "17:00"}}},
		{Blocks: []BlockFixture{{StartDate: "2026/10/19"}}},
		{Bookings: []BookingFixture{{Date: "2026-10-19", StartTime: "noon", DurationMinutes: 30}}},
	}
	for i, f := range cases {
		if _, err := f.Store(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestFixtureStore_ServiceIDsCanonical(t *testing.T) {
	f := Fixture{
		Bookings: []BookingFixture{{ID: "b1", ServiceID: "0B7D8F4E-3F0A-4B51-9A43-0C0F8E2B6A11", Date: "2026-10-14", StartTime: "10:00", DurationMinutes: 30}},
		Services: []ServiceFixture{{ID: " 0B7D8F4E-3F0A-4B51-9A43-0C0F8E2B6A11 ", DurationMinutes: 45}},
	}
	s, err := f.Store()
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	const id = "0b7d8f4e-3f0a-4b51-9a43-0c0f8e2b6a11"
	d, err := s.ServiceDuration(context.Background(), id)
	if err != nil || d != 45 {
		t.Fatalf("expected duration 45 for %s, got %d err %v", id, d, err)
	}
	booked, err := s.BookedIntervals(context.Background(), calendar.NewDate(2026, time.October, 14), id)
	if err != nil || len(booked) != 1 {
		t.Fatalf("expected the booking under %s, got %+v err %v", id, booked, err)
	}
}

func TestFixtureStore_EndOfDayClose(t *testing.T) {
	f := Fixture{Hours: map[string]DayFixture{"friday": {Open: "20:00", Close: "24:00"}}}
	s, err := f.Store()
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	cal, err := s.BusinessCalendar(context.Background())
	if err != nil {
		t.Fatalf("BusinessCalendar failed: %v", err)
	}
	if fri := cal[time.Friday]; !fri.IsOpen || fri.Close != 1440 {
		t.Fatalf("expected friday open until 24:00, got %+v", fri)
	}
}
