package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/api"
)

const scheduleYAML = `
hours:
  wednesday:
    open: "09:00"
    close: "12:00"
  sunday:
    closed: true
blocks:
  - start_date: "2026-10-14"
    start_time: "11:30"
    end_time: "12:00"
    reason: "staff meeting"
bookings:
  - id: "b1"
    service_id: "0b7d8f4e-3f0a-4b51-9a43-0c0f8e2b6a11"
    date: "2026-10-14"
    start_time: "10:00"
    duration_minutes: 30
  - id: "b2"
    date: "2026-10-14"
    start_time: "09:00"
    duration_minutes: 30
    status: "cancelled"
services:
  - id: "0b7d8f4e-3f0a-4b51-9a43-0c0f8e2b6a11"
    name: "cleaning"
    duration_minutes: 60
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := os.WriteFile(path, []byte(scheduleYAML), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSlots(t *testing.T) {
	fixture := writeFixture(t)
	out, _, err := run(t, "slots", "--fixture", fixture, "--date", "2026-10-14", "--duration", "30")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	want := "09:00-09:30\n09:30-10:00\n10:30-11:00\n11:00-11:30\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestSlots_ServiceDuration(t *testing.T) {
	fixture := writeFixture(t)
	out, _, err := run(t, "slots", "--fixture", fixture, "--date", "2026-10-14",
		"--service", "0b7d8f4e-3f0a-4b51-9a43-0c0f8e2b6a11", "--step", "30", "--json")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	var resp api.SlotsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if resp.DurationMinutes != 60 || len(resp.Slots) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Slots[0].StartTime != "09:00" || resp.Slots[1].StartTime != "10:30" {
		t.Fatalf("unexpected slots %+v", resp.Slots)
	}
}

func TestSlots_ClosedAndFallback(t *testing.T) {
	fixture := writeFixture(t)
	out, _, err := run(t, "slots", "--fixture", fixture, "--date", "2026-10-18", "--duration", "30")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	if out != "no free slots\n" {
		t.Fatalf("closed Sunday should have no slots, got %q", out)
	}

	out, stderr, err := run(t, "slots", "--fixture", fixture, "--date", "2026-10-15", "--duration", "60")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	if !strings.HasPrefix(out, "# fallback hours") || !strings.Contains(out, "09:00-10:00") || strings.Contains(out, "13:00-14:00") {
		t.Fatalf("unexpected fallback output %q", out)
	}
	if !strings.Contains(stderr, "fallback window") {
		t.Fatalf("expected a fallback warning, got %q", stderr)
	}
}

func TestCheck(t *testing.T) {
	fixture := writeFixture(t)

	out, _, err := run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "10:00", "--duration", "30")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if out != "blocked by booking\n" {
		t.Fatalf("unexpected verdict %q", out)
	}

	out, _, err = run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "10:00", "--duration", "30", "--ignore", "10:00-10:30")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if out != "free\n" {
		t.Fatalf("own slot should be ignored, got %q", out)
	}

	out, _, err = run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "11:45", "--duration", "30")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if out != "blocked by block: staff meeting\n" {
		t.Fatalf("unexpected verdict %q", out)
	}
}

func TestCheck_Validate(t *testing.T) {
	fixture := writeFixture(t)

	out, _, err := run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "08:30", "--duration", "30")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if out != "free\n" {
		t.Fatalf("plain check ignores hours, got %q", out)
	}

	out, _, err = run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "08:30", "--duration", "30", "--validate")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if out != "blocked by hours: outside operating hours\n" {
		t.Fatalf("unexpected verdict %q", out)
	}
}

func TestCheck_Strict(t *testing.T) {
	fixture := writeFixture(t)
	_, _, err := run(t, "check", "--fixture", fixture, "--date", "2026-10-15", "--start", "09:00", "--duration", "30", "--strict")
	if !errors.Is(err, errFallback) {
		t.Fatalf("expected errFallback, got %v", err)
	}
}

func TestCheck_BadInput(t *testing.T) {
	fixture := writeFixture(t)
	if _, _, err := run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "10am", "--duration", "30"); !errors.Is(err, api.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, _, err := run(t, "check", "--fixture", fixture, "--date", "2026-10-14", "--start", "10:00", "--duration", "30", "--ignore", "10:00"); err == nil {
		t.Fatalf("expected error for malformed --ignore")
	}
	if _, _, err := run(t, "slots", "--fixture", filepath.Join(t.TempDir(), "missing.yaml"), "--date", "2026-10-14", "--duration", "30"); err == nil {
		t.Fatalf("expected error for missing fixture")
	}
}

func TestInvalidate_RequiresBrokers(t *testing.T) {
	t.Setenv("SLOTCTL_BROKERS", "")
	if _, _, err := run(t, "invalidate"); err == nil || !strings.Contains(err.Error(), "--brokers") {
		t.Fatalf("expected missing brokers error, got %v", err)
	}
}
