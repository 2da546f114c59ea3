package timeofday

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]Minute{
		"00:00":    0,
		"09:00":    540,
		"13:30":    810,
		"23:59":    1439,
		"10:15:00": 615,
		"10:15:59": 615,
		" 08:05 ":  485,
		"24:00":    MinutesPerDay,
		"24:00:00": MinutesPerDay,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:01", "24:00:01", "25:00", "12:60", "12:00:60", "12", "12:00:00:00", "ab:cd", "+1:00", "12-00"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("Parse(%q): expected ErrInvalidTimeFormat, got %v", in, err)
		}
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	// Appointment 09:00-10:00 against candidate starting 10:00.
	if Overlaps(540, 600, 600, 630) {
		t.Fatalf("touching endpoints must not overlap")
	}
	if Overlaps(600, 630, 540, 600) {
		t.Fatalf("touching endpoints must not overlap (reversed)")
	}
	// Candidate 09:59 for one minute overlaps the last minute.
	if !Overlaps(599, 600, 540, 600) {
		t.Fatalf("09:59 for 1 minute must overlap 09:00-10:00")
	}
	if !Overlaps(540, 600, 560, 570) {
		t.Fatalf("containment must overlap")
	}
	if Overlaps(540, 540, 500, 600) {
		t.Fatalf("empty interval must not overlap")
	}
}

func TestMinuteString(t *testing.T) {
	if got := Minute(545).String(); got != "09:05" {
		t.Fatalf("expected 09:05, got %s", got)
	}
	if got := Minute(MinutesPerDay).String(); got != "24:00" {
		t.Fatalf("expected 24:00, got %s", got)
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("15:00-15:30")
	if err != nil {
		t.Fatalf("ParseInterval failed: %v", err)
	}
	if iv.Start != 900 || iv.End != 930 {
		t.Fatalf("unexpected interval %+v", iv)
	}
	if _, err := ParseInterval("15:00"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("expected ErrInvalidTimeFormat, got %v", err)
	}
}
