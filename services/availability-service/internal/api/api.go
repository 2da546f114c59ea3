// Package api validates transport requests and shapes engine results for the HTTP and gRPC surfaces.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
)

var ErrBadRequest = errors.New("bad request")

// Engine is satisfied by *engine.Engine.
type Engine interface {
	ListAvailableSlots(ctx context.Context, date calendar.Date, duration, step int) (engine.Availability, error)
	ListServiceSlots(ctx context.Context, date calendar.Date, serviceID string, step int) (engine.Availability, error)
	ServiceDuration(ctx context.Context, serviceID string) (int, error)
	CheckConflict(ctx context.Context, date calendar.Date, start timeofday.Minute, duration int, ignore *timeofday.Interval) (engine.Verdict, error)
	ValidateBooking(ctx context.Context, date calendar.Date, start timeofday.Minute, duration int, ignore *timeofday.Interval) (engine.Verdict, error)
}

type SlotsRequest struct {
	Date            string `json:"date"`
	DurationMinutes int    `json:"duration_minutes"`
	StepMinutes     int    `json:"step_minutes"`
	ServiceID       string `json:"service_id"`
}

type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SlotsResponse struct {
	Date            string `json:"date"`
	DurationMinutes int    `json:"duration_minutes"`
	StepMinutes     int    `json:"step_minutes"`
	Fallback        bool   `json:"fallback"`
	Slots           []Slot `json:"slots"`
}

type Window struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CandidateRequest struct {
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	DurationMinutes int     `json:"duration_minutes"`
	ServiceID       string  `json:"service_id"`
	Ignore          *Window `json:"ignore,omitempty"`
}

type VerdictResponse struct {
	Blocked  bool   `json:"blocked"`
	Reason   string `json:"reason,omitempty"`
	Source   string `json:"source,omitempty"`
	Fallback bool   `json:"fallback"`
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func parseDate(raw string) (calendar.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return calendar.Date{}, badRequest("date is required")
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return calendar.Date{}, badRequest("invalid date")
	}
	return d, nil
}

func parseServiceID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", badRequest("invalid service_id")
	}
	return id.String(), nil
}

func checkDuration(name string, v int) error {
	if v <= 0 || v > timeofday.MinutesPerDay {
		return badRequest("%s must be between 1 and %d", name, timeofday.MinutesPerDay)
	}
	return nil
}

// ListSlots lists by service when service_id is set, otherwise by explicit duration.
// An omitted step means one slot per duration.
func ListSlots(ctx context.Context, eng Engine, req SlotsRequest) (SlotsResponse, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return SlotsResponse{}, err
	}
	serviceID, err := parseServiceID(req.ServiceID)
	if err != nil {
		return SlotsResponse{}, err
	}
	if req.StepMinutes != 0 {
		if err := checkDuration("step_minutes", req.StepMinutes); err != nil {
			return SlotsResponse{}, err
		}
	}

	var avail engine.Availability
	if serviceID != "" {
		avail, err = eng.ListServiceSlots(ctx, date, serviceID, req.StepMinutes)
	} else {
		if err := checkDuration("duration_minutes", req.DurationMinutes); err != nil {
			return SlotsResponse{}, err
		}
		step := req.StepMinutes
		if step == 0 {
			step = req.DurationMinutes
		}
		avail, err = eng.ListAvailableSlots(ctx, date, req.DurationMinutes, step)
	}
	if err != nil {
		return SlotsResponse{}, err
	}
	return NewSlotsResponse(avail), nil
}

func NewSlotsResponse(a engine.Availability) SlotsResponse {
	resp := SlotsResponse{
		Date:            a.Date.String(),
		DurationMinutes: a.Duration,
		StepMinutes:     a.Step,
		Fallback:        a.Fallback,
		Slots:           make([]Slot, 0, len(a.Slots)),
	}
	for _, s := range a.Slots {
		resp.Slots = append(resp.Slots, Slot{StartTime: s.String(), EndTime: s.Add(a.Duration).String()})
	}
	return resp
}

// Candidate is a validated CandidateRequest.
type Candidate struct {
	Date     calendar.Date
	Start    timeofday.Minute
	Duration int
	Ignore   *timeofday.Interval
}

// ParseCandidate resolves the duration from service_id when duration_minutes is omitted.
func ParseCandidate(ctx context.Context, eng Engine, req CandidateRequest) (Candidate, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return Candidate{}, err
	}
	start, err := timeofday.Parse(req.StartTime)
	if err != nil || start >= timeofday.MinutesPerDay {
		return Candidate{}, badRequest("invalid start_time")
	}
	serviceID, err := parseServiceID(req.ServiceID)
	if err != nil {
		return Candidate{}, err
	}

	duration := req.DurationMinutes
	if duration == 0 && serviceID != "" {
		duration, err = eng.ServiceDuration(ctx, serviceID)
		if err != nil {
			return Candidate{}, err
		}
	}
	if err := checkDuration("duration_minutes", duration); err != nil {
		return Candidate{}, err
	}

	c := Candidate{Date: date, Start: start, Duration: duration}
	if req.Ignore != nil {
		ignoreStart, err := timeofday.Parse(req.Ignore.StartTime)
		if err != nil {
			return Candidate{}, badRequest("invalid ignore.start_time")
		}
		ignoreEnd, err := timeofday.Parse(req.Ignore.EndTime)
		if err != nil {
			return Candidate{}, badRequest("invalid ignore.end_time")
		}
		if ignoreEnd <= ignoreStart {
			return Candidate{}, badRequest("ignore.end_time must be after ignore.start_time")
		}
		c.Ignore = &timeofday.Interval{Start: ignoreStart, End: ignoreEnd}
	}
	return c, nil
}

func CheckConflict(ctx context.Context, eng Engine, req CandidateRequest) (VerdictResponse, error) {
	c, err := ParseCandidate(ctx, eng, req)
	if err != nil {
		return VerdictResponse{}, err
	}
	v, err := eng.CheckConflict(ctx, c.Date, c.Start, c.Duration, c.Ignore)
	if err != nil {
		return VerdictResponse{}, err
	}
	return NewVerdictResponse(v), nil
}

func ValidateBooking(ctx context.Context, eng Engine, req CandidateRequest) (VerdictResponse, error) {
	c, err := ParseCandidate(ctx, eng, req)
	if err != nil {
		return VerdictResponse{}, err
	}
	v, err := eng.ValidateBooking(ctx, c.Date, c.Start, c.Duration, c.Ignore)
	if err != nil {
		return VerdictResponse{}, err
	}
	return NewVerdictResponse(v), nil
}

func NewVerdictResponse(v engine.Verdict) VerdictResponse {
	return VerdictResponse{Blocked: v.Blocked, Reason: v.Reason, Source: string(v.Source), Fallback: v.Fallback}
}

// Kind groups errors for status mapping on both surfaces.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindMisconfigured
	KindUnavailable
)

// Classify returns the Kind of err and the message safe to show a client.
func Classify(err error) (Kind, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest, strings.TrimPrefix(err.Error(), ErrBadRequest.Error()+": ")
	case errors.Is(err, engine.ErrServiceNotFound):
		return KindNotFound, "service not found"
	case errors.Is(err, calendar.ErrInvalidCalendarConfiguration):
		return KindMisconfigured, "invalid calendar configuration"
	case errors.Is(err, timeofday.ErrInvalidTimeFormat):
		return KindMisconfigured, "invalid blocked range data"
	case errors.Is(err, engine.ErrDependencyUnavailable):
		return KindUnavailable, "availability dependencies unavailable"
	default:
		return KindInternal, "internal error"
	}
}
