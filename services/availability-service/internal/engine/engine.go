// Package engine is the single entry point booking flows use to list slots and check candidate times.
// It fetches one snapshot of the constraint sources per call and hands it to the pure packages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/conflict"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/slots"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrDependencyUnavailable wraps every collaborator read failure.
	ErrDependencyUnavailable = errors.New("availability dependencies unavailable")
	// ErrServiceNotFound is returned by ServiceReader implementations for unknown ids.
	ErrServiceNotFound = errors.New("service not found")
)

type CalendarReader interface {
	BusinessCalendar(ctx context.Context) (calendar.BusinessCalendar, error)
}

// BlockReader returns every block whose date span intersects [from, to].
type BlockReader interface {
	BlockedRanges(ctx context.Context, from, to calendar.Date) ([]constraints.BlockRange, error)
}

// BookingReader returns non-cancelled appointments on date. An empty serviceID means all services.
type BookingReader interface {
	BookedIntervals(ctx context.Context, date calendar.Date, serviceID string) ([]constraints.BookedInterval, error)
}

type ServiceReader interface {
	ServiceDuration(ctx context.Context, serviceID string) (int, error)
}

type Options struct {
	// BookingsPerService scopes the booking read to the requested service in ListServiceSlots.
	// Leave unset when every service shares one practitioner.
	BookingsPerService bool
}

type Engine struct {
	calendars CalendarReader
	blocks    BlockReader
	bookings  BookingReader
	services  ServiceReader
	agg       *constraints.Aggregator
	logger    *slog.Logger
	tracer    trace.Tracer
	opts      Options
}

func New(calendars CalendarReader, blocks BlockReader, bookings BookingReader, services ServiceReader, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		calendars: calendars,
		blocks:    blocks,
		bookings:  bookings,
		services:  services,
		agg:       constraints.NewAggregator(logger),
		logger:    logger,
		tracer:    otel.Tracer("availability-service/engine"),
		opts:      opts,
	}
}

// Snapshot is the constraint view for one date. Unavailable is empty on a closed day.
type Snapshot struct {
	Date        calendar.Date
	Day         calendar.Resolved
	Unavailable []constraints.UnavailableInterval
}

type Availability struct {
	Date     calendar.Date
	Duration int
	Step     int
	Slots    []timeofday.Minute
	Fallback bool
}

type Verdict struct {
	conflict.Result
	Fallback bool `json:"fallback"`
}

func (e *Engine) Snapshot(ctx context.Context, date calendar.Date, serviceID string) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "availability.snapshot", trace.WithAttributes(
		attribute.String("availability.date", date.String()),
	))
	defer span.End()

	snap, err := e.snapshot(ctx, date, serviceID)
	if err != nil {
		recordError(span, err)
	}
	return snap, err
}

func (e *Engine) snapshot(ctx context.Context, date calendar.Date, serviceID string) (Snapshot, error) {
	cal, err := e.calendars.BusinessCalendar(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: business calendar: %w", ErrDependencyUnavailable, err)
	}
	day, err := calendar.ResolveDay(cal, date)
	if err != nil {
		return Snapshot{}, err
	}
	if day.Fallback {
		e.logger.Warn("calendar has no entry for weekday, using fallback window",
			"date", date.String(),
			"weekday", date.Weekday().String(),
		)
	}
	snap := Snapshot{Date: date, Day: day}
	if !day.Window.IsOpen {
		return snap, nil
	}

	blocks, err := e.blocks.BlockedRanges(ctx, date, date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: blocked ranges: %w", ErrDependencyUnavailable, err)
	}
	booked, err := e.bookings.BookedIntervals(ctx, date, serviceID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: booked intervals: %w", ErrDependencyUnavailable, err)
	}
	snap.Unavailable, err = e.agg.UnavailableIntervals(date, blocks, booked)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// ListAvailableSlots lists free start times on date. A closed day is an empty, successful result.
func (e *Engine) ListAvailableSlots(ctx context.Context, date calendar.Date, duration, step int) (Availability, error) {
	ctx, span := e.tracer.Start(ctx, "availability.list_slots", trace.WithAttributes(
		attribute.String("availability.date", date.String()),
		attribute.Int("availability.duration_minutes", duration),
		attribute.Int("availability.step_minutes", step),
	))
	defer span.End()

	out, err := e.listSlots(ctx, date, duration, step, "")
	if err != nil {
		recordError(span, err)
		return Availability{}, err
	}
	span.SetAttributes(attribute.Int("availability.slot_count", len(out.Slots)))
	return out, nil
}

// ListServiceSlots takes the duration from the service. A non-positive step means one slot per service duration.
func (e *Engine) ListServiceSlots(ctx context.Context, date calendar.Date, serviceID string, step int) (Availability, error) {
	ctx, span := e.tracer.Start(ctx, "availability.list_service_slots", trace.WithAttributes(
		attribute.String("availability.date", date.String()),
		attribute.String("availability.service_id", serviceID),
	))
	defer span.End()

	duration, err := e.serviceDuration(ctx, serviceID)
	if err != nil {
		recordError(span, err)
		return Availability{}, err
	}
	if step <= 0 {
		step = duration
	}
	scope := ""
	if e.opts.BookingsPerService {
		scope = serviceID
	}
	out, err := e.listSlots(ctx, date, duration, step, scope)
	if err != nil {
		recordError(span, err)
		return Availability{}, err
	}
	span.SetAttributes(attribute.Int("availability.slot_count", len(out.Slots)))
	return out, nil
}

// ServiceDuration exposes the service read so callers can default a duration before CheckConflict.
func (e *Engine) ServiceDuration(ctx context.Context, serviceID string) (int, error) {
	return e.serviceDuration(ctx, serviceID)
}

func (e *Engine) serviceDuration(ctx context.Context, serviceID string) (int, error) {
	duration, err := e.services.ServiceDuration(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: service duration: %w", ErrDependencyUnavailable, err)
	}
	return duration, nil
}

func (e *Engine) listSlots(ctx context.Context, date calendar.Date, duration, step int, serviceID string) (Availability, error) {
	out := Availability{Date: date, Duration: duration, Step: step}
	if duration <= 0 || step <= 0 {
		return out, nil
	}
	snap, err := e.snapshot(ctx, date, serviceID)
	if err != nil {
		return Availability{}, err
	}
	out.Fallback = snap.Day.Fallback
	out.Slots = slots.List(snap.Day.Window, duration, step, snap.Unavailable)
	return out, nil
}

// CheckConflict reports whether [start, start+duration) collides with a block or booking on date.
// ignore is the caller's own current interval when moving an existing appointment.
// A closed day is always blocked with reason "closed".
func (e *Engine) CheckConflict(ctx context.Context, date calendar.Date, start timeofday.Minute, duration int, ignore *timeofday.Interval) (Verdict, error) {
	ctx, span := e.tracer.Start(ctx, "availability.check_conflict", e.candidateAttrs(date, start, duration))
	defer span.End()

	snap, err := e.snapshot(ctx, date, "")
	if err != nil {
		recordError(span, err)
		return Verdict{}, err
	}
	v := Verdict{Fallback: snap.Day.Fallback}
	if !snap.Day.Window.IsOpen {
		v.Result = conflict.ClosedDay
	} else {
		v.Result = conflict.Check(start, duration, snap.Unavailable, ignore)
	}
	span.SetAttributes(attribute.Bool("availability.blocked", v.Blocked))
	return v, nil
}

// ValidateBooking accepts exactly the candidates the slot generator could list at a one-minute step:
// CheckConflict plus the operating-window and break rules.
func (e *Engine) ValidateBooking(ctx context.Context, date calendar.Date, start timeofday.Minute, duration int, ignore *timeofday.Interval) (Verdict, error) {
	ctx, span := e.tracer.Start(ctx, "availability.validate_booking", e.candidateAttrs(date, start, duration))
	defer span.End()

	snap, err := e.snapshot(ctx, date, "")
	if err != nil {
		recordError(span, err)
		return Verdict{}, err
	}
	v := Verdict{Fallback: snap.Day.Fallback, Result: conflict.Validate(snap.Day.Window, start, duration, snap.Unavailable, ignore)}
	span.SetAttributes(attribute.Bool("availability.blocked", v.Blocked))
	return v, nil
}

func (e *Engine) candidateAttrs(date calendar.Date, start timeofday.Minute, duration int) trace.SpanStartEventOption {
	return trace.WithAttributes(
		attribute.String("availability.date", date.String()),
		attribute.String("availability.start_time", start.String()),
		attribute.Int("availability.duration_minutes", duration),
	)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
