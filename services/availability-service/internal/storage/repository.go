package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/timeofday"
)

// Repository reads the clinic's scheduling tables. It implements every engine reader.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) BusinessCalendar(ctx context.Context) (calendar.BusinessCalendar, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_open, open_minute, close_minute, break_start_minute, break_end_minute
		FROM clinic_business_hours
		ORDER BY weekday
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cal := calendar.BusinessCalendar{}
	for rows.Next() {
		var (
			weekday              int
			w                    calendar.DayWindow
			open, closeAt        int
			breakStart, breakEnd *int
		)
		if err := rows.Scan(&weekday, &w.IsOpen, &open, &closeAt, &breakStart, &breakEnd); err != nil {
			return nil, err
		}
		w.Open, w.Close = timeofday.Minute(open), timeofday.Minute(closeAt)
		if breakStart != nil && breakEnd != nil {
			w.Break = &timeofday.Interval{Start: timeofday.Minute(*breakStart), End: timeofday.Minute(*breakEnd)}
		}
		cal[time.Weekday(weekday)] = w
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return cal, nil
}

func (r *Repository) BlockedRanges(ctx context.Context, from, to calendar.Date) ([]constraints.BlockRange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_date, end_date, all_day, start_time::text, end_time::text, reason
		FROM clinic_blocked_ranges
		WHERE start_date <= $2::date AND end_date >= $1::date
		ORDER BY start_date, created_at
	`, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []constraints.BlockRange
	for rows.Next() {
		var (
			startDate, endDate time.Time
			b                  constraints.BlockRange
			startTime, endTime *string
			reason             *string
		)
		if err := rows.Scan(&startDate, &endDate, &b.AllDay, &startTime, &endTime, &reason); err != nil {
			return nil, err
		}
		b.StartDate, b.EndDate = calendar.DateOf(startDate), calendar.DateOf(endDate)
		b.StartTime, b.EndTime, b.Reason = deref(startTime), deref(endTime), deref(reason)
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) BookedIntervals(ctx context.Context, date calendar.Date, serviceID string) ([]constraints.BookedInterval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, duration_minutes
		FROM appointments
		WHERE appointment_date = $1::date
		  AND status <> 'cancelled'
		  AND ($2 = '' OR service_id::text = $2)
		ORDER BY start_minute
	`, date.String(), serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []constraints.BookedInterval
	for rows.Next() {
		var start, duration int
		if err := rows.Scan(&start, &duration); err != nil {
			return nil, err
		}
		out = append(out, constraints.BookedInterval{Date: date, Start: timeofday.Minute(start), DurationMinutes: duration})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ServiceDuration(ctx context.Context, serviceID string) (int, error) {
	var mins int
	err := r.pool.QueryRow(ctx, `
		SELECT duration_minutes
		FROM clinic_services
		WHERE id = $1 AND is_active
	`, serviceID).Scan(&mins)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", engine.ErrServiceNotFound, serviceID)
	}
	return mins, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
