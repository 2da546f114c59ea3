package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/grpcx"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/api"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/constraints"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/memstore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T) (*grpc.ClientConn, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	for d := time.Monday; d <= time.Friday; d++ {
		s.SetDay(d, calendar.DefaultWindow)
	}
	s.SetDay(time.Sunday, calendar.Closed)
	s.AddBooking(memstore.Booking{
		ID:       "appt-1",
		Interval: constraints.BookedInterval{Date: calendar.NewDate(2026, time.October, 14), Start: 15 * 60, DurationMinutes: 30},
	})

	logger := slog.New(slog.DiscardHandler)
	srv := NewServer(engine.New(s, s, s, s, logger, engine.Options{}), logger)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), "passthrough:///bufnet", grpcx.DialOptions{Timeout: 2 * time.Second, Block: true},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, s
}

func TestListAvailableSlots(t *testing.T) {
	conn, _ := startServer(t)
	client := NewClient(conn)

	resp, err := client.ListAvailableSlots(context.Background(), api.SlotsRequest{Date: "2026-10-14", DurationMinutes: 60})
	if err != nil {
		t.Fatalf("ListAvailableSlots failed: %v", err)
	}
	if resp.Date != "2026-10-14" || resp.StepMinutes != 60 || len(resp.Slots) != 7 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Slots[4].StartTime != "14:00" || resp.Slots[5].StartTime != "16:00" {
		t.Fatalf("unexpected slots %+v", resp.Slots)
	}

	resp, err = client.ListAvailableSlots(context.Background(), api.SlotsRequest{Date: "2026-10-18", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("ListAvailableSlots failed: %v", err)
	}
	if len(resp.Slots) != 0 {
		t.Fatalf("closed day should be empty, got %+v", resp.Slots)
	}
}

func TestCheckConflictAndValidate(t *testing.T) {
	conn, _ := startServer(t)
	client := NewClient(conn)
	ctx := context.Background()

	v, err := client.CheckConflict(ctx, api.CandidateRequest{
		Date: "2026-10-14", StartTime: "15:00", DurationMinutes: 30,
		Ignore: &api.Window{StartTime: "15:00", EndTime: "15:30"},
	})
	if err != nil {
		t.Fatalf("CheckConflict failed: %v", err)
	}
	if v.Blocked {
		t.Fatalf("own slot must be free, got %+v", v)
	}

	v, err = client.CheckConflict(ctx, api.CandidateRequest{Date: "2026-10-14", StartTime: "15:00", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("CheckConflict failed: %v", err)
	}
	if !v.Blocked || v.Source != "booking" {
		t.Fatalf("expected booking conflict, got %+v", v)
	}

	v, err = client.ValidateBooking(ctx, api.CandidateRequest{Date: "2026-10-14", StartTime: "17:45", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("ValidateBooking failed: %v", err)
	}
	if !v.Blocked || v.Source != "hours" {
		t.Fatalf("expected hours verdict, got %+v", v)
	}
}

func TestStatusCodes(t *testing.T) {
	conn, s := startServer(t)
	client := NewClient(conn)
	ctx := context.Background()

	_, err := client.ListAvailableSlots(ctx, api.SlotsRequest{Date: "nope", DurationMinutes: 30})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	s.SetReadError(errors.New("connection refused"))
	_, err = client.CheckConflict(ctx, api.CandidateRequest{Date: "2026-10-14", StartTime: "09:00", DurationMinutes: 30})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}

	s.SetReadError(nil)
	s.SetDay(time.Wednesday, calendar.DayWindow{IsOpen: true, Open: 900, Close: 600})
	_, err = client.ListAvailableSlots(ctx, api.SlotsRequest{Date: "2026-10-14", DurationMinutes: 30})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	conn, _ := startServer(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}
