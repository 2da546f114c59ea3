package grpcserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/md-rashed-zaman/clinicbook/libs/grpcx"
	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/api"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "clinicbook.availability.v1.AvailabilityService"

	listAvailableSlotsMethod = "/" + ServiceName + "/ListAvailableSlots"
	checkConflictMethod      = "/" + ServiceName + "/CheckConflict"
	validateBookingMethod    = "/" + ServiceName + "/ValidateBooking"
)

// AvailabilityServer carries requests and responses as google.protobuf.Struct
// using the same field names as the HTTP API.
type AvailabilityServer interface {
	ListAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckConflict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAvailableSlots", Handler: unaryHandler(listAvailableSlotsMethod, AvailabilityServer.ListAvailableSlots)},
		{MethodName: "CheckConflict", Handler: unaryHandler(checkConflictMethod, AvailabilityServer.CheckConflict)},
		{MethodName: "ValidateBooking", Handler: unaryHandler(validateBookingMethod, AvailabilityServer.ValidateBooking)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinicbook/availability/v1/availability.proto",
}

func unaryHandler(fullMethod string, call func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type server struct {
	engine api.Engine
	logger *slog.Logger
}

// NewServer builds a gRPC server with the availability and health services registered.
func NewServer(engine api.Engine, logger *slog.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerRequestIDInterceptor()),
	)
	Register(srv, engine, logger)
	return srv
}

func Register(grpcServer *grpc.Server, engine api.Engine, logger *slog.Logger) {
	grpcServer.RegisterService(&serviceDesc, &server{engine: engine, logger: logger})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
}

func (s *server) ListAvailableSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.SlotsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	resp, err := api.ListSlots(ctx, s.engine, req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encode(resp)
}

func (s *server) CheckConflict(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.CandidateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	resp, err := api.CheckConflict(ctx, s.engine, req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encode(resp)
}

func (s *server) ValidateBooking(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.CandidateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	resp, err := api.ValidateBooking(ctx, s.engine, req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encode(resp)
}

func (s *server) toStatus(ctx context.Context, err error) error {
	kind, msg := api.Classify(err)
	code := codes.Internal
	switch kind {
	case api.KindBadRequest:
		code = codes.InvalidArgument
	case api.KindNotFound:
		code = codes.NotFound
	case api.KindMisconfigured:
		code = codes.FailedPrecondition
	case api.KindUnavailable:
		code = codes.Unavailable
	}
	if code != codes.InvalidArgument && code != codes.NotFound {
		attrs := append([]any{"code", code.String(), "request_id", grpcx.RequestIDFromContext(ctx), "err", err}, otelx.LogFields(ctx)...)
		s.logger.Error("availability rpc failed", attrs...)
	}
	return status.Error(code, msg)
}

func decode(in *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return out, nil
}
