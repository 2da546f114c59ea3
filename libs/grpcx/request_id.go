package grpcx

import (
	"context"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
)

// RequestIDMetadataKey carries the request id in gRPC metadata. Metadata keys are lowercase.
const RequestIDMetadataKey = "x-request-id"

// RequestIDFromContext shares the httpx context slot, so one id follows a request across HTTP and gRPC hops.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return httpx.ContextWithRequestID(ctx, id)
}
