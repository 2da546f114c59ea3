package grpcserver

import (
	"context"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls AvailabilityService over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListAvailableSlots(ctx context.Context, req api.SlotsRequest) (api.SlotsResponse, error) {
	var resp api.SlotsResponse
	err := c.invoke(ctx, listAvailableSlotsMethod, req, &resp)
	return resp, err
}

func (c *Client) CheckConflict(ctx context.Context, req api.CandidateRequest) (api.VerdictResponse, error) {
	var resp api.VerdictResponse
	err := c.invoke(ctx, checkConflictMethod, req, &resp)
	return resp, err
}

func (c *Client) ValidateBooking(ctx context.Context, req api.CandidateRequest) (api.VerdictResponse, error) {
	var resp api.VerdictResponse
	err := c.invoke(ctx, validateBookingMethod, req, &resp)
	return resp, err
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return decode(out, resp)
}
