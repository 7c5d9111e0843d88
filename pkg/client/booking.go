package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"urutibiz/pkg/model"
)

type Metadata struct {
	TotalCount int64
	Limit      int
	Offset     int64
}

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// AsRenter sends X-Renter-ID on every request.
func (c *BookingClient) AsRenter(renterID string) *BookingClient {
	c.httpClient.Headers["X-Renter-ID"] = renterID
	return c
}

func (c *BookingClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *BookingClient) Create(ctx context.Context, body any) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/bookings", body)
}

func (c *BookingClient) CreateIdempotent(ctx context.Context, body any, key string) (*Response, error) {
	return c.httpClient.POSTWithHeaders(ctx, "/api/v1/bookings", body, map[string]string{"Idempotency-Key": key})
}

func (c *BookingClient) CreateRaw(ctx context.Context, rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw(ctx, "/api/v1/bookings", rawBody)
}

func (c *BookingClient) GetAll(ctx context.Context, status model.BookingStatus, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status.String())
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET(ctx, "/api/v1/bookings?"+q.Encode())
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/bookings/"+url.PathEscape(id))
}

func (c *BookingClient) Confirm(ctx context.Context, id, paymentReference string) (*Response, error) {
	body := model.ConfirmBookingRequest{PaymentReference: paymentReference}
	return c.httpClient.POST(ctx, "/api/v1/bookings/"+url.PathEscape(id)+"/confirm", body)
}

func (c *BookingClient) Cancel(ctx context.Context, id, reason string) (*Response, error) {
	body := model.CancelBookingRequest{Reason: reason}
	return c.httpClient.POST(ctx, "/api/v1/bookings/"+url.PathEscape(id)+"/cancel", body)
}

func (c *BookingClient) Complete(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/bookings/"+url.PathEscape(id)+"/complete", nil)
}

func (c *BookingClient) SweepExpired(ctx context.Context) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/maintenance/sweep-expired", nil)
}

func (c *BookingClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var wrapper struct {
		Data *model.Booking `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode booking %s: %w", resp, err)
	}
	if wrapper.Data == nil {
		return nil, fmt.Errorf("response has no booking: %s", resp)
	}
	return wrapper.Data, nil
}

func (c *BookingClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data       []*model.Booking `json:"data"`
		TotalCount int64            `json:"total_count"`
		Limit      int              `json:"limit"`
		Offset     int64            `json:"offset"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated response %s: %w", resp, err)
	}

	metadata := &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}
	return wrapper.Data, metadata, nil
}
