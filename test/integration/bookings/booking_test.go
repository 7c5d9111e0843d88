package integrationtests

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"urutibiz/pkg/client"
	apperrors "urutibiz/pkg/errors"
	"urutibiz/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run against a live bookings service at TEST_SERVER_URL
// (default http://localhost:8080) and skip when it is not reachable.

var serverURL string

func TestMain(m *testing.M) {
	serverURL = os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	if err := client.NewHttpClient(serverURL).WaitForHealthy(context.Background(), 3*time.Second); err != nil {
		fmt.Printf("skipping integration tests: %v\n", err)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func newBookingClient() *client.BookingClient {
	return client.NewBookingClient(serverURL).AsRenter("renter-" + uuid.NewString()[:8])
}

func validBooking(amount string) map[string]any {
	return map[string]any{
		"product_id": "prod-" + uuid.NewString()[:8],
		"amount":     amount,
		"currency":   "RWF",
	}
}

func createBooking(t *testing.T, c *client.BookingClient) *model.Booking {
	t.Helper()
	resp, err := c.Create(context.Background(), validBooking("15000.00"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.String())
	b, err := c.DecodeBooking(resp)
	require.NoError(t, err)
	return b
}

func requireErrorCode(t *testing.T, resp *client.Response, status int, code string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode, resp.String())
	errResp, err := client.DecodeError(resp)
	require.NoError(t, err)
	assert.Equal(t, code, errResp.Code)
}

func TestCreateBooking(t *testing.T) {
	c := newBookingClient()
	ctx := context.Background()

	resp, err := c.Create(ctx, validBooking("869728860.00"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.String())

	b, err := c.DecodeBooking(resp)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, "869728860.00", b.Amount.String())
	require.NotNil(t, b.ExpiresAt)
	assert.True(t, b.ExpiresAt.After(b.CreatedAt))

	resp, err = c.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched, err := c.DecodeBooking(resp)
	require.NoError(t, err)
	assert.Equal(t, b.ID, fetched.ID)
	assert.True(t, b.ExpiresAt.Equal(*fetched.ExpiresAt))
}

func TestCreateBooking_Rejections(t *testing.T) {
	c := newBookingClient()
	ctx := context.Background()

	resp, err := c.Create(ctx, validBooking("10.001"))
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusBadRequest, apperrors.CodeAmountOverflow)

	resp, err = c.Create(ctx, map[string]any{"product_id": "p", "amount": "10.00", "currency": "XYZ"})
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusBadRequest, apperrors.CodeValidation)

	resp, err = c.CreateRaw(ctx, []byte(`{"product_id":`))
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusBadRequest, apperrors.CodeInvalidInput)
}

func TestLifecycle(t *testing.T) {
	c := newBookingClient()
	ctx := context.Background()

	b := createBooking(t, c)
	resp, err := c.Confirm(ctx, b.ID, "pay-"+b.ID[:8])
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	confirmed, err := c.DecodeBooking(resp)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.ExpiresAt)

	resp, err = c.Confirm(ctx, b.ID, "pay-again")
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusConflict, apperrors.CodeInvalidState)

	resp, err = c.Complete(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())

	resp, err = c.Cancel(ctx, b.ID, "too late")
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusConflict, apperrors.CodeInvalidState)
}

func TestCancelPending(t *testing.T) {
	c := newBookingClient()
	ctx := context.Background()

	b := createBooking(t, c)
	resp, err := c.Cancel(ctx, b.ID, "changed plans")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	cancelled, err := c.DecodeBooking(resp)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	resp, err = c.Confirm(ctx, b.ID, "pay-1")
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusConflict, apperrors.CodeInvalidState)
}

func TestConcurrentConfirm(t *testing.T) {
	c := newBookingClient()
	b := createBooking(t, c)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses []int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Confirm(context.Background(), b.ID, fmt.Sprintf("pay-%d", i))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			statuses = append(statuses, resp.StatusCode)
			mu.Unlock()
		}()
	}
	wg.Wait()

	ok := 0
	for _, status := range statuses {
		if status == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusConflict, status)
		}
	}
	assert.Equal(t, 1, ok, "exactly one confirmation wins")
}

func TestListByStatus(t *testing.T) {
	c := newBookingClient()
	ctx := context.Background()
	createBooking(t, c)

	resp, err := c.GetAll(ctx, model.BookingStatusPending, 5, 0)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	bookings, meta, err := c.DecodeBookings(resp)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, meta.TotalCount, int64(1))
	assert.LessOrEqual(t, len(bookings), 5)
	for _, b := range bookings {
		assert.Equal(t, model.BookingStatusPending, b.Status)
	}
}

func TestIdempotentCreate(t *testing.T) {
	c := newBookingClient()
	ctx := context.Background()
	body := validBooking("500.00")
	key := uuid.NewString()

	first, err := c.CreateIdempotent(ctx, body, key)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, first.StatusCode, first.String())
	second, err := c.CreateIdempotent(ctx, body, key)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, second.StatusCode)

	a, err := c.DecodeBooking(first)
	require.NoError(t, err)
	b, err := c.DecodeBooking(second)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestSweepEndpoint(t *testing.T) {
	c := newBookingClient()
	pending := createBooking(t, c)

	resp, err := c.SweepExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())

	resp, err = c.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	b, err := c.DecodeBooking(resp)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status, "a booking inside its window survives a sweep")
}

func TestExpirationSetting(t *testing.T) {
	settings := client.NewSettingsClient(serverURL)
	ctx := context.Background()

	resp, err := settings.GetExpirationHours(ctx)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	original, err := settings.DecodePolicy(resp)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = settings.SetExpirationHours(context.Background(), original.Hours) })

	resp, err = settings.SetExpirationHours(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())

	c := newBookingClient()
	b := createBooking(t, c)
	require.NotNil(t, b.ExpiresAt)
	assert.Equal(t, 5*time.Hour, b.ExpiresAt.Sub(b.CreatedAt))

	resp, err = settings.SetExpirationHours(ctx, 721)
	require.NoError(t, err)
	requireErrorCode(t, resp, http.StatusBadRequest, apperrors.CodeValidation)
}
