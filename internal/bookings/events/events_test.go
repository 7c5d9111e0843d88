package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"urutibiz/internal/bookings/repository"
	"urutibiz/internal/bookings/service"
	"urutibiz/internal/bookings/validator"
	"urutibiz/pkg/config"
	apperrors "urutibiz/pkg/errors"
	"urutibiz/pkg/kafka"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"
	"urutibiz/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	messages []kafka.Message
	err      error
}

func (s *captureSender) Publish(ctx context.Context, msg kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

type mockBookingService struct {
	service.BookingService
	confirmFunc func(ctx context.Context, id, paymentReference string) (*model.Booking, error)
	getByIDFunc func(ctx context.Context, id string) (*model.Booking, error)
}

func (m *mockBookingService) Confirm(ctx context.Context, id, paymentReference string) (*model.Booking, error) {
	return m.confirmFunc(ctx, id, paymentReference)
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.getByIDFunc == nil {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return m.getByIDFunc(ctx, id)
}

func sampleBooking(status model.BookingStatus) *model.Booking {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Booking{
		ID:        "b-1",
		ProductID: "prod-1",
		RenterID:  "renter-1",
		Status:    status,
		Amount:    money.MustParse("15000.00"),
		Currency:  "RWF",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func paymentMessage(t *testing.T, payment any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey("b-1").WithValue(payment).WithEventID("evt-1").Build()
	require.NoError(t, err)
	return msg
}

func TestPublisher_Publish(t *testing.T) {
	sender := &captureSender{}
	publisher := NewPublisher(sender)
	booking := sampleBooking(model.BookingStatusConfirmed)

	require.NoError(t, publisher.Publish(context.Background(), model.BookingEventConfirmed, booking))
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, "b-1", msg.Key)
	assert.Equal(t, model.BookingEventConfirmed, msg.GetEventType())
	assert.NotEmpty(t, msg.GetEventID())
	source, _ := msg.GetHeader(kafka.HeaderSource)
	assert.Equal(t, Source, source)

	var event model.BookingEvent
	require.NoError(t, msg.DecodeValue(&event))
	assert.Equal(t, msg.GetEventID(), event.EventID)
	assert.Equal(t, model.BookingEventConfirmed, event.Type)
	assert.True(t, event.OccurredAt.Equal(booking.UpdatedAt))
	require.NotNil(t, event.Booking)
	assert.Equal(t, model.BookingStatusConfirmed, event.Booking.Status)
	assert.Equal(t, "15000.00", event.Booking.Amount.String())
}

func TestPublisher_SenderFailure(t *testing.T) {
	publisher := NewPublisher(&captureSender{err: errors.New("broker down")})

	err := publisher.Publish(context.Background(), model.BookingEventCreated, sampleBooking(model.BookingStatusPending))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking.created")
}

func TestPaymentHandler_Confirms(t *testing.T) {
	var gotID, gotRef string
	svc := &mockBookingService{
		confirmFunc: func(ctx context.Context, id, ref string) (*model.Booking, error) {
			gotID, gotRef = id, ref
			b := sampleBooking(model.BookingStatusConfirmed)
			b.PaymentReference = ref
			return b, nil
		},
	}
	handler := NewPaymentHandler(svc, logger.Discard())

	err := handler.Handle(context.Background(), paymentMessage(t, model.PaymentSucceeded{BookingID: " b-1 ", PaymentReference: "pay-9"}))
	require.NoError(t, err)
	assert.Equal(t, "b-1", gotID)
	assert.Equal(t, "pay-9", gotRef)
}

func TestPaymentHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want kafka.ErrorType
	}{
		{"expired", apperrors.Expired("deadline passed", nil), kafka.ErrorTypePermanent},
		{"invalid state", apperrors.InvalidState("cancelled", nil), kafka.ErrorTypePermanent},
		{"not found", apperrors.NotFoundWithID("Booking", "b-1"), kafka.ErrorTypePermanent},
		{"validation", apperrors.Validation("bad reference", nil), kafka.ErrorTypePermanent},
		{"store unavailable", apperrors.StoreUnavailable("down", nil), kafka.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				confirmFunc: func(ctx context.Context, id, ref string) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			handler := NewPaymentHandler(svc, logger.Discard())

			err := handler.Handle(context.Background(), paymentMessage(t, model.PaymentSucceeded{BookingID: "b-1"}))
			require.Error(t, err)
			assert.Equal(t, tt.want, kafka.ClassifyError(err))
		})
	}
}

func TestPaymentHandler_RedeliveryIsAcknowledged(t *testing.T) {
	svc := &mockBookingService{
		confirmFunc: func(ctx context.Context, id, ref string) (*model.Booking, error) {
			return nil, apperrors.InvalidState("already confirmed", nil)
		},
		getByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			b := sampleBooking(model.BookingStatusConfirmed)
			confirmedAt := b.UpdatedAt
			b.ConfirmedAt = &confirmedAt
			b.PaymentReference = "pay-9"
			return b, nil
		},
	}
	handler := NewPaymentHandler(svc, logger.Discard())

	err := handler.Handle(context.Background(), paymentMessage(t, model.PaymentSucceeded{BookingID: "b-1", PaymentReference: "pay-9"}))
	assert.NoError(t, err)

	err = handler.Handle(context.Background(), paymentMessage(t, model.PaymentSucceeded{BookingID: "b-1", PaymentReference: "pay-other"}))
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

type fixedPolicy time.Duration

func (p fixedPolicy) ExpirationWindow(ctx context.Context) (time.Duration, error) {
	return time.Duration(p), nil
}

func TestPaymentHandler_RedeliveryWithSpacedReference(t *testing.T) {
	cfg := &config.Config{
		Log:            logger.Discard(),
		SweepBatchSize: config.DefaultSweepBatchSize,
	}
	svc := service.NewBookingService(
		repository.NewMemoryBookingRepository(),
		fixedPolicy(2*time.Hour),
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)
	booking, err := svc.Create(context.Background(), &model.CreateBookingRequest{
		ProductID: "prod-1",
		RenterID:  "renter-1",
		Amount:    money.MustParse("15000.00"),
		Currency:  "RWF",
	})
	require.NoError(t, err)

	handler := NewPaymentHandler(svc, logger.Discard())
	payment := model.PaymentSucceeded{BookingID: booking.ID, PaymentReference: "MTN 12345"}

	require.NoError(t, handler.Handle(context.Background(), paymentMessage(t, payment)))
	require.NoError(t, handler.Handle(context.Background(), paymentMessage(t, payment)))

	stored, err := svc.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)
	assert.Equal(t, "MTN12345", stored.PaymentReference)

	err = handler.Handle(context.Background(), paymentMessage(t, model.PaymentSucceeded{BookingID: booking.ID, PaymentReference: "MTN 99999"}))
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestPaymentHandler_MalformedPayload(t *testing.T) {
	handler := NewPaymentHandler(&mockBookingService{}, logger.Discard())

	msg, err := kafka.NewMessage().WithRawValue([]byte("{not json")).Build()
	require.NoError(t, err)
	err = handler.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	err = handler.Handle(context.Background(), paymentMessage(t, model.PaymentSucceeded{PaymentReference: "pay-1"}))
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}
