package events

import (
	"context"
	"strings"

	"urutibiz/internal/bookings/service"
	apperrors "urutibiz/pkg/errors"
	"urutibiz/pkg/kafka"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"
	"urutibiz/pkg/sanitizer"
)

// PaymentHandler confirms the booking a successful payment refers to.
type PaymentHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewPaymentHandler(service service.BookingService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

// Handle maps confirmation outcomes onto consumer retry semantics. A closed
// payment window or an illegal state can never succeed and is dead-lettered.
// Store unavailability is retried. Redelivery of an already confirmed payment
// with the same reference is acknowledged.
func (h *PaymentHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var payment model.PaymentSucceeded
	if err := msg.DecodeValue(&payment); err != nil {
		return err
	}
	payment.BookingID = strings.TrimSpace(payment.BookingID)
	if payment.BookingID == "" {
		return kafka.NewPermanentError("payment event has no booking_id", kafka.ErrInvalidMessage)
	}

	booking, err := h.service.Confirm(ctx, payment.BookingID, payment.PaymentReference)
	if err == nil {
		h.log.Info("Booking confirmed from payment event",
			"id", booking.ID,
			"payment_reference", booking.PaymentReference,
			"event_id", msg.GetEventID(),
		)
		return nil
	}

	if h.isRedelivery(ctx, payment, err) {
		h.log.Info("Ignoring redelivered payment event", "id", payment.BookingID, "event_id", msg.GetEventID())
		return nil
	}

	switch {
	case apperrors.IsRetryable(err):
		return kafka.NewTransientError("booking store unavailable", err)
	case apperrors.HasCode(err, apperrors.CodeExpired):
		h.log.Warn("Payment arrived after booking expired", "id", payment.BookingID, "payment_reference", payment.PaymentReference)
		return kafka.NewPermanentError("booking expired before payment", err)
	default:
		return kafka.NewPermanentError("booking could not be confirmed", err)
	}
}

func (h *PaymentHandler) isRedelivery(ctx context.Context, payment model.PaymentSucceeded, err error) bool {
	if !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		return false
	}
	current, getErr := h.service.GetByID(ctx, payment.BookingID)
	if getErr != nil {
		return false
	}
	return current.Status != model.BookingStatusPending &&
		current.ConfirmedAt != nil &&
		current.PaymentReference == sanitizer.SanitizeReference(payment.PaymentReference)
}
