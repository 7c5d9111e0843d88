package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "urutibiz/internal/bookings/errors"
	"urutibiz/internal/bookings/repository"
	"urutibiz/internal/bookings/validator"
	"urutibiz/pkg/config"
	apperrors "urutibiz/pkg/errors"
	"urutibiz/pkg/model"
	"urutibiz/pkg/money"
	"urutibiz/pkg/sanitizer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("urutibiz/bookings")

type BookingService interface {
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Confirm(ctx context.Context, id, paymentReference string) (*model.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	// SweepExpired expires every pending booking whose deadline is at or before
	// now. Bookings lost to a concurrent confirm or sweep are skipped. On a store
	// failure the bookings already expired are returned alongside the error.
	SweepExpired(ctx context.Context, now time.Time) ([]*model.Booking, error)
}

// PolicyProvider supplies the expiration window applied to new bookings.
type PolicyProvider interface {
	ExpirationWindow(ctx context.Context) (time.Duration, error)
}

// EventPublisher announces lifecycle changes. Failures never undo the change.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking) error
}

type Option func(*bookingService)

func WithPublisher(publisher EventPublisher) Option {
	return func(s *bookingService) {
		s.publisher = publisher
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

type bookingService struct {
	repo      repository.BookingRepository
	policy    PolicyProvider
	validator *validator.BookingValidator
	publisher EventPublisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	policy PolicyProvider,
	validator *validator.BookingValidator,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repo:      repo,
		policy:    policy,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (booking *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "bookings.Create")
	defer func() { endSpan(span, err) }()

	s.sanitizeCreate(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "product_id", req.ProductID, "renter_id", req.RenterID, "error", err)
		return nil, validationError("Invalid booking input", err)
	}
	if err := s.checkAmount(req.Amount); err != nil {
		s.cfg.Log.Warn("Booking amount rejected", "amount", req.Amount.Decimal().String(), "error", err)
		return nil, err
	}

	window, err := s.policy.ExpirationWindow(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve expiration window", "error", err)
		if !apperrors.IsAppError(err) {
			err = apperrors.Internal("Failed to resolve expiration window", err)
		}
		return nil, err
	}

	now := s.clock()
	expiresAt := now.Add(window)
	booking = &model.Booking{
		ProductID: req.ProductID,
		RenterID:  req.RenterID,
		OwnerID:   req.OwnerID,
		Status:    model.BookingStatusPending,
		Amount:    req.Amount,
		Currency:  req.Currency,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expiresAt,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "product_id", req.ProductID, "renter_id", req.RenterID, "error", err)
		return nil, s.storeError("Failed to create booking", "", err)
	}
	span.SetAttributes(attribute.String("booking.id", booking.ID))

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"product_id", booking.ProductID,
		"renter_id", booking.RenterID,
		"amount", booking.Amount.String(),
		"currency", booking.Currency,
		"expires_at", expiresAt,
	)
	s.publish(ctx, model.BookingEventCreated, booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, bookingserrors.ErrNotFound) && !errors.Is(err, bookingserrors.ErrInvalidID) {
			s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		}
		return nil, s.storeError("Failed to retrieve booking", id, err)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := s.validator.ValidateStatus(filter.Status); err != nil {
		return nil, 0, validationError("Invalid status filter", err)
	}
	filter.RenterID = sanitizer.SanitizeIdentifier(filter.RenterID)
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		count    int64
		bookings []*model.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.repo.FindAll(gctx, filter, limit, offset)
		return err
	})

	if err := g.Wait(); err != nil {
		s.cfg.Log.Error("Failed to list bookings", "status", filter.Status, "limit", limit, "offset", offset, "error", err)
		return nil, 0, s.storeError("Failed to retrieve bookings", "", err)
	}
	return bookings, count, nil
}

// Confirm records a successful payment. It succeeds only while the booking is
// pending and its deadline has not passed at the moment of the write.
func (s *bookingService) Confirm(ctx context.Context, id, paymentReference string) (booking *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "bookings.Confirm", trace.WithAttributes(attribute.String("booking.id", id)))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	req := &model.ConfirmBookingRequest{PaymentReference: sanitizer.SanitizeReference(paymentReference)}
	if err := s.validator.ValidateConfirm(req); err != nil {
		return nil, validationError("Invalid confirmation input", err)
	}

	booking, err = s.transition(ctx, repository.Transition{
		ID:               id,
		To:               model.BookingStatusConfirmed,
		At:               s.clock(),
		Guard:            repository.GuardOpen,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking confirmed", "id", id, "payment_reference", booking.PaymentReference)
	s.publish(ctx, model.BookingEventConfirmed, booking)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, id, reason string) (booking *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "bookings.Cancel", trace.WithAttributes(attribute.String("booking.id", id)))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	req := &model.CancelBookingRequest{Reason: sanitizer.SanitizeReason(reason)}
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, validationError("Invalid cancellation input", err)
	}

	booking, err = s.transition(ctx, repository.Transition{
		ID:                 id,
		To:                 model.BookingStatusCancelled,
		At:                 s.clock(),
		CancellationReason: req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking cancelled", "id", id, "reason", booking.CancellationReason)
	s.publish(ctx, model.BookingEventCancelled, booking)
	return booking, nil
}

func (s *bookingService) Complete(ctx context.Context, id string) (booking *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "bookings.Complete", trace.WithAttributes(attribute.String("booking.id", id)))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err = s.transition(ctx, repository.Transition{
		ID: id,
		To: model.BookingStatusCompleted,
		At: s.clock(),
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking completed", "id", id)
	s.publish(ctx, model.BookingEventCompleted, booking)
	return booking, nil
}

func (s *bookingService) SweepExpired(ctx context.Context, now time.Time) (expired []*model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "bookings.SweepExpired")
	defer func() {
		span.SetAttributes(attribute.Int("bookings.expired", len(expired)))
		endSpan(span, err)
	}()

	if now.IsZero() {
		now = s.clock()
	} else {
		now = now.UTC().Truncate(time.Millisecond)
	}
	batchSize := s.cfg.SweepBatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultSweepBatchSize
	}

	expired = []*model.Booking{}
	var failedIDs []string
	var skipped int

	for {
		if err := ctx.Err(); err != nil {
			return expired, apperrors.StoreUnavailable("Sweep interrupted", err)
		}

		batch, err := s.repo.FindExpirable(ctx, now, batchSize, failedIDs)
		if err != nil {
			s.cfg.Log.Error("Failed to find expirable bookings", "now", now, "expired_so_far", len(expired), "error", err)
			return expired, s.storeError("Failed to find expirable bookings", "", err)
		}

		for _, candidate := range batch {
			booking, err := s.repo.Transition(ctx, repository.Transition{
				ID:    candidate.ID,
				To:    model.BookingStatusExpired,
				At:    now,
				Guard: repository.GuardElapsed,
			})
			if err != nil {
				if errors.Is(err, bookingserrors.ErrStateConflict) || errors.Is(err, bookingserrors.ErrNotFound) {
					skipped++
					s.cfg.Log.Debug("Booking left pending before it could be expired", "id", candidate.ID)
					continue
				}
				failedIDs = append(failedIDs, candidate.ID)
				s.cfg.Log.Error("Failed to expire booking", "id", candidate.ID, "error", err)
				continue
			}

			expired = append(expired, booking)
			s.publish(ctx, model.BookingEventExpired, booking)
		}

		// Failed candidates stay pending and are excluded from later pages.
		if len(batch) < batchSize {
			break
		}
	}

	if len(expired) > 0 || len(failedIDs) > 0 {
		s.cfg.Log.Info("Expiration sweep finished",
			"now", now,
			"expired", len(expired),
			"skipped", skipped,
			"failed", len(failedIDs),
		)
	}
	return expired, nil
}

func (s *bookingService) transition(ctx context.Context, t repository.Transition) (*model.Booking, error) {
	booking, err := s.repo.Transition(ctx, t)
	if err == nil {
		return booking, nil
	}
	if errors.Is(err, bookingserrors.ErrStateConflict) {
		return nil, s.conflictError(ctx, t)
	}
	if !errors.Is(err, bookingserrors.ErrNotFound) && !errors.Is(err, bookingserrors.ErrInvalidID) {
		s.cfg.Log.Error("Failed to update booking status", "id", t.ID, "target", t.To, "error", err)
	}
	return nil, s.storeError("Failed to update booking", t.ID, err)
}

// conflictError explains a rejected transition from the booking's current state.
// A confirm that lost to the deadline, or to a sweep, is reported as expired.
func (s *bookingService) conflictError(ctx context.Context, t repository.Transition) error {
	current, err := s.repo.FindByID(ctx, t.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to reload booking after rejected transition", "id", t.ID, "error", err)
		return s.storeError("Failed to reload booking", t.ID, err)
	}

	details := map[string]any{
		"id":     t.ID,
		"status": current.Status,
		"target": t.To,
	}

	if t.To == model.BookingStatusConfirmed {
		lapsed := current.Status == model.BookingStatusPending && current.IsPastDeadline(t.At)
		if lapsed || current.Status == model.BookingStatusExpired {
			if current.ExpiresAt != nil {
				details["expires_at"] = current.ExpiresAt
			}
			s.cfg.Log.Warn("Booking confirmation rejected after deadline", "id", t.ID, "status", current.Status)
			return apperrors.Expired("Booking payment window has closed", details)
		}
	}

	s.cfg.Log.Warn("Booking transition rejected", "id", t.ID, "status", current.Status, "target", t.To)
	return apperrors.InvalidState(fmt.Sprintf("Cannot change booking from %s to %s", current.Status, t.To), details)
}

func (s *bookingService) storeError(message, id string, err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrStoreUnavailable):
		return apperrors.StoreUnavailable("Booking store unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.StoreUnavailable("Booking store timed out", err)
	default:
		return apperrors.Internal(message, err)
	}
}

func (s *bookingService) checkAmount(amount money.Amount) error {
	err := amount.Check(s.cfg.MaxBookingAmount)
	if err == nil {
		return nil
	}

	details := map[string]any{"amount": amount.Decimal().String()}
	if errors.Is(err, money.ErrNegative) {
		return apperrors.Validation("Amount must not be negative", details)
	}

	limit := money.DefaultMax
	if !s.cfg.MaxBookingAmount.IsZero() {
		limit = s.cfg.MaxBookingAmount.StringFixed(money.FractionDigits)
	}
	details["max"] = limit
	details["fraction_digits"] = money.FractionDigits
	return apperrors.AmountOverflow(err.Error(), details)
}

func (s *bookingService) sanitizeCreate(req *model.CreateBookingRequest) {
	req.ProductID = sanitizer.SanitizeIdentifier(req.ProductID)
	req.RenterID = sanitizer.SanitizeIdentifier(req.RenterID)
	req.OwnerID = sanitizer.SanitizeIdentifier(req.OwnerID)
	req.Currency = sanitizer.SanitizeCurrency(req.Currency)
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), eventType, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking event", "event_type", eventType, "id", booking.ID, "error", err)
	}
}

// clock returns the current time at the millisecond precision every store keeps.
func (s *bookingService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func validationError(message string, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation(message, fieldErrs.Fields())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
