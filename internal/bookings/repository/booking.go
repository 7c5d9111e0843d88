package repository

import (
	"context"
	"time"

	"urutibiz/internal/bookings/lifecycle"
	"urutibiz/pkg/model"
)

const (
	CollectionName = "Bookings"
	TableName      = "bookings"
)

// DeadlineGuard constrains a transition by the booking's expires_at relative
// to Transition.At.
type DeadlineGuard int

const (
	GuardNone DeadlineGuard = iota
	// GuardOpen requires At < expires_at.
	GuardOpen
	// GuardElapsed requires expires_at <= At.
	GuardElapsed
)

// Transition is a conditional status change. It applies only while the stored
// status is one of lifecycle.Sources(To) and the deadline guard holds; otherwise
// the repository reports ErrStateConflict and writes nothing.
type Transition struct {
	ID                 string
	To                 model.BookingStatus
	At                 time.Time
	Guard              DeadlineGuard
	PaymentReference   string
	CancellationReason string
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	// FindExpirable returns pending bookings whose deadline is at or before now,
	// oldest deadline first. Bookings whose ids are in exclude are left out.
	FindExpirable(ctx context.Context, now time.Time, limit int, exclude []string) ([]*model.Booking, error)
	Transition(ctx context.Context, t Transition) (*model.Booking, error)
	Ping(ctx context.Context) error
}

func sourceStatuses(to model.BookingStatus) []string {
	sources := lifecycle.Sources(to)
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}

// stampField names the audit timestamp a transition into status sets.
func stampField(status model.BookingStatus) string {
	switch status {
	case model.BookingStatusConfirmed:
		return "confirmed_at"
	case model.BookingStatusCancelled:
		return "cancelled_at"
	case model.BookingStatusCompleted:
		return "completed_at"
	case model.BookingStatusExpired:
		return "expired_at"
	}
	return ""
}

func guardHolds(b *model.Booking, t Transition) bool {
	switch t.Guard {
	case GuardOpen:
		return b.ExpiresAt != nil && t.At.Before(*b.ExpiresAt)
	case GuardElapsed:
		return b.ExpiresAt != nil && !b.ExpiresAt.After(t.At)
	}
	return true
}

func applyTransition(b *model.Booking, t Transition) {
	at := t.At
	b.Status = t.To
	b.UpdatedAt = at
	b.ExpiresAt = nil

	switch t.To {
	case model.BookingStatusConfirmed:
		b.ConfirmedAt = &at
	case model.BookingStatusCancelled:
		b.CancelledAt = &at
	case model.BookingStatusCompleted:
		b.CompletedAt = &at
	case model.BookingStatusExpired:
		b.ExpiredAt = &at
	}
	if t.PaymentReference != "" {
		b.PaymentReference = t.PaymentReference
	}
	if t.CancellationReason != "" {
		b.CancellationReason = t.CancellationReason
	}
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	c.ExpiresAt = cloneTime(b.ExpiresAt)
	c.ConfirmedAt = cloneTime(b.ConfirmedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.ExpiredAt = cloneTime(b.ExpiredAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
