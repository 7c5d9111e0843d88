package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingserrors "urutibiz/internal/bookings/errors"
	"urutibiz/internal/bookings/lifecycle"
	"urutibiz/pkg/model"

	"github.com/google/uuid"
)

// memoryBookingRepository keeps bookings in process. A single mutex makes
// every transition atomic, which gives it the same compare-and-swap behavior
// as the database-backed repositories.
type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings: make(map[string]*model.Booking),
	}
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking.ID = uuid.NewString()
	r.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memoryBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.RLock()
	matched := r.matching(filter)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.matching(filter))), nil
}

func (r *memoryBookingRepository) FindExpirable(ctx context.Context, now time.Time, limit int, exclude []string) ([]*model.Booking, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	r.mu.RLock()
	var due []*model.Booking
	for id, b := range r.bookings {
		if _, excluded := skip[id]; excluded {
			continue
		}
		if b.Status == model.BookingStatusPending && b.IsPastDeadline(now) {
			due = append(due, cloneBooking(b))
		}
	}
	r.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].ExpiresAt.Before(*due[j].ExpiresAt)
	})
	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}
	return due, nil
}

func (r *memoryBookingRepository) Transition(ctx context.Context, t Transition) (*model.Booking, error) {
	if _, err := uuid.Parse(t.ID); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, t.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[t.ID]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !lifecycle.CanTransition(b.Status, t.To) || !guardHolds(b, t) {
		return nil, bookingserrors.ErrStateConflict
	}

	applyTransition(b, t)
	return cloneBooking(b), nil
}

func (r *memoryBookingRepository) Ping(ctx context.Context) error {
	return nil
}

// matching must be called with r.mu held.
func (r *memoryBookingRepository) matching(filter model.BookingFilter) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.RenterID != "" && b.RenterID != filter.RenterID {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	return out
}
