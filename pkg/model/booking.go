package model

import (
	"time"

	"urutibiz/pkg/money"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) String() string {
	return string(s)
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusExpired, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Booking is a renter's reservation of a product. ExpiresAt is set only while
// the booking is pending.
type Booking struct {
	ID                 string        `json:"id" bson:"_id,omitempty"`
	ProductID          string        `json:"product_id" bson:"product_id"`
	RenterID           string        `json:"renter_id" bson:"renter_id"`
	OwnerID            string        `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	Status             BookingStatus `json:"status" bson:"status"`
	Amount             money.Amount  `json:"amount" bson:"amount"`
	Currency           string        `json:"currency" bson:"currency"`
	PaymentReference   string        `json:"payment_reference,omitempty" bson:"payment_reference,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" bson:"updated_at"`
	ExpiresAt          *time.Time    `json:"expires_at" bson:"expires_at"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	ExpiredAt          *time.Time    `json:"expired_at,omitempty" bson:"expired_at,omitempty"`
}

// IsPastDeadline reports whether a pending booking's window has closed at now.
func (b *Booking) IsPastDeadline(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

type CreateBookingRequest struct {
	ProductID string       `json:"product_id" validate:"required,max=64"`
	RenterID  string       `json:"renter_id" validate:"required,max=64"`
	OwnerID   string       `json:"owner_id,omitempty" validate:"omitempty,max=64"`
	Amount    money.Amount `json:"amount"`
	Currency  string       `json:"currency" validate:"required,iso4217"`
}

type ConfirmBookingRequest struct {
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=128"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type BookingFilter struct {
	Status   BookingStatus
	RenterID string
}
