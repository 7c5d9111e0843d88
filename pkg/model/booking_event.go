package model

import "time"

const (
	BookingEventCreated   = "booking.created"
	BookingEventConfirmed = "booking.confirmed"
	BookingEventCancelled = "booking.cancelled"
	BookingEventCompleted = "booking.completed"
	BookingEventExpired   = "booking.expired"
)

// BookingEvent is the value published on the lifecycle topic.
type BookingEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Booking    *Booking  `json:"booking"`
}

// PaymentSucceeded is consumed from the payments topic.
type PaymentSucceeded struct {
	BookingID        string `json:"booking_id"`
	PaymentReference string `json:"payment_reference"`
}
