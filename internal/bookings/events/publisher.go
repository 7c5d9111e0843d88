package events

import (
	"context"
	"fmt"
	"time"

	"urutibiz/pkg/kafka"
	"urutibiz/pkg/model"

	"github.com/google/uuid"
)

const (
	Source        = "urutibiz-bookings"
	SchemaVersion = "1"

	publishTimeout = 5 * time.Second
)

// Sender is satisfied by *kafka.Producer.
type Sender interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher writes booking snapshots to the lifecycle topic, keyed by booking
// id so every event of one booking lands on the same partition.
type Publisher struct {
	sender Sender
}

func NewPublisher(sender Sender) *Publisher {
	return &Publisher{sender: sender}
}

func (p *Publisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	event := model.BookingEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: booking.UpdatedAt,
		Booking:    booking,
	}

	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(eventType).
		WithSource(Source).
		WithSchemaVersion(SchemaVersion).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event for booking %s: %w", eventType, booking.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.sender.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for booking %s: %w", eventType, booking.ID, err)
	}
	return nil
}
