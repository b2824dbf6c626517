package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skyleg/emptyleg-backend/internal/models"
)

// EventProducer writes keyed JSON events to the booking event stream
type EventProducer interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

// BookingEventMessage is the booking-events wire format
type BookingEventMessage struct {
	EventID         uuid.UUID               `json:"event_id"`
	Type            models.BookingEventType `json:"type"`
	BookingID       uuid.UUID               `json:"booking_id"`
	ReferenceNumber string                  `json:"reference_number"`
	ListingID       uuid.UUID               `json:"listing_id"`
	Status          models.BookingStatus    `json:"status"`
	SeatsRequested  int                     `json:"seats_requested"`
	TotalPrice      float64                 `json:"total_price"`
	PaymentDeadline *time.Time              `json:"payment_deadline,omitempty"`
	ActorRole       string                  `json:"actor_role"`
	OccurredAt      time.Time               `json:"occurred_at"`
}

// EventPublisher streams committed transitions, keyed by booking id
type EventPublisher struct {
	producer EventProducer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventProducer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Name implements PostCommitHook
func (p *EventPublisher) Name() string { return "booking_event_stream" }

// Handle publishes one message per event
func (p *EventPublisher) Handle(ctx context.Context, event *BookingEvent) error {
	b := event.Booking
	return p.producer.Publish(ctx, b.ID.String(), BookingEventMessage{
		EventID:         event.ID,
		Type:            event.Type,
		BookingID:       b.ID,
		ReferenceNumber: b.ReferenceNumber,
		ListingID:       b.ListingID,
		Status:          b.Status,
		SeatsRequested:  b.SeatsRequested,
		TotalPrice:      b.TotalPrice,
		PaymentDeadline: b.PaymentDeadline,
		ActorRole:       event.Actor.Role,
		OccurredAt:      event.OccurredAt.UTC(),
	})
}
