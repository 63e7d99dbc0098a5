package broker

import (
	"context"
	"fmt"
	"time"

	"cargomatch/internal/models"

	"github.com/google/uuid"
)

// EventPublisher handles publishing lifecycle events. Publish failures
// are the caller's to log; a committed transition is never rolled back
// because its event did not go out.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// NewBase stamps a fresh BaseEvent for the given type.
func NewBase(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishOnboarding publishes an LSP registration or decision event.
func (ep *EventPublisher) PublishOnboarding(ctx context.Context, event *models.OnboardingEvent) error {
	key := fmt.Sprintf("lsp-%d", event.LSPID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishListing publishes a container decision event.
func (ep *EventPublisher) PublishListing(ctx context.Context, event *models.ListingEvent) error {
	key := fmt.Sprintf("container-%d", event.ContainerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishBooking publishes a booking lifecycle event.
func (ep *EventPublisher) PublishBooking(ctx context.Context, event *models.BookingEvent) error {
	key := fmt.Sprintf("booking-%d", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishShipment publishes a shipment advance or report event.
func (ep *EventPublisher) PublishShipment(ctx context.Context, event *models.ShipmentEventMsg) error {
	key := fmt.Sprintf("shipment-%d", event.ShipmentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishComplaint publishes a complaint lifecycle event.
func (ep *EventPublisher) PublishComplaint(ctx context.Context, event *models.ComplaintEvent) error {
	key := fmt.Sprintf("complaint-%d", event.ComplaintID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReconcile publishes the report of a repair pass.
func (ep *EventPublisher) PublishReconcile(ctx context.Context, event *models.ReconcileEvent) error {
	return ep.producer.PublishEvent(ctx, "reconcile", event)
}
