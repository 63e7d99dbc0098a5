package worker

import (
	"context"
	"encoding/json"
	"log"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/store"

	"github.com/segmentio/kafka-go"
)

// AuditWorker consumes lifecycle events and writes them to the audit
// trail. Every event is recorded at most once: the worker checks the
// processed-event table before appending and marks the event after,
// so redelivered messages are skipped.
type AuditWorker struct {
	consumer *broker.Consumer
	store    store.Store
}

// NewAuditWorker creates a new audit worker.
func NewAuditWorker(consumer *broker.Consumer, st store.Store) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		store:    st,
	}
}

// Start starts the worker.
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker.
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

func (w *AuditWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		log.Printf("Failed to unmarshal event, skipping: %v", err)
		// Malformed payloads are unrecoverable, commit past them.
		return nil
	}
	if base.EventID == "" || base.EventType == "" {
		log.Printf("Event missing id or type, skipping: key=%s", string(msg.Key))
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed, skipping: %s", base.EventID)
		return nil
	}

	entry, err := auditEntry(&base, msg.Value)
	if err != nil {
		log.Printf("Failed to decode event %s, skipping: %v", base.EventID, err)
		return nil
	}

	if err := w.store.AppendAudit(ctx, entry); err != nil {
		return err
	}
	if err := w.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		return err
	}

	log.Printf("Audited event: id=%s type=%s entity=%s/%d",
		base.EventID, base.EventType, entry.EntityKind, entry.EntityID)
	return nil
}

// auditEntry flattens a typed event payload into an audit row.
func auditEntry(base *models.BaseEvent, raw []byte) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		EventID:   base.EventID,
		EventType: base.EventType,
		CreatedAt: base.Timestamp,
		Detail:    string(raw),
	}

	switch base.EventType {
	case models.EventTypeLSPRegistered, models.EventTypeLSPApproved, models.EventTypeLSPRejected:
		var ev models.OnboardingEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		entry.EntityKind = "lsp"
		entry.EntityID = ev.LSPID
		entry.ActorID = ev.ActorID

	case models.EventTypeContainerApproved, models.EventTypeContainerRejected:
		var ev models.ListingEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		entry.EntityKind = "container"
		entry.EntityID = ev.ContainerID
		entry.ActorID = ev.ActorID

	case models.EventTypeBookingCreated, models.EventTypeBookingApproved,
		models.EventTypeBookingCancelled, models.EventTypeBookingClosed:
		var ev models.BookingEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		entry.EntityKind = "booking"
		entry.EntityID = ev.BookingID
		entry.ActorID = ev.ActorID

	case models.EventTypeShipmentAdvanced, models.EventTypeShipmentDelayed:
		var ev models.ShipmentEventMsg
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		entry.EntityKind = "shipment"
		entry.EntityID = ev.ShipmentID
		entry.ActorID = ev.ActorID

	case models.EventTypeComplaintFiled, models.EventTypeComplaintResolved, models.EventTypeComplaintClosed:
		var ev models.ComplaintEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		entry.EntityKind = "complaint"
		entry.EntityID = ev.ComplaintID
		entry.ActorID = ev.ActorID

	case models.EventTypeAccountsRepaired:
		entry.EntityKind = "accounts"

	default:
		entry.EntityKind = "unknown"
	}

	return entry, nil
}
