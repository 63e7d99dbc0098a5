package service

import (
	"context"
	"strings"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/status"
	"cargomatch/internal/store"
	"cargomatch/internal/util"

	"go.uber.org/zap"
)

// ShipmentService governs shipment progress. The primary status is
// strictly monotonic; delay and incident reports land in an append-only
// history without touching it.
type ShipmentService struct {
	store  store.Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewShipmentService creates the shipment engine.
func NewShipmentService(st store.Store, events *broker.EventPublisher) *ShipmentService {
	return &ShipmentService{
		store:  st,
		events: events,
		logger: util.GetLogger(),
	}
}

// AdvanceShipment moves a shipment to next, which must be the
// immediate successor of its current state. Advancing to closed also
// closes the owning booking in the same transaction.
func (s *ShipmentService) AdvanceShipment(ctx context.Context, id int64, next status.ShipmentStatus, actor Actor) (*models.Shipment, error) {
	const op = "ShipmentService.AdvanceShipment"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() {
		util.TransitionsRejectedTotal.WithLabelValues("shipment", string(KindForbidden)).Inc()
		return nil, forbidden(op, "only the LSP or an admin advances shipments")
	}

	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}

	successor, ok := status.NextShipment(sh.Status)
	if !ok || successor != next {
		util.TransitionsRejectedTotal.WithLabelValues("shipment", string(KindInvalidState)).Inc()
		return nil, invalidState(op, "shipment %d cannot go %s -> %s", id, sh.Status, next)
	}

	from := sh.Status
	sh, b, err := s.store.AdvanceShipment(ctx, id, from, next, actor.ID)
	if err != nil {
		return nil, storeErr(op, err, "concurrent transition won")
	}

	util.ShipmentsAdvancedTotal.WithLabelValues(string(next)).Inc()
	s.logger.Info("shipment advanced",
		zap.Int64("shipment_id", sh.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)))

	s.publish(ctx, models.EventTypeShipmentAdvanced, sh, b.ID, actor.ID, string(from), string(next), "")
	return sh, nil
}

// ReportDelay records a delay without changing the primary status.
func (s *ShipmentService) ReportDelay(ctx context.Context, id int64, note string, actor Actor) (*models.ShipmentEvent, error) {
	return s.report(ctx, "ShipmentService.ReportDelay", id, models.ShipmentEventDelay, note, actor)
}

// ReportIncident records an incident without changing the primary
// status.
func (s *ShipmentService) ReportIncident(ctx context.Context, id int64, note string, actor Actor) (*models.ShipmentEvent, error) {
	return s.report(ctx, "ShipmentService.ReportIncident", id, models.ShipmentEventIncident, note, actor)
}

func (s *ShipmentService) report(ctx context.Context, op string, id int64, kind, note string, actor Actor) (*models.ShipmentEvent, error) {
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() {
		return nil, forbidden(op, "only the LSP or an admin files shipment reports")
	}
	if strings.TrimSpace(note) == "" {
		return nil, validation(op, "report note is required")
	}

	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	if sh.Status == status.ShipmentClosed {
		return nil, invalidState(op, "shipment %d is closed", id)
	}

	ev := &models.ShipmentEvent{
		ShipmentID: id,
		Kind:       kind,
		FromStatus: sh.Status,
		ToStatus:   sh.Status,
		Note:       note,
		ActorID:    actor.ID,
	}
	if err := s.store.AppendShipmentEvent(ctx, ev); err != nil {
		return nil, storeErr(op, err, "")
	}

	util.ShipmentReportsTotal.WithLabelValues(kind).Inc()
	s.logger.Warn("shipment report filed",
		zap.Int64("shipment_id", id),
		zap.String("kind", kind),
		zap.String("note", note))

	s.publish(ctx, models.EventTypeShipmentDelayed, sh, sh.BookingID, actor.ID, string(sh.Status), string(sh.Status), note)
	return ev, nil
}

// GetShipment returns the shipment and its event history.
func (s *ShipmentService) GetShipment(ctx context.Context, id int64) (*models.Shipment, []models.ShipmentEvent, error) {
	const op = "ShipmentService.GetShipment"
	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return nil, nil, storeErr(op, err, "")
	}
	evs, err := s.store.ListShipmentEvents(ctx, id)
	if err != nil {
		return nil, nil, transient(op, err)
	}
	return sh, evs, nil
}

func (s *ShipmentService) publish(ctx context.Context, eventType string, sh *models.Shipment, bookingID, actorID int64, from, to, note string) {
	if s.events == nil {
		return
	}
	event := &models.ShipmentEventMsg{
		BaseEvent:  broker.NewBase(eventType),
		ShipmentID: sh.ID,
		BookingID:  bookingID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if err := s.events.PublishShipment(ctx, event); err != nil {
		s.logger.Error("failed to publish shipment event", zap.Error(err))
	}
}
