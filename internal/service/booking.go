package service

import (
	"context"
	"errors"
	"time"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/redisclient"
	"cargomatch/internal/status"
	"cargomatch/internal/store"
	"cargomatch/internal/util"

	"go.uber.org/zap"
)

// BookingService governs the booking lifecycle. Creating a booking and
// flipping the container to booked is one transaction; racing traders
// serialize on the container row, first writer wins.
type BookingService struct {
	store  store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewBookingService creates the booking engine.
func NewBookingService(st store.Store, redis *redisclient.Client, events *broker.EventPublisher) *BookingService {
	return &BookingService{
		store:  st,
		redis:  redis,
		events: events,
		logger: util.GetLogger(),
	}
}

// CreateBookingRequest carries a trader booking request.
type CreateBookingRequest struct {
	ContainerID int64 `json:"container_id" binding:"required"`
}

// CreateBooking books an approved, available container for a trader.
// The redis hold short-circuits the obvious loser before the database
// transaction re-checks under the row lock.
func (s *BookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest, actor Actor) (*models.Booking, error) {
	const op = "BookingService.CreateBooking"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if actor.Role != status.RoleTrader {
		return nil, forbidden(op, "only traders create bookings")
	}

	c, err := s.store.GetContainer(ctx, req.ContainerID)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	if c.ApprovalStatus != status.ApprovalApproved {
		util.TransitionsRejectedTotal.WithLabelValues("booking", string(KindInvalidState)).Inc()
		return nil, invalidState(op, "container %d is not approved for booking", c.ID)
	}
	if c.Status != status.ContainerAvailable {
		util.BookingConflictsTotal.Inc()
		return nil, conflict(op, "container is not available")
	}

	held := true
	if s.redis != nil {
		start := time.Now()
		held, err = s.redis.HoldContainer(ctx, c.ID, actor.ID)
		util.BookingHoldLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			// Hold is an optimization; the row lock below remains the
			// authority when redis is unavailable.
			s.logger.Warn("container hold unavailable, falling through to row lock",
				zap.Int64("container_id", c.ID), zap.Error(err))
			held = true
		}
	}
	if !held {
		util.BookingConflictsTotal.Inc()
		return nil, conflict(op, "container was just booked by another trader")
	}

	b, _, err := s.store.CreateBooking(ctx, c.ID, actor.ID)
	if err != nil {
		if s.redis != nil && !errors.Is(err, store.ErrConflict) {
			if rerr := s.redis.ReleaseContainer(ctx, c.ID); rerr != nil {
				s.logger.Error("failed to release container hold", zap.Error(rerr))
			}
		}
		if errors.Is(err, store.ErrConflict) {
			util.BookingConflictsTotal.Inc()
		}
		return nil, storeErr(op, err, "container was just booked by another trader")
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("container_id", b.ContainerID),
		zap.Int64("trader_id", b.TraderID))

	s.publish(ctx, models.EventTypeBookingCreated, b, actor.ID)
	return b, nil
}

// ApproveBooking confirms a pending booking and creates its shipment
// in the same transaction.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID int64, actor Actor) (*models.Booking, *models.Shipment, error) {
	const op = "BookingService.ApproveBooking"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() {
		util.TransitionsRejectedTotal.WithLabelValues("booking", string(KindForbidden)).Inc()
		return nil, nil, forbidden(op, "only the LSP or an admin approves bookings")
	}

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, storeErr(op, err, "")
	}
	if actor.Role == status.RoleLSP && b.LSPID != actor.ID {
		return nil, nil, forbidden(op, "booking belongs to another LSP")
	}
	if err := s.checkTransition(op, b.Status, status.BookingApproved); err != nil {
		return nil, nil, err
	}

	b, sh, err := s.store.ApproveBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, storeErr(op, err, "concurrent transition won")
	}

	util.BookingsApprovedTotal.Inc()
	s.logger.Info("booking approved, shipment scheduled",
		zap.Int64("booking_id", b.ID),
		zap.Int64("shipment_id", sh.ID))

	s.publish(ctx, models.EventTypeBookingApproved, b, actor.ID)
	return b, sh, nil
}

// CancelBooking cancels a pending booking, or an approved one as long
// as no shipment exists yet, and releases the container.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, actor Actor) (*models.Booking, error) {
	const op = "BookingService.CancelBooking"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() && actor.Role != status.RoleTrader {
		return nil, forbidden(op, "unknown role")
	}

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	switch actor.Role {
	case status.RoleTrader:
		if b.TraderID != actor.ID {
			return nil, forbidden(op, "booking belongs to another trader")
		}
	case status.RoleLSP:
		if b.LSPID != actor.ID {
			return nil, forbidden(op, "booking belongs to another LSP")
		}
	}
	if err := s.checkTransition(op, b.Status, status.BookingCancelled); err != nil {
		return nil, err
	}
	if b.Status == status.BookingApproved {
		if _, err := s.store.GetShipmentByBookingID(ctx, bookingID); err == nil {
			util.TransitionsRejectedTotal.WithLabelValues("booking", string(KindInvalidState)).Inc()
			return nil, invalidState(op, "booking %d already has a shipment", bookingID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, transient(op, err)
		}
	}

	b, c, err := s.store.CancelBooking(ctx, bookingID, b.Status)
	if err != nil {
		return nil, storeErr(op, err, "concurrent transition won")
	}

	if s.redis != nil {
		if err := s.redis.ReleaseContainer(ctx, c.ID); err != nil {
			s.logger.Error("failed to release container hold",
				zap.Int64("container_id", c.ID), zap.Error(err))
		}
	}

	util.BookingsCancelledTotal.Inc()
	s.logger.Info("booking cancelled",
		zap.Int64("booking_id", b.ID),
		zap.Int64("container_id", c.ID))

	s.publish(ctx, models.EventTypeBookingCancelled, b, actor.ID)
	return b, nil
}

// GetBooking returns the current booking state.
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	const op = "BookingService.GetBooking"
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return b, nil
}

func (s *BookingService) checkTransition(op string, from, to status.BookingStatus) error {
	if from == to {
		util.TransitionsRejectedTotal.WithLabelValues("booking", string(KindInvalidState)).Inc()
		return invalidState(op, "booking is already %s", to)
	}
	if err := status.ValidateTransition(status.EntityBooking, string(from), string(to)); err != nil {
		util.TransitionsRejectedTotal.WithLabelValues("booking", string(KindInvalidState)).Inc()
		return invalidState(op, "%v", err)
	}
	return nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *models.Booking, actorID int64) {
	if s.events == nil {
		return
	}
	event := &models.BookingEvent{
		BaseEvent:   broker.NewBase(eventType),
		BookingID:   b.ID,
		ContainerID: b.ContainerID,
		TraderID:    b.TraderID,
		LSPID:       b.LSPID,
		ActorID:     actorID,
		Status:      string(b.Status),
	}
	if err := s.events.PublishBooking(ctx, event); err != nil {
		s.logger.Error("failed to publish booking event", zap.Error(err))
	}
}
