package service

import (
	"context"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/redisclient"
	"cargomatch/internal/status"
	"cargomatch/internal/store"
	"cargomatch/internal/util"

	"go.uber.org/zap"
)

// ListingService governs container approval. Approval and operational
// status are independent axes; this engine only ever touches the
// approval axis, so flipping a decision leaves existing bookings
// untouched.
type ListingService struct {
	store  store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewListingService creates the listing engine.
func NewListingService(st store.Store, redis *redisclient.Client, events *broker.EventPublisher) *ListingService {
	return &ListingService{
		store:  st,
		redis:  redis,
		events: events,
		logger: util.GetLogger(),
	}
}

// CreateContainerRequest carries a new listing.
type CreateContainerRequest struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	SizeFt      int    `json:"size_ft" binding:"required,min=10"`
	PriceCents  int64  `json:"price_cents" binding:"required,min=1"`
}

// CreateContainer lists a container for admin review. Only LSPs list.
func (s *ListingService) CreateContainer(ctx context.Context, req *CreateContainerRequest, actor Actor) (*models.Container, error) {
	const op = "ListingService.CreateContainer"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if actor.Role != status.RoleLSP {
		return nil, forbidden(op, "only LSPs list containers")
	}
	if req.Origin == "" || req.Destination == "" {
		return nil, validation(op, "origin and destination are required")
	}

	c := &models.Container{
		LSPID:          actor.ID,
		Origin:         req.Origin,
		Destination:    req.Destination,
		SizeFt:         req.SizeFt,
		PriceCents:     req.PriceCents,
		ApprovalStatus: status.ApprovalPending,
		Status:         status.ContainerAvailable,
	}
	if err := s.store.CreateContainer(ctx, c); err != nil {
		return nil, transient(op, err)
	}

	if s.redis != nil {
		if err := s.redis.InitContainer(ctx, c.ID); err != nil {
			s.logger.Warn("failed to seed container hold state",
				zap.Int64("container_id", c.ID), zap.Error(err))
		}
	}

	s.logger.Info("container listed",
		zap.Int64("container_id", c.ID),
		zap.Int64("lsp_id", c.LSPID))
	return c, nil
}

// ApproveContainer makes a listing visible to traders.
func (s *ListingService) ApproveContainer(ctx context.Context, id int64, actor Actor) (*models.Container, error) {
	return s.decide(ctx, "ListingService.ApproveContainer", id, status.ApprovalApproved, actor)
}

// RejectContainer hides a listing from traders. Bookings already made
// against it are not cascade-cancelled.
func (s *ListingService) RejectContainer(ctx context.Context, id int64, actor Actor) (*models.Container, error) {
	return s.decide(ctx, "ListingService.RejectContainer", id, status.ApprovalRejected, actor)
}

func (s *ListingService) decide(ctx context.Context, op string, id int64, to status.ContainerApproval, actor Actor) (*models.Container, error) {
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.IsAdmin() {
		util.TransitionsRejectedTotal.WithLabelValues("container", string(KindForbidden)).Inc()
		return nil, forbidden(op, "only admins decide listings")
	}

	c, err := s.store.GetContainer(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}

	from := c.ApprovalStatus
	if from == to {
		util.TransitionsRejectedTotal.WithLabelValues("container", string(KindInvalidState)).Inc()
		return nil, invalidState(op, "container is already %s", to)
	}
	if err := status.ValidateTransition(status.EntityContainer, string(from), string(to)); err != nil {
		util.TransitionsRejectedTotal.WithLabelValues("container", string(KindInvalidState)).Inc()
		return nil, invalidState(op, "%v", err)
	}

	c, err = s.store.DecideContainer(ctx, id, from, to)
	if err != nil {
		return nil, storeErr(op, err, "concurrent decision won")
	}

	util.ContainerDecisionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("container listing decided",
		zap.Int64("container_id", c.ID),
		zap.String("decision", string(to)))

	if s.events != nil {
		eventType := models.EventTypeContainerApproved
		if to == status.ApprovalRejected {
			eventType = models.EventTypeContainerRejected
		}
		event := &models.ListingEvent{
			BaseEvent:   broker.NewBase(eventType),
			ContainerID: c.ID,
			LSPID:       c.LSPID,
			ActorID:     actor.ID,
		}
		if err := s.events.PublishListing(ctx, event); err != nil {
			s.logger.Error("failed to publish listing event", zap.Error(err))
		}
	}
	return c, nil
}

// GetContainer returns the current container state.
func (s *ListingService) GetContainer(ctx context.Context, id int64) (*models.Container, error) {
	const op = "ListingService.GetContainer"
	c, err := s.store.GetContainer(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return c, nil
}

// ListBookable returns the trader-visible listing: approved and
// currently available containers.
func (s *ListingService) ListBookable(ctx context.Context) ([]models.Container, error) {
	const op = "ListingService.ListBookable"
	cs, err := s.store.ListBookableContainers(ctx)
	if err != nil {
		return nil, transient(op, err)
	}
	return cs, nil
}
