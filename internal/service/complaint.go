package service

import (
	"context"
	"strings"
	"time"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/status"
	"cargomatch/internal/store"
	"cargomatch/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ComplaintService governs complaint triage and resolution. A
// complaint must carry a resolution before it can close; a resolved
// complaint never reopens.
type ComplaintService struct {
	store  store.Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewComplaintService creates the complaint engine.
func NewComplaintService(st store.Store, events *broker.EventPublisher) *ComplaintService {
	return &ComplaintService{
		store:  st,
		events: events,
		logger: util.GetLogger(),
	}
}

// FileComplaintRequest carries a new complaint.
type FileComplaintRequest struct {
	BookingID int64                    `json:"booking_id" binding:"required"`
	Subject   string                   `json:"subject" binding:"required"`
	Priority  status.ComplaintPriority `json:"priority,omitempty"`
}

// FileComplaint opens a complaint against a booking. Traders and LSPs
// file; the LSP on the hook is taken from the booking.
func (s *ComplaintService) FileComplaint(ctx context.Context, req *FileComplaintRequest, actor Actor) (*models.Complaint, error) {
	const op = "ComplaintService.FileComplaint"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if actor.Role != status.RoleTrader && actor.Role != status.RoleLSP {
		return nil, forbidden(op, "only traders and LSPs file complaints")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, validation(op, "subject is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = status.PriorityMedium
	}
	if !status.ValidPriority(priority) {
		return nil, validation(op, "unknown priority")
	}

	b, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, storeErr(op, err, "")
	}

	c := &models.Complaint{
		Reference:     uuid.New().String(),
		BookingID:     b.ID,
		ComplainantID: actor.ID,
		LSPID:         b.LSPID,
		Subject:       req.Subject,
		Priority:      priority,
		Status:        status.ComplaintOpen,
	}
	if err := s.store.CreateComplaint(ctx, c); err != nil {
		return nil, transient(op, err)
	}

	util.ComplaintsFiledTotal.Inc()
	s.logger.Info("complaint filed",
		zap.Int64("complaint_id", c.ID),
		zap.Int64("booking_id", c.BookingID),
		zap.String("priority", string(c.Priority)))

	s.publish(ctx, models.EventTypeComplaintFiled, c, actor.ID)
	return c, nil
}

// StartComplaint moves an open complaint into triage.
func (s *ComplaintService) StartComplaint(ctx context.Context, id int64, actor Actor) (*models.Complaint, error) {
	const op = "ComplaintService.StartComplaint"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() {
		return nil, forbidden(op, "only the LSP or an admin works complaints")
	}

	c, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	if err := s.checkTransition(op, c.Status, status.ComplaintInProgress); err != nil {
		return nil, err
	}

	c, err = s.store.UpdateComplaint(ctx, id, c.Status, status.ComplaintInProgress, nil, nil)
	if err != nil {
		return nil, storeErr(op, err, "concurrent transition won")
	}
	s.logger.Info("complaint in progress", zap.Int64("complaint_id", c.ID))
	return c, nil
}

// ResolveComplaint records a resolution and moves the complaint to
// resolved. Resolving an already-resolved complaint replaces the text
// as an administrative correction and keeps the original resolved_at;
// a closed complaint rejects it.
func (s *ComplaintService) ResolveComplaint(ctx context.Context, id int64, resolutionText string, actor Actor) (*models.Complaint, error) {
	const op = "ComplaintService.ResolveComplaint"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() {
		return nil, forbidden(op, "only the LSP or an admin resolves complaints")
	}
	resolutionText = strings.TrimSpace(resolutionText)
	if resolutionText == "" {
		return nil, validation(op, "resolution text is required")
	}

	c, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}

	if c.Status == status.ComplaintResolved {
		// Administrative correction: text only, timestamp untouched.
		c, err = s.store.UpdateComplaint(ctx, id, c.Status, c.Status, &resolutionText, nil)
		if err != nil {
			return nil, storeErr(op, err, "concurrent transition won")
		}
		s.logger.Warn("resolution text corrected on resolved complaint",
			zap.Int64("complaint_id", c.ID))
		return c, nil
	}

	if err := s.checkTransition(op, c.Status, status.ComplaintResolved); err != nil {
		return nil, err
	}

	now := time.Now()
	c, err = s.store.UpdateComplaint(ctx, id, c.Status, status.ComplaintResolved, &resolutionText, &now)
	if err != nil {
		return nil, storeErr(op, err, "concurrent transition won")
	}

	util.ComplaintsResolvedTotal.Inc()
	s.logger.Info("complaint resolved", zap.Int64("complaint_id", c.ID))

	s.publish(ctx, models.EventTypeComplaintResolved, c, actor.ID)
	return c, nil
}

// CloseComplaint archives a resolved complaint. open -> closed without
// a resolution is illegal.
func (s *ComplaintService) CloseComplaint(ctx context.Context, id int64, actor Actor) (*models.Complaint, error) {
	const op = "ComplaintService.CloseComplaint"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	if !actor.CanOperate() {
		return nil, forbidden(op, "only the LSP or an admin closes complaints")
	}

	c, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	if err := s.checkTransition(op, c.Status, status.ComplaintClosed); err != nil {
		return nil, err
	}

	c, err = s.store.UpdateComplaint(ctx, id, c.Status, status.ComplaintClosed, nil, nil)
	if err != nil {
		return nil, storeErr(op, err, "concurrent transition won")
	}

	s.logger.Info("complaint closed", zap.Int64("complaint_id", c.ID))
	s.publish(ctx, models.EventTypeComplaintClosed, c, actor.ID)
	return c, nil
}

// GetComplaint returns the current complaint state.
func (s *ComplaintService) GetComplaint(ctx context.Context, id int64) (*models.Complaint, error) {
	const op = "ComplaintService.GetComplaint"
	c, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, storeErr(op, err, "")
	}
	return c, nil
}

func (s *ComplaintService) checkTransition(op string, from, to status.ComplaintStatus) error {
	if from == to {
		util.TransitionsRejectedTotal.WithLabelValues("complaint", string(KindInvalidState)).Inc()
		return invalidState(op, "complaint is already %s", to)
	}
	if err := status.ValidateTransition(status.EntityComplaint, string(from), string(to)); err != nil {
		util.TransitionsRejectedTotal.WithLabelValues("complaint", string(KindInvalidState)).Inc()
		return invalidState(op, "%v", err)
	}
	return nil
}

func (s *ComplaintService) publish(ctx context.Context, eventType string, c *models.Complaint, actorID int64) {
	if s.events == nil {
		return
	}
	event := &models.ComplaintEvent{
		BaseEvent:   broker.NewBase(eventType),
		ComplaintID: c.ID,
		BookingID:   c.BookingID,
		ActorID:     actorID,
		Status:      string(c.Status),
		Priority:    string(c.Priority),
	}
	if err := s.events.PublishComplaint(ctx, event); err != nil {
		s.logger.Error("failed to publish complaint event", zap.Error(err))
	}
}
