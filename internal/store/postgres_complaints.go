package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cargomatch/internal/models"
	"cargomatch/internal/status"
)

const complaintColumns = "id, reference, booking_id, complainant_id, lsp_id, subject, priority, status, resolution, resolved_at, created_at, updated_at"

// CreateComplaint inserts a new open complaint.
func (s *Postgres) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return s.db.GetContext(ctx, c, `
		INSERT INTO complaints (reference, booking_id, complainant_id, lsp_id, subject, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+complaintColumns,
		c.Reference, c.BookingID, c.ComplainantID, c.LSPID, c.Subject, c.Priority, c.Status)
}

// GetComplaint retrieves a complaint by ID.
func (s *Postgres) GetComplaint(ctx context.Context, id int64) (*models.Complaint, error) {
	var c models.Complaint
	err := s.db.GetContext(ctx, &c, "SELECT "+complaintColumns+" FROM complaints WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateComplaint is a conditional status write. Resolution text and
// resolved_at are applied only when non-nil, so an administrative
// correction can replace the text without moving the timestamp.
func (s *Postgres) UpdateComplaint(ctx context.Context, id int64, from, to status.ComplaintStatus, resolution *string, resolvedAt *time.Time) (*models.Complaint, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var c models.Complaint
	err = tx.GetContext(ctx, &c, "SELECT "+complaintColumns+" FROM complaints WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock complaint: %w", err)
	}
	if c.Status != from {
		return nil, ErrConflict
	}

	err = tx.GetContext(ctx, &c, `
		UPDATE complaints
		SET status = $1,
		    resolution = COALESCE($2, resolution),
		    resolved_at = COALESCE($3, resolved_at),
		    updated_at = NOW()
		WHERE id = $4
		RETURNING `+complaintColumns,
		to, resolution, resolvedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

// IsEventProcessed checks if an event has been processed.
func (s *Postgres) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed.
func (s *Postgres) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

// AppendAudit records one lifecycle audit row.
func (s *Postgres) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	return s.db.GetContext(ctx, entry, `
		INSERT INTO lifecycle_audit (event_id, event_type, entity_kind, entity_id, actor_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, event_id, event_type, entity_kind, entity_id, actor_id, detail, created_at`,
		entry.EventID, entry.EventType, entry.EntityKind, entry.EntityID, entry.ActorID, entry.Detail)
}
