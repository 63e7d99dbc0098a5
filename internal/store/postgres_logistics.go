package store

import (
	"context"
	"database/sql"
	"fmt"

	"cargomatch/internal/models"
	"cargomatch/internal/status"
)

const containerColumns = "id, lsp_id, origin, destination, size_ft, price_cents, approval_status, status, created_at, updated_at"

// CreateContainer inserts a new listing (pending approval, available).
func (s *Postgres) CreateContainer(ctx context.Context, c *models.Container) error {
	return s.db.GetContext(ctx, c, `
		INSERT INTO containers (lsp_id, origin, destination, size_ft, price_cents, approval_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+containerColumns,
		c.LSPID, c.Origin, c.Destination, c.SizeFt, c.PriceCents, c.ApprovalStatus, c.Status)
}

// GetContainer retrieves a container by ID.
func (s *Postgres) GetContainer(ctx context.Context, id int64) (*models.Container, error) {
	var c models.Container
	err := s.db.GetContext(ctx, &c, "SELECT "+containerColumns+" FROM containers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListBookableContainers returns approved, currently available
// containers, i.e. the trader-visible listing.
func (s *Postgres) ListBookableContainers(ctx context.Context) ([]models.Container, error) {
	var cs []models.Container
	err := s.db.SelectContext(ctx, &cs,
		"SELECT "+containerColumns+" FROM containers WHERE approval_status = $1 AND status = $2 ORDER BY id",
		status.ApprovalApproved, status.ContainerAvailable)
	return cs, err
}

// DecideContainer applies an admin listing decision as a conditional
// write on the approval axis. Existing bookings are never touched.
func (s *Postgres) DecideContainer(ctx context.Context, id int64, from, to status.ContainerApproval) (*models.Container, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var c models.Container
	err = tx.GetContext(ctx, &c, "SELECT "+containerColumns+" FROM containers WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock container: %w", err)
	}
	if c.ApprovalStatus != from {
		return nil, ErrConflict
	}

	err = tx.GetContext(ctx, &c,
		"UPDATE containers SET approval_status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+containerColumns,
		to, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update container approval: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

const bookingColumns = "id, container_id, trader_id, lsp_id, status, created_at, updated_at"

// CreateBooking inserts a pending booking and flips the container to
// booked in one transaction. The container row lock serializes racing
// traders; the loser's re-check fails with ErrConflict.
func (s *Postgres) CreateBooking(ctx context.Context, containerID, traderID int64) (*models.Booking, *models.Container, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var c models.Container
	err = tx.GetContext(ctx, &c, "SELECT "+containerColumns+" FROM containers WHERE id = $1 FOR UPDATE", containerID)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock container: %w", err)
	}
	if !c.Bookable() {
		return nil, nil, ErrConflict
	}

	err = tx.GetContext(ctx, &c,
		"UPDATE containers SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+containerColumns,
		status.ContainerBooked, containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to book container: %w", err)
	}

	var b models.Booking
	err = tx.GetContext(ctx, &b, `
		INSERT INTO bookings (container_id, trader_id, lsp_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+bookingColumns,
		containerID, traderID, c.LSPID, status.BookingPending)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &b, &c, nil
}

// GetBooking retrieves a booking by ID.
func (s *Postgres) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const shipmentColumns = "id, booking_id, status, created_at, updated_at"

// ApproveBooking moves a pending booking to approved and creates its
// shipment in the same transaction.
func (s *Postgres) ApproveBooking(ctx context.Context, bookingID int64) (*models.Booking, *models.Shipment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var b models.Booking
	err = tx.GetContext(ctx, &b, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", bookingID)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	if b.Status != status.BookingPending {
		return nil, nil, ErrConflict
	}

	err = tx.GetContext(ctx, &b,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+bookingColumns,
		status.BookingApproved, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to approve booking: %w", err)
	}

	var sh models.Shipment
	err = tx.GetContext(ctx, &sh, `
		INSERT INTO shipments (booking_id, status)
		VALUES ($1, $2)
		RETURNING `+shipmentColumns,
		bookingID, status.ShipmentScheduled)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &b, &sh, nil
}

// CancelBooking cancels a booking from the given observed state and
// releases the container back to available. Cancelling an approved
// booking is refused once its shipment exists.
func (s *Postgres) CancelBooking(ctx context.Context, bookingID int64, from status.BookingStatus) (*models.Booking, *models.Container, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var b models.Booking
	err = tx.GetContext(ctx, &b, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", bookingID)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	if b.Status != from {
		return nil, nil, ErrConflict
	}

	if from == status.BookingApproved {
		var exists bool
		err = tx.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM shipments WHERE booking_id = $1)", bookingID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check shipment: %w", err)
		}
		if exists {
			return nil, nil, ErrConflict
		}
	}

	err = tx.GetContext(ctx, &b,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+bookingColumns,
		status.BookingCancelled, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	var c models.Container
	err = tx.GetContext(ctx, &c,
		"UPDATE containers SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+containerColumns,
		status.ContainerAvailable, b.ContainerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to release container: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &b, &c, nil
}

// GetShipmentByBookingID retrieves the shipment of a booking.
func (s *Postgres) GetShipmentByBookingID(ctx context.Context, bookingID int64) (*models.Shipment, error) {
	var sh models.Shipment
	err := s.db.GetContext(ctx, &sh, "SELECT "+shipmentColumns+" FROM shipments WHERE booking_id = $1", bookingID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// GetShipment retrieves a shipment by ID.
func (s *Postgres) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	var sh models.Shipment
	err := s.db.GetContext(ctx, &sh, "SELECT "+shipmentColumns+" FROM shipments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// AdvanceShipment performs one monotonic step, appends the history row,
// keeps the container's operational status in step, and closes the
// owning booking when the shipment closes - all in one transaction.
func (s *Postgres) AdvanceShipment(ctx context.Context, id int64, from, to status.ShipmentStatus, actorID int64) (*models.Shipment, *models.Booking, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var sh models.Shipment
	err = tx.GetContext(ctx, &sh, "SELECT "+shipmentColumns+" FROM shipments WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock shipment: %w", err)
	}
	if sh.Status != from {
		return nil, nil, ErrConflict
	}

	err = tx.GetContext(ctx, &sh,
		"UPDATE shipments SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+shipmentColumns,
		to, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to advance shipment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipment_events (shipment_id, kind, from_status, to_status, note, actor_id)
		VALUES ($1, $2, $3, $4, '', $5)`,
		id, models.ShipmentEventAdvanced, from, to, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to append shipment event: %w", err)
	}

	var b models.Booking
	err = tx.GetContext(ctx, &b, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", sh.BookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	switch to {
	case status.ShipmentInTransit:
		_, err = tx.ExecContext(ctx,
			"UPDATE containers SET status = $1, updated_at = NOW() WHERE id = $2",
			status.ContainerInTransit, b.ContainerID)
	case status.ShipmentDelivered:
		_, err = tx.ExecContext(ctx,
			"UPDATE containers SET status = $1, updated_at = NOW() WHERE id = $2",
			status.ContainerDelivered, b.ContainerID)
	case status.ShipmentClosed:
		err = tx.GetContext(ctx, &b,
			"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+bookingColumns,
			status.BookingClosed, sh.BookingID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply shipment side effects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &sh, &b, nil
}

// AppendShipmentEvent records a delay or incident report without
// touching the primary status.
func (s *Postgres) AppendShipmentEvent(ctx context.Context, ev *models.ShipmentEvent) error {
	return s.db.GetContext(ctx, ev, `
		INSERT INTO shipment_events (shipment_id, kind, from_status, to_status, note, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, shipment_id, kind, from_status, to_status, note, actor_id, created_at`,
		ev.ShipmentID, ev.Kind, ev.FromStatus, ev.ToStatus, ev.Note, ev.ActorID)
}

// ListShipmentEvents returns the append-only history of a shipment.
func (s *Postgres) ListShipmentEvents(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error) {
	var evs []models.ShipmentEvent
	err := s.db.SelectContext(ctx, &evs, `
		SELECT id, shipment_id, kind, from_status, to_status, note, actor_id, created_at
		FROM shipment_events WHERE shipment_id = $1 ORDER BY id`, shipmentID)
	return evs, err
}
