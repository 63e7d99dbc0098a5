package store

import (
	"context"
	"errors"
	"time"

	"cargomatch/internal/models"
	"cargomatch/internal/status"
)

// Sentinel errors shared by all implementations. The service layer maps
// them onto its typed error kinds.
var (
	// ErrNotFound - no row with the given id.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate - uniqueness violation (email, 1:1 profile).
	ErrDuplicate = errors.New("store: duplicate")
	// ErrConflict - a conditional write found the row in a different
	// state than the caller read, i.e. a concurrent writer got there
	// first.
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence collaborator consumed by the lifecycle
// engines. Every method that touches coupled fields or more than one
// entity executes as a single transaction; conditional writes take the
// state the caller observed and fail with ErrConflict when the locked
// row no longer matches it.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, user *models.User, profile *models.LSPProfile) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetLSPProfile(ctx context.Context, id int64) (*models.LSPProfile, error)
	// DecideLSP flips the profile verification status and the owning
	// user's mirrored status in one transaction.
	DecideLSP(ctx context.Context, profileID int64, from, to status.VerificationStatus, reason string) (*models.LSPProfile, *models.User, error)
	ListAccountPairs(ctx context.Context) ([]status.AccountPair, error)
	// RepairAccountPair rewrites both rows of a drifted pair from the
	// profile's verification status, which is authoritative.
	RepairAccountPair(ctx context.Context, userID int64) error

	// Containers
	CreateContainer(ctx context.Context, c *models.Container) error
	GetContainer(ctx context.Context, id int64) (*models.Container, error)
	ListBookableContainers(ctx context.Context) ([]models.Container, error)
	DecideContainer(ctx context.Context, id int64, from, to status.ContainerApproval) (*models.Container, error)

	// Bookings
	CreateBooking(ctx context.Context, containerID, traderID int64) (*models.Booking, *models.Container, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ApproveBooking(ctx context.Context, bookingID int64) (*models.Booking, *models.Shipment, error)
	CancelBooking(ctx context.Context, bookingID int64, from status.BookingStatus) (*models.Booking, *models.Container, error)
	GetShipmentByBookingID(ctx context.Context, bookingID int64) (*models.Shipment, error)

	// Shipments
	GetShipment(ctx context.Context, id int64) (*models.Shipment, error)
	AdvanceShipment(ctx context.Context, id int64, from, to status.ShipmentStatus, actorID int64) (*models.Shipment, *models.Booking, error)
	AppendShipmentEvent(ctx context.Context, ev *models.ShipmentEvent) error
	ListShipmentEvents(ctx context.Context, shipmentID int64) ([]models.ShipmentEvent, error)

	// Complaints
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id int64) (*models.Complaint, error)
	// UpdateComplaint is a conditional write from -> to; resolution and
	// resolvedAt are applied when non-nil.
	UpdateComplaint(ctx context.Context, id int64, from, to status.ComplaintStatus, resolution *string, resolvedAt *time.Time) (*models.Complaint, error)

	// Consumer idempotency + audit trail
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error

	Close() error
}
