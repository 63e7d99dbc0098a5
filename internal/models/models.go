package models

import (
	"time"

	"cargomatch/internal/status"
)

// User is a platform account. The domain model carries only the tagged
// verification status; the legacy is_active flag is derived at the
// persistence and serialization boundary.
type User struct {
	ID                 int64                     `db:"id" json:"id"`
	Email              string                    `db:"email" json:"email"`
	Name               string                    `db:"name" json:"name"`
	Role               status.Role               `db:"role" json:"role"`
	VerificationStatus status.VerificationStatus `db:"verification_status" json:"verification_status"`
	CreatedAt          time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time                 `db:"updated_at" json:"updated_at"`
}

// Active derives the canonical is_active value.
func (u *User) Active() bool {
	return status.DeriveActive(u.Role, u.VerificationStatus)
}

// LSPProfile is the 1:1 provider profile of an lsp-role User.
type LSPProfile struct {
	ID                 int64                     `db:"id" json:"id"`
	UserID             int64                     `db:"user_id" json:"user_id"`
	CompanyName        string                    `db:"company_name" json:"company_name"`
	LicenseNo          string                    `db:"license_no" json:"license_no"`
	VerificationStatus status.VerificationStatus `db:"verification_status" json:"verification_status"`
	RejectionReason    string                    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt          time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time                 `db:"updated_at" json:"updated_at"`
}

// Verified derives the canonical is_verified value.
func (p *LSPProfile) Verified() bool {
	return p.VerificationStatus == status.VerificationApproved
}

// Container is an LSP-listed shipping container. Approval and
// operational status are independent axes.
type Container struct {
	ID             int64                    `db:"id" json:"id"`
	LSPID          int64                    `db:"lsp_id" json:"lsp_id"`
	Origin         string                   `db:"origin" json:"origin"`
	Destination    string                   `db:"destination" json:"destination"`
	SizeFt         int                      `db:"size_ft" json:"size_ft"`
	PriceCents     int64                    `db:"price_cents" json:"price_cents"`
	ApprovalStatus status.ContainerApproval `db:"approval_status" json:"approval_status"`
	Status         status.ContainerStatus   `db:"status" json:"status"`
	CreatedAt      time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                `db:"updated_at" json:"updated_at"`
}

// Bookable reports whether a trader may book this container.
func (c *Container) Bookable() bool {
	return c.ApprovalStatus == status.ApprovalApproved && c.Status == status.ContainerAvailable
}

// Booking ties a trader to a container.
type Booking struct {
	ID          int64                `db:"id" json:"id"`
	ContainerID int64                `db:"container_id" json:"container_id"`
	TraderID    int64                `db:"trader_id" json:"trader_id"`
	LSPID       int64                `db:"lsp_id" json:"lsp_id"`
	Status      status.BookingStatus `db:"status" json:"status"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// Shipment tracks an approved booking through delivery.
type Shipment struct {
	ID        int64                 `db:"id" json:"id"`
	BookingID int64                 `db:"booking_id" json:"booking_id"`
	Status    status.ShipmentStatus `db:"status" json:"status"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt time.Time             `db:"updated_at" json:"updated_at"`
}

// Shipment event kinds for the append-only history.
const (
	ShipmentEventAdvanced = "ADVANCED"
	ShipmentEventDelay    = "DELAY"
	ShipmentEventIncident = "INCIDENT"
)

// ShipmentEvent is one row of the append-only shipment history. Delay
// and incident reports land here without touching the primary status.
type ShipmentEvent struct {
	ID         int64                 `db:"id" json:"id"`
	ShipmentID int64                 `db:"shipment_id" json:"shipment_id"`
	Kind       string                `db:"kind" json:"kind"`
	FromStatus status.ShipmentStatus `db:"from_status" json:"from_status"`
	ToStatus   status.ShipmentStatus `db:"to_status" json:"to_status"`
	Note       string                `db:"note" json:"note,omitempty"`
	ActorID    int64                 `db:"actor_id" json:"actor_id"`
	CreatedAt  time.Time             `db:"created_at" json:"created_at"`
}

// Complaint is a trader or LSP grievance against a booking.
type Complaint struct {
	ID            int64                    `db:"id" json:"id"`
	Reference     string                   `db:"reference" json:"reference"`
	BookingID     int64                    `db:"booking_id" json:"booking_id"`
	ComplainantID int64                    `db:"complainant_id" json:"complainant_id"`
	LSPID         int64                    `db:"lsp_id" json:"lsp_id"`
	Subject       string                   `db:"subject" json:"subject"`
	Priority      status.ComplaintPriority `db:"priority" json:"priority"`
	Status        status.ComplaintStatus   `db:"status" json:"status"`
	Resolution    *string                  `db:"resolution" json:"resolution,omitempty"`
	ResolvedAt    *time.Time               `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt     time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time                `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent for consumer idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// AuditEntry is one row of the lifecycle audit trail written by the
// audit worker from committed lifecycle events.
type AuditEntry struct {
	ID         int64     `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"event_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	EntityKind string    `db:"entity_kind" json:"entity_kind"`
	EntityID   int64     `db:"entity_id" json:"entity_id"`
	ActorID    int64     `db:"actor_id" json:"actor_id"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
