package models

import "time"

// Event types
const (
	EventTypeLSPRegistered     = "LSP_REGISTERED"
	EventTypeLSPApproved       = "LSP_APPROVED"
	EventTypeLSPRejected       = "LSP_REJECTED"
	EventTypeContainerApproved = "CONTAINER_APPROVED"
	EventTypeContainerRejected = "CONTAINER_REJECTED"
	EventTypeBookingCreated    = "BOOKING_CREATED"
	EventTypeBookingApproved   = "BOOKING_APPROVED"
	EventTypeBookingCancelled  = "BOOKING_CANCELLED"
	EventTypeBookingClosed     = "BOOKING_CLOSED"
	EventTypeShipmentAdvanced  = "SHIPMENT_ADVANCED"
	EventTypeShipmentDelayed   = "SHIPMENT_DELAYED"
	EventTypeComplaintFiled    = "COMPLAINT_FILED"
	EventTypeComplaintResolved = "COMPLAINT_RESOLVED"
	EventTypeComplaintClosed   = "COMPLAINT_CLOSED"
	EventTypeAccountsRepaired  = "ACCOUNTS_REPAIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OnboardingEvent covers LSP registration and decisions.
type OnboardingEvent struct {
	BaseEvent
	LSPID   int64  `json:"lsp_id"`
	UserID  int64  `json:"user_id"`
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// ListingEvent covers container approval decisions.
type ListingEvent struct {
	BaseEvent
	ContainerID int64 `json:"container_id"`
	LSPID       int64 `json:"lsp_id"`
	ActorID     int64 `json:"actor_id"`
}

// BookingEvent covers booking lifecycle transitions.
type BookingEvent struct {
	BaseEvent
	BookingID   int64  `json:"booking_id"`
	ContainerID int64  `json:"container_id"`
	TraderID    int64  `json:"trader_id"`
	LSPID       int64  `json:"lsp_id"`
	ActorID     int64  `json:"actor_id"`
	Status      string `json:"status"`
}

// ShipmentEventMsg covers shipment advances and delay reports.
type ShipmentEventMsg struct {
	BaseEvent
	ShipmentID int64  `json:"shipment_id"`
	BookingID  int64  `json:"booking_id"`
	ActorID    int64  `json:"actor_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Note       string `json:"note,omitempty"`
}

// ComplaintEvent covers complaint lifecycle transitions.
type ComplaintEvent struct {
	BaseEvent
	ComplaintID int64  `json:"complaint_id"`
	BookingID   int64  `json:"booking_id"`
	ActorID     int64  `json:"actor_id"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
}

// ReconcileEvent reports a startup repair pass.
type ReconcileEvent struct {
	BaseEvent
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
}
