package status

import "fmt"

// Entity identifies which transition map applies.
type Entity string

const (
	EntityLSPProfile Entity = "lsp_profile"
	EntityContainer  Entity = "container"
	EntityBooking    Entity = "booking"
	EntityShipment   Entity = "shipment"
	EntityComplaint  Entity = "complaint"
)

// Role of the acting identity.
type Role string

const (
	RoleTrader Role = "trader"
	RoleLSP    Role = "lsp"
	RoleAdmin  Role = "admin"
)

// VerificationStatus covers User and LSPProfile onboarding decisions.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// ContainerApproval is the admin review axis of a container listing.
type ContainerApproval string

const (
	ApprovalPending  ContainerApproval = "pending"
	ApprovalApproved ContainerApproval = "approved"
	ApprovalRejected ContainerApproval = "rejected"
)

// ContainerStatus is the operational axis, independent of approval.
type ContainerStatus string

const (
	ContainerAvailable ContainerStatus = "available"
	ContainerBooked    ContainerStatus = "booked"
	ContainerInTransit ContainerStatus = "in_transit"
	ContainerDelivered ContainerStatus = "delivered"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingClosed    BookingStatus = "closed"
	BookingCancelled BookingStatus = "cancelled"
)

type ShipmentStatus string

const (
	ShipmentScheduled ShipmentStatus = "scheduled"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentClosed    ShipmentStatus = "closed"
)

type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "open"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintResolved   ComplaintStatus = "resolved"
	ComplaintClosed     ComplaintStatus = "closed"
)

type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "low"
	PriorityMedium ComplaintPriority = "medium"
	PriorityHigh   ComplaintPriority = "high"
)

// Per-entity allowed transitions, configured as a directed graph.
// Terminal states map to an empty slice; a state absent from the map
// is unknown and every transition out of it is illegal.
var allowed = map[Entity]map[string][]string{
	EntityLSPProfile: {
		// A decided profile may be flipped by a new admin decision,
		// but never regresses to pending.
		string(VerificationPending):  {string(VerificationApproved), string(VerificationRejected)},
		string(VerificationApproved): {string(VerificationRejected)},
		string(VerificationRejected): {string(VerificationApproved)},
	},
	EntityContainer: {
		string(ApprovalPending):  {string(ApprovalApproved), string(ApprovalRejected)},
		string(ApprovalApproved): {string(ApprovalRejected)},
		string(ApprovalRejected): {string(ApprovalApproved)},
	},
	EntityBooking: {
		string(BookingPending):   {string(BookingApproved), string(BookingCancelled)},
		string(BookingApproved):  {string(BookingClosed), string(BookingCancelled)},
		string(BookingClosed):    {},
		string(BookingCancelled): {},
	},
	EntityShipment: {
		string(ShipmentScheduled): {string(ShipmentInTransit)},
		string(ShipmentInTransit): {string(ShipmentDelivered)},
		string(ShipmentDelivered): {string(ShipmentClosed)},
		string(ShipmentClosed):    {},
	},
	EntityComplaint: {
		string(ComplaintOpen):       {string(ComplaintInProgress), string(ComplaintResolved)},
		string(ComplaintInProgress): {string(ComplaintResolved)},
		string(ComplaintResolved):   {string(ComplaintClosed)},
		string(ComplaintClosed):     {},
	},
}

// CanTransition reports whether current -> proposed is legal for the
// entity. A no-op (current == proposed) is always legal as long as the
// state itself is known.
func CanTransition(entity Entity, current, proposed string) bool {
	states, ok := allowed[entity]
	if !ok {
		return false
	}
	next, ok := states[current]
	if !ok {
		return false
	}
	if current == proposed {
		return true
	}
	for _, s := range next {
		if s == proposed {
			return true
		}
	}
	return false
}

// ValidateTransition is the total form of CanTransition: every
// (current, proposed) pair gets a definite answer, with a reason on
// rejection.
func ValidateTransition(entity Entity, current, proposed string) error {
	states, ok := allowed[entity]
	if !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}
	if _, ok := states[current]; !ok {
		return fmt.Errorf("unknown %s state %q", entity, current)
	}
	if current != proposed {
		if _, ok := states[proposed]; !ok {
			return fmt.Errorf("unknown %s state %q", entity, proposed)
		}
	}
	if !CanTransition(entity, current, proposed) {
		return fmt.Errorf("illegal %s transition %s -> %s", entity, current, proposed)
	}
	return nil
}

// NextShipment returns the only legal successor of a shipment state.
// Terminal and unknown states have no successor.
func NextShipment(current ShipmentStatus) (ShipmentStatus, bool) {
	switch current {
	case ShipmentScheduled:
		return ShipmentInTransit, true
	case ShipmentInTransit:
		return ShipmentDelivered, true
	case ShipmentDelivered:
		return ShipmentClosed, true
	default:
		return "", false
	}
}

// ValidVerification reports whether s is a member of the enum.
func ValidVerification(s VerificationStatus) bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// ValidPriority reports whether p is a member of the enum.
func ValidPriority(p ComplaintPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidRole reports whether r is a member of the enum.
func ValidRole(r Role) bool {
	switch r {
	case RoleTrader, RoleLSP, RoleAdmin:
		return true
	}
	return false
}
