package service

import "cargomatch/internal/status"

// Actor is the identity attached to a transition command. The core
// performs no authentication; the adapter layer supplies the id and
// role it validated.
type Actor struct {
	ID   int64
	Role status.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == status.RoleAdmin
}

// CanOperate reports whether the actor is an LSP or an admin, the two
// roles allowed to drive booking, shipment and complaint transitions.
func (a Actor) CanOperate() bool {
	return a.Role == status.RoleLSP || a.Role == status.RoleAdmin
}
