package status

import "fmt"

// The legacy schema persists paired flags alongside the verification
// status. The domain model carries only the tagged status; these
// helpers derive the flags one way and detect drift in rows written by
// older code the other way.

// DeriveVerified is the canonical value of the lsp_profiles.is_verified
// column for a given verification status.
func DeriveVerified(s VerificationStatus) bool {
	return s == VerificationApproved
}

// DeriveActive is the canonical value of users.is_active. Traders are
// active regardless of verification; LSP accounts activate only on an
// approved profile.
func DeriveActive(role Role, s VerificationStatus) bool {
	if role == RoleTrader || role == RoleAdmin {
		return true
	}
	return s == VerificationApproved
}

// AccountPair is a persisted user/profile row pair as read from
// storage, flags included.
type AccountPair struct {
	UserID             int64
	Role               Role
	IsActive           bool
	IsVerified         bool
	VerificationStatus VerificationStatus
}

// CheckAccountPair reports nil when the pair satisfies the coupled-field
// contract, or a describing error when the row has drifted.
func CheckAccountPair(p AccountPair) error {
	if !ValidVerification(p.VerificationStatus) {
		return fmt.Errorf("user %d: unknown verification status %q", p.UserID, p.VerificationStatus)
	}
	if p.IsVerified != DeriveVerified(p.VerificationStatus) {
		return fmt.Errorf("user %d: is_verified=%t contradicts verification_status=%s",
			p.UserID, p.IsVerified, p.VerificationStatus)
	}
	if p.Role == RoleLSP && p.IsActive != DeriveActive(p.Role, p.VerificationStatus) {
		return fmt.Errorf("user %d: is_active=%t contradicts verification_status=%s",
			p.UserID, p.IsActive, p.VerificationStatus)
	}
	return nil
}
