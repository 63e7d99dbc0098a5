package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingPending, BookingApproved, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingClosed, false},
		{BookingApproved, BookingClosed, true},
		{BookingApproved, BookingCancelled, true},
		{BookingClosed, BookingApproved, false},
		{BookingClosed, BookingPending, false},
		{BookingCancelled, BookingPending, false},
		{BookingCancelled, BookingApproved, false},
	}
	for _, c := range cases {
		got := CanTransition(EntityBooking, string(c.from), string(c.to))
		assert.Equal(t, c.ok, got, "%s -> %s", c.from, c.to)
	}
}

func TestShipmentStrictlyMonotonic(t *testing.T) {
	order := []ShipmentStatus{ShipmentScheduled, ShipmentInTransit, ShipmentDelivered, ShipmentClosed}
	for i, from := range order {
		for j, to := range order {
			ok := CanTransition(EntityShipment, string(from), string(to))
			switch {
			case i == j:
				assert.True(t, ok, "no-op %s must be legal", from)
			case j == i+1:
				assert.True(t, ok, "%s -> %s must be legal", from, to)
			default:
				assert.False(t, ok, "%s -> %s must be illegal", from, to)
			}
		}
	}
}

func TestNextShipment(t *testing.T) {
	next, ok := NextShipment(ShipmentScheduled)
	require.True(t, ok)
	assert.Equal(t, ShipmentInTransit, next)

	_, ok = NextShipment(ShipmentClosed)
	assert.False(t, ok)
}

func TestComplaintNoDirectClose(t *testing.T) {
	assert.False(t, CanTransition(EntityComplaint, string(ComplaintOpen), string(ComplaintClosed)))
	assert.True(t, CanTransition(EntityComplaint, string(ComplaintOpen), string(ComplaintResolved)))
	assert.True(t, CanTransition(EntityComplaint, string(ComplaintResolved), string(ComplaintClosed)))
	assert.False(t, CanTransition(EntityComplaint, string(ComplaintResolved), string(ComplaintOpen)))
}

func TestVerificationNeverBackToPending(t *testing.T) {
	assert.True(t, CanTransition(EntityLSPProfile, string(VerificationApproved), string(VerificationRejected)))
	assert.True(t, CanTransition(EntityLSPProfile, string(VerificationRejected), string(VerificationApproved)))
	assert.False(t, CanTransition(EntityLSPProfile, string(VerificationApproved), string(VerificationPending)))
	assert.False(t, CanTransition(EntityLSPProfile, string(VerificationRejected), string(VerificationPending)))
}

func TestValidateTransitionTotal(t *testing.T) {
	// Every known (current, proposed) pair has a definite answer and
	// unknown inputs are rejected rather than panicking.
	require.NoError(t, ValidateTransition(EntityBooking, string(BookingPending), string(BookingPending)))
	require.Error(t, ValidateTransition(EntityBooking, "limbo", string(BookingApproved)))
	require.Error(t, ValidateTransition(EntityBooking, string(BookingPending), "limbo"))
	require.Error(t, ValidateTransition(Entity("ghost"), "a", "b"))

	for entity, states := range allowed {
		for from := range states {
			for to := range states {
				err := ValidateTransition(entity, from, to)
				if CanTransition(entity, from, to) {
					assert.NoError(t, err)
				} else {
					assert.Error(t, err)
				}
			}
		}
	}
}

func TestDerivedFlags(t *testing.T) {
	assert.True(t, DeriveVerified(VerificationApproved))
	assert.False(t, DeriveVerified(VerificationPending))
	assert.False(t, DeriveVerified(VerificationRejected))

	// Traders are active without profile verification, LSPs are not.
	assert.True(t, DeriveActive(RoleTrader, VerificationPending))
	assert.False(t, DeriveActive(RoleLSP, VerificationPending))
	assert.True(t, DeriveActive(RoleLSP, VerificationApproved))
	assert.False(t, DeriveActive(RoleLSP, VerificationRejected))
}

func TestCheckAccountPair(t *testing.T) {
	clean := AccountPair{
		UserID:             1,
		Role:               RoleLSP,
		IsActive:           true,
		IsVerified:         true,
		VerificationStatus: VerificationApproved,
	}
	assert.NoError(t, CheckAccountPair(clean))

	drifted := clean
	drifted.IsVerified = false
	assert.Error(t, CheckAccountPair(drifted))

	halfApplied := clean
	halfApplied.IsActive = false
	assert.Error(t, CheckAccountPair(halfApplied))

	trader := AccountPair{
		UserID:             2,
		Role:               RoleTrader,
		IsActive:           true,
		IsVerified:         false,
		VerificationStatus: VerificationPending,
	}
	assert.NoError(t, CheckAccountPair(trader))
}
