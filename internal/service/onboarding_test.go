package service

import (
	"context"
	"testing"
	"time"

	"cargomatch/internal/status"
	"cargomatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLSPStartsPendingAndInactive(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	profile, user, err := e.onboarding.RegisterLSP(ctx, &RegisterLSPRequest{
		Email:       "lsp@example.com",
		Name:        "Ocean Freight",
		CompanyName: "Ocean Freight Pvt",
		LicenseNo:   "LIC-1",
	})
	require.NoError(t, err)

	assert.Equal(t, status.VerificationPending, profile.VerificationStatus)
	assert.False(t, profile.Verified())
	assert.Equal(t, status.RoleLSP, user.Role)
	assert.False(t, user.Active())
}

func TestRegisterLSPDuplicateEmail(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	req := &RegisterLSPRequest{
		Email:       "dup@example.com",
		Name:        "A",
		CompanyName: "A Co",
		LicenseNo:   "LIC-2",
	}
	_, _, err := e.onboarding.RegisterLSP(ctx, req)
	require.NoError(t, err)

	_, _, err = e.onboarding.RegisterLSP(ctx, req)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestApproveLSPFlipsBothFieldsTogether(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	profile, user, err := e.onboarding.RegisterLSP(ctx, &RegisterLSPRequest{
		Email:       "atomic@example.com",
		Name:        "B",
		CompanyName: "B Co",
		LicenseNo:   "LIC-3",
	})
	require.NoError(t, err)

	profile, err = e.onboarding.ApproveLSP(ctx, profile.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, status.VerificationApproved, profile.VerificationStatus)
	assert.True(t, profile.Verified())

	// The owning user observes the same committed state.
	u, err := e.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, status.VerificationApproved, u.VerificationStatus)
	assert.True(t, u.Active())

	active, err := e.onboarding.CanLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestApproveLSPIdempotentCallRejected(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	_, profile := seedLSP(t, e, "already@example.com")

	_, err := e.onboarding.ApproveLSP(ctx, profile.ID, admin)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))

	// State untouched by the rejected attempt.
	p, err := e.onboarding.GetLSP(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, status.VerificationApproved, p.VerificationStatus)
}

func TestRejectLSPRequiresReason(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	profile, _, err := e.onboarding.RegisterLSP(ctx, &RegisterLSPRequest{
		Email:       "noreason@example.com",
		Name:        "C",
		CompanyName: "C Co",
		LicenseNo:   "LIC-4",
	})
	require.NoError(t, err)

	_, err = e.onboarding.RejectLSP(ctx, profile.ID, "   ", admin)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestDecisionReversibleButNeverPending(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	profile, user, err := e.onboarding.RegisterLSP(ctx, &RegisterLSPRequest{
		Email:       "flip@example.com",
		Name:        "D",
		CompanyName: "D Co",
		LicenseNo:   "LIC-5",
	})
	require.NoError(t, err)

	profile, err = e.onboarding.RejectLSP(ctx, profile.ID, "incomplete documents", admin)
	require.NoError(t, err)
	assert.Equal(t, status.VerificationRejected, profile.VerificationStatus)

	u, err := e.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, u.Active())

	// An admin may reverse the decision.
	profile, err = e.onboarding.ApproveLSP(ctx, profile.ID, admin)
	require.NoError(t, err)
	assert.True(t, profile.Verified())
}

func TestOnboardingDecisionsAdminOnly(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	profile, _, err := e.onboarding.RegisterLSP(ctx, &RegisterLSPRequest{
		Email:       "forbidden@example.com",
		Name:        "E",
		CompanyName: "E Co",
		LicenseNo:   "LIC-6",
	})
	require.NoError(t, err)

	lspActor := Actor{ID: 1, Role: status.RoleLSP}
	_, err = e.onboarding.ApproveLSP(ctx, profile.ID, lspActor)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
}

func TestApproveLSPUnknownID(t *testing.T) {
	e := newEngines()
	_, err := e.onboarding.ApproveLSP(context.Background(), 424242, admin)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestRegisterTraderActiveImmediately(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	user, err := e.onboarding.RegisterTrader(ctx, &RegisterTraderRequest{
		Email: "trader@example.com",
		Name:  "Trader",
	})
	require.NoError(t, err)
	assert.True(t, user.Active())

	active, err := e.onboarding.CanLogin(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestAccountCacheTTLConfigurable(t *testing.T) {
	mem := store.NewMemory()

	svc := NewOnboardingService(mem, nil, nil, 0)
	assert.Equal(t, defaultAccountCacheTTL, svc.cacheTTL)

	svc = NewOnboardingService(mem, nil, nil, 45*time.Second)
	assert.Equal(t, 45*time.Second, svc.cacheTTL)
}

func TestLookupAccountByEmail(t *testing.T) {
	e := newEngines()
	ctx := context.Background()

	registered, err := e.onboarding.RegisterTrader(ctx, &RegisterTraderRequest{
		Email: "lookup@example.com",
		Name:  "Lookup Trader",
	})
	require.NoError(t, err)

	// Lookup normalizes the address the same way registration does.
	user, err := e.onboarding.LookupAccount(ctx, "  LOOKUP@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, status.RoleTrader, user.Role)
}

func TestLookupAccountUnknownEmail(t *testing.T) {
	e := newEngines()
	_, err := e.onboarding.LookupAccount(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestLookupAccountRequiresEmail(t *testing.T) {
	e := newEngines()
	_, err := e.onboarding.LookupAccount(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}
