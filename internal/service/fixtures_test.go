package service

import (
	"context"
	"testing"

	"cargomatch/internal/models"
	"cargomatch/internal/status"
	"cargomatch/internal/store"

	"github.com/stretchr/testify/require"
)

var (
	admin = Actor{ID: 900, Role: status.RoleAdmin}
)

type engines struct {
	store      *store.Memory
	onboarding *OnboardingService
	listing    *ListingService
	booking    *BookingService
	shipment   *ShipmentService
	complaint  *ComplaintService
	reconciler *Reconciler
}

func newEngines() *engines {
	mem := store.NewMemory()
	return &engines{
		store:      mem,
		onboarding: NewOnboardingService(mem, nil, nil, 0),
		listing:    NewListingService(mem, nil, nil),
		booking:    NewBookingService(mem, nil, nil),
		shipment:   NewShipmentService(mem, nil),
		complaint:  NewComplaintService(mem, nil),
		reconciler: NewReconciler(mem, nil),
	}
}

// seedLSP registers and approves an LSP, returning its actor identity
// and profile.
func seedLSP(t *testing.T, e *engines, email string) (Actor, *models.LSPProfile) {
	t.Helper()
	ctx := context.Background()

	profile, user, err := e.onboarding.RegisterLSP(ctx, &RegisterLSPRequest{
		Email:       email,
		Name:        "Test LSP",
		CompanyName: "Test Logistics Ltd",
		LicenseNo:   "LIC-100",
	})
	require.NoError(t, err)

	profile, err = e.onboarding.ApproveLSP(ctx, profile.ID, admin)
	require.NoError(t, err)

	return Actor{ID: user.ID, Role: status.RoleLSP}, profile
}

// seedTrader registers a trader and returns its actor identity.
func seedTrader(t *testing.T, e *engines, email string) Actor {
	t.Helper()
	user, err := e.onboarding.RegisterTrader(context.Background(), &RegisterTraderRequest{
		Email: email,
		Name:  "Test Trader",
	})
	require.NoError(t, err)
	return Actor{ID: user.ID, Role: status.RoleTrader}
}

// seedContainer lists and approves a container for the given LSP.
func seedContainer(t *testing.T, e *engines, lsp Actor) *models.Container {
	t.Helper()
	ctx := context.Background()

	c, err := e.listing.CreateContainer(ctx, &CreateContainerRequest{
		Origin:      "Chennai",
		Destination: "Singapore",
		SizeFt:      40,
		PriceCents:  250000,
	}, lsp)
	require.NoError(t, err)

	c, err = e.listing.ApproveContainer(ctx, c.ID, admin)
	require.NoError(t, err)
	return c
}
