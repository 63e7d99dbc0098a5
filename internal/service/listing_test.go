package service

import (
	"context"
	"testing"

	"cargomatch/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerStartsPendingAndInvisible(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "lister@example.com")

	c, err := e.listing.CreateContainer(ctx, &CreateContainerRequest{
		Origin:      "Mumbai",
		Destination: "Rotterdam",
		SizeFt:      20,
		PriceCents:  100000,
	}, lsp)
	require.NoError(t, err)
	assert.Equal(t, status.ApprovalPending, c.ApprovalStatus)
	assert.Equal(t, status.ContainerAvailable, c.Status)
	assert.False(t, c.Bookable())

	visible, err := e.listing.ListBookable(ctx)
	require.NoError(t, err)
	assert.Empty(t, visible)

	c, err = e.listing.ApproveContainer(ctx, c.ID, admin)
	require.NoError(t, err)
	assert.True(t, c.Bookable())

	visible, err = e.listing.ListBookable(ctx)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, c.ID, visible[0].ID)
}

func TestListingDecisionAdminOnly(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "l2@example.com")
	c, err := e.listing.CreateContainer(ctx, &CreateContainerRequest{
		Origin:      "Kochi",
		Destination: "Dubai",
		SizeFt:      40,
		PriceCents:  300000,
	}, lsp)
	require.NoError(t, err)

	_, err = e.listing.ApproveContainer(ctx, c.ID, lsp)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
}

func TestRejectThenApproveRoundTrip(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "l3@example.com")
	trader := seedTrader(t, e, "t3@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)

	// Flipping the approval decision leaves the booking untouched.
	_, err = e.listing.RejectContainer(ctx, c.ID, admin)
	require.NoError(t, err)
	got, err := e.booking.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, status.BookingPending, got.Status)

	restored, err := e.listing.ApproveContainer(ctx, c.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, status.ApprovalApproved, restored.ApprovalStatus)
	assert.Equal(t, status.ContainerBooked, restored.Status)
}

func TestSameListingDecisionTwiceRejected(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "l4@example.com")
	c := seedContainer(t, e, lsp)

	_, err := e.listing.ApproveContainer(ctx, c.ID, admin)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestOnlyLSPsListContainers(t *testing.T) {
	e := newEngines()
	trader := seedTrader(t, e, "t5@example.com")

	req := &CreateContainerRequest{
		Origin:      "X",
		Destination: "Y",
		SizeFt:      20,
		PriceCents:  1,
	}
	_, err := e.listing.CreateContainer(context.Background(), req, trader)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
}
