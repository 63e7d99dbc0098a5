package service

import (
	"context"
	"sync"
	"testing"

	"cargomatch/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingFlipsContainer(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk1@example.com")
	trader := seedTrader(t, e, "bt1@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)
	assert.Equal(t, status.BookingPending, b.Status)
	assert.Equal(t, lsp.ID, b.LSPID)

	got, err := e.listing.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ContainerBooked, got.Status)
}

func TestCreateBookingRequiresApprovedContainer(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk2@example.com")
	trader := seedTrader(t, e, "bt2@example.com")

	c, err := e.listing.CreateContainer(ctx, &CreateContainerRequest{
		Origin:      "Haldia",
		Destination: "Colombo",
		SizeFt:      20,
		PriceCents:  90000,
	}, lsp)
	require.NoError(t, err)

	_, err = e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk3@example.com")
	c := seedContainer(t, e, lsp)

	traders := []Actor{
		seedTrader(t, e, "race1@example.com"),
		seedTrader(t, e, "race2@example.com"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(traders))
	for i, tr := range traders {
		wg.Add(1)
		go func(i int, tr Actor) {
			defer wg.Done()
			_, errs[i] = e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, tr)
		}(i, tr)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.True(t, IsKind(err, KindConflict), "loser must get a conflict, got %v", err)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	got, err := e.listing.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ContainerBooked, got.Status)
}

func TestApproveBookingCreatesShipment(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk4@example.com")
	trader := seedTrader(t, e, "bt4@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)

	b, sh, err := e.booking.ApproveBooking(ctx, b.ID, lsp)
	require.NoError(t, err)
	assert.Equal(t, status.BookingApproved, b.Status)
	require.NotNil(t, sh)
	assert.Equal(t, status.ShipmentScheduled, sh.Status)
	assert.Equal(t, b.ID, sh.BookingID)
}

func TestApproveBookingWrongLSP(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk5@example.com")
	other, _ := seedLSP(t, e, "bk5-other@example.com")
	trader := seedTrader(t, e, "bt5@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)

	_, _, err = e.booking.ApproveBooking(ctx, b.ID, other)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
}

func TestCancelPendingBookingReleasesContainer(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk6@example.com")
	trader := seedTrader(t, e, "bt6@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)

	b, err = e.booking.CancelBooking(ctx, b.ID, trader)
	require.NoError(t, err)
	assert.Equal(t, status.BookingCancelled, b.Status)

	got, err := e.listing.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ContainerAvailable, got.Status)
}

func TestCancelApprovedBookingBlockedByShipment(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk7@example.com")
	trader := seedTrader(t, e, "bt7@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)
	b, _, err = e.booking.ApproveBooking(ctx, b.ID, lsp)
	require.NoError(t, err)

	// Approval created the shipment, so cancellation is off the table.
	_, err = e.booking.CancelBooking(ctx, b.ID, lsp)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestCancelledBookingIsTerminal(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "bk8@example.com")
	trader := seedTrader(t, e, "bt8@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)
	_, err = e.booking.CancelBooking(ctx, b.ID, trader)
	require.NoError(t, err)

	_, _, err = e.booking.ApproveBooking(ctx, b.ID, lsp)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))

	_, err = e.booking.CancelBooking(ctx, b.ID, trader)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}
