package service

import (
	"context"
	"testing"

	"cargomatch/internal/models"
	"cargomatch/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedComplaint(t *testing.T, e *engines) (Actor, Actor, *models.Complaint) {
	t.Helper()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "cmp-lsp@example.com")
	trader := seedTrader(t, e, "cmp-trader@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)

	cmp, err := e.complaint.FileComplaint(ctx, &FileComplaintRequest{
		BookingID: b.ID,
		Subject:   "container arrived damaged",
		Priority:  status.PriorityHigh,
	}, trader)
	require.NoError(t, err)
	return lsp, trader, cmp
}

func TestFileComplaintOpensWithPriority(t *testing.T) {
	e := newEngines()
	_, trader, cmp := seedComplaint(t, e)

	assert.Equal(t, status.ComplaintOpen, cmp.Status)
	assert.Equal(t, status.PriorityHigh, cmp.Priority)
	assert.Equal(t, trader.ID, cmp.ComplainantID)
	assert.Nil(t, cmp.Resolution)
	assert.NotEmpty(t, cmp.Reference)
}

func TestResolveRequiresText(t *testing.T) {
	e := newEngines()
	lsp, _, cmp := seedComplaint(t, e)

	_, err := e.complaint.ResolveComplaint(context.Background(), cmp.ID, "   ", lsp)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestResolveStampsResolution(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _, cmp := seedComplaint(t, e)

	cmp, err := e.complaint.StartComplaint(ctx, cmp.ID, lsp)
	require.NoError(t, err)
	assert.Equal(t, status.ComplaintInProgress, cmp.Status)

	cmp, err = e.complaint.ResolveComplaint(ctx, cmp.ID, "refund issued to trader", lsp)
	require.NoError(t, err)
	assert.Equal(t, status.ComplaintResolved, cmp.Status)
	require.NotNil(t, cmp.Resolution)
	assert.Equal(t, "refund issued to trader", *cmp.Resolution)
	require.NotNil(t, cmp.ResolvedAt)
}

func TestReResolveUpdatesTextKeepsTimestamp(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _, cmp := seedComplaint(t, e)

	cmp, err := e.complaint.ResolveComplaint(ctx, cmp.ID, "first resolution", lsp)
	require.NoError(t, err)
	firstStamp := *cmp.ResolvedAt

	cmp, err = e.complaint.ResolveComplaint(ctx, cmp.ID, "corrected resolution", admin)
	require.NoError(t, err)
	assert.Equal(t, status.ComplaintResolved, cmp.Status)
	assert.Equal(t, "corrected resolution", *cmp.Resolution)
	assert.Equal(t, firstStamp, *cmp.ResolvedAt)
}

func TestNoDirectOpenToClose(t *testing.T) {
	e := newEngines()
	lsp, _, cmp := seedComplaint(t, e)

	_, err := e.complaint.CloseComplaint(context.Background(), cmp.ID, lsp)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestResolvedNeverReopensOnlyCloses(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _, cmp := seedComplaint(t, e)

	cmp, err := e.complaint.ResolveComplaint(ctx, cmp.ID, "settled", lsp)
	require.NoError(t, err)

	cmp, err = e.complaint.CloseComplaint(ctx, cmp.ID, lsp)
	require.NoError(t, err)
	assert.Equal(t, status.ComplaintClosed, cmp.Status)
	require.NotNil(t, cmp.Resolution)

	// Closed is terminal, even for a resolution correction.
	_, err = e.complaint.ResolveComplaint(ctx, cmp.ID, "too late", admin)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestComplaintRoleChecks(t *testing.T) {
	e := newEngines()
	_, trader, cmp := seedComplaint(t, e)

	_, err := e.complaint.ResolveComplaint(context.Background(), cmp.ID, "not yours to resolve", trader)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
}

// Full scenario from booking through delivery and complaint
// resolution.
func TestMarketplaceScenario(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	lsp, _ := seedLSP(t, e, "scenario-lsp@example.com")
	trader := seedTrader(t, e, "scenario-trader@example.com")
	c := seedContainer(t, e, lsp)

	b, err := e.booking.CreateBooking(ctx, &CreateBookingRequest{ContainerID: c.ID}, trader)
	require.NoError(t, err)
	assert.Equal(t, status.BookingPending, b.Status)

	gotC, err := e.listing.GetContainer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ContainerBooked, gotC.Status)

	b, sh, err := e.booking.ApproveBooking(ctx, b.ID, lsp)
	require.NoError(t, err)
	assert.Equal(t, status.BookingApproved, b.Status)
	assert.Equal(t, status.ShipmentScheduled, sh.Status)

	sh, err = e.shipment.AdvanceShipment(ctx, sh.ID, status.ShipmentInTransit, lsp)
	require.NoError(t, err)
	sh, err = e.shipment.AdvanceShipment(ctx, sh.ID, status.ShipmentDelivered, lsp)
	require.NoError(t, err)
	assert.Equal(t, status.ShipmentDelivered, sh.Status)

	cmp, err := e.complaint.FileComplaint(ctx, &FileComplaintRequest{
		BookingID: b.ID,
		Subject:   "seal broken on arrival",
	}, trader)
	require.NoError(t, err)
	assert.Equal(t, status.PriorityMedium, cmp.Priority)

	cmp, err = e.complaint.ResolveComplaint(ctx, cmp.ID, "partial refund agreed", lsp)
	require.NoError(t, err)
	assert.Equal(t, status.ComplaintResolved, cmp.Status)
}
