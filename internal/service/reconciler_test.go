package service

import (
	"context"
	"testing"

	"cargomatch/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileCleanStoreIsNoop(t *testing.T) {
	e := newEngines()
	seedLSP(t, e, "clean@example.com")

	report, err := e.reconciler.ReconcileAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 0, report.Repaired)
}

func TestReconcileRepairsDriftedPair(t *testing.T) {
	e := newEngines()
	ctx := context.Background()
	_, profile := seedLSP(t, e, "drifted@example.com")

	// The classic drift: activation applied, verification flag not.
	e.store.InjectDrift(status.AccountPair{
		UserID:             profile.UserID,
		Role:               status.RoleLSP,
		IsActive:           true,
		IsVerified:         false,
		VerificationStatus: status.VerificationApproved,
	})

	report, err := e.reconciler.ReconcileAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired)
	require.Len(t, report.Details, 1)

	// A second pass finds nothing.
	report, err = e.reconciler.ReconcileAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Repaired)
}
