package service

import (
	"context"

	"cargomatch/internal/broker"
	"cargomatch/internal/models"
	"cargomatch/internal/status"
	"cargomatch/internal/store"
	"cargomatch/internal/util"

	"go.uber.org/zap"
)

// Reconciler repairs coupled-field drift left behind by code paths
// that predate the engine. It runs once at startup and on demand from
// an admin route; with all writes going through the engines it should
// report zero repairs.
type Reconciler struct {
	store  store.Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewReconciler creates the reconciliation operation.
func NewReconciler(st store.Store, events *broker.EventPublisher) *Reconciler {
	return &Reconciler{
		store:  st,
		events: events,
		logger: util.GetLogger(),
	}
}

// ReconcileReport summarizes one pass.
type ReconcileReport struct {
	Scanned  int      `json:"scanned"`
	Repaired int      `json:"repaired"`
	Details  []string `json:"details,omitempty"`
}

// ReconcileAccounts scans every LSP account pair and rewrites drifted
// rows from the profile's verification status, which is authoritative.
func (r *Reconciler) ReconcileAccounts(ctx context.Context) (*ReconcileReport, error) {
	const op = "Reconciler.ReconcileAccounts"
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()

	pairs, err := r.store.ListAccountPairs(ctx)
	if err != nil {
		return nil, transient(op, err)
	}

	report := &ReconcileReport{Scanned: len(pairs)}
	for _, pair := range pairs {
		driftErr := status.CheckAccountPair(pair)
		if driftErr == nil {
			continue
		}

		r.logger.Warn("drifted account pair found",
			zap.Int64("user_id", pair.UserID),
			zap.String("drift", driftErr.Error()))

		if err := r.store.RepairAccountPair(ctx, pair.UserID); err != nil {
			return nil, transient(op, err)
		}
		util.AccountPairsRepairedTotal.Inc()
		report.Repaired++
		report.Details = append(report.Details, driftErr.Error())
	}

	r.logger.Info("account reconciliation finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("repaired", report.Repaired))

	if r.events != nil && report.Repaired > 0 {
		event := &models.ReconcileEvent{
			BaseEvent: broker.NewBase(models.EventTypeAccountsRepaired),
			Scanned:   report.Scanned,
			Repaired:  report.Repaired,
		}
		if err := r.events.PublishReconcile(ctx, event); err != nil {
			r.logger.Error("failed to publish reconcile event", zap.Error(err))
		}
	}
	return report, nil
}
