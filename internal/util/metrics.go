package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LSPDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lsp_decisions_total",
		Help: "Total number of LSP onboarding decisions",
	}, []string{"decision"})

	ContainerDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "container_decisions_total",
		Help: "Total number of container listing decisions",
	}, []string{"decision"})

	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Total number of booking attempts lost to a concurrent writer",
	})

	BookingsApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_approved_total",
		Help: "Total number of bookings approved",
	})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of bookings cancelled",
	})

	ShipmentsAdvancedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_advanced_total",
		Help: "Total number of shipment stage advances",
	}, []string{"to"})

	ShipmentReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_reports_total",
		Help: "Total number of delay and incident reports",
	}, []string{"kind"})

	ComplaintsFiledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "complaints_filed_total",
		Help: "Total number of complaints filed",
	})

	ComplaintsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "complaints_resolved_total",
		Help: "Total number of complaints resolved",
	})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitions_rejected_total",
		Help: "Total number of rejected transition attempts",
	}, []string{"entity", "kind"})

	AccountPairsRepairedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "account_pairs_repaired_total",
		Help: "Total number of drifted account pairs repaired by reconciliation",
	})

	BookingHoldLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_hold_latency_seconds",
		Help:    "Latency of acquiring the container hold",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
