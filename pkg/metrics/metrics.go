package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodesGenerated counts generated codes by kind (primary|invitation|link).
	CodesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhouse_codes_generated_total",
			Help: "Total number of referral codes generated",
		},
		[]string{"kind"},
	)

	// Redemptions counts redemption attempts by path and result
	// (path: invitation_code|referral_link; result: success|failure).
	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhouse_redemptions_total",
			Help: "Total number of code redemption attempts",
		},
		[]string{"path", "result"},
	)

	// ApprovalDecisions counts sponsor approval workflow actions (approve|reject).
	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhouse_approval_decisions_total",
			Help: "Total number of sponsor approval decisions",
		},
		[]string{"action"},
	)

	// LinkClicks counts tracked referral link clicks.
	LinkClicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhouse_link_clicks_total",
			Help: "Total number of tracked referral link clicks",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhouse_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
