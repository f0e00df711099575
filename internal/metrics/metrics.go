package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_sales_committed_total",
			Help: "Sales committed, by source",
		},
		[]string{"source"},
	)

	SalesCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_sales_cancelled_total",
			Help: "Sales cancelled through the cancellation manager",
		},
	)

	CheckoutFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_checkout_failures_total",
			Help: "Aborted checkouts, by typed reason",
		},
		[]string{"reason"},
	)

	EligibilityDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pos_eligibility_duration_seconds",
			Help:    "Promotion eligibility evaluation latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	EligibilityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_eligibility_cache_lookups_total",
			Help: "Eligibility cache lookups, by outcome",
		},
		[]string{"outcome"},
	)
)
