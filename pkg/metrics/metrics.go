package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesProcessed counts ingested samples by outcome (ok|invalid|rate_limited).
	SamplesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_samples_total",
			Help: "Total number of samples received",
		},
		[]string{"result"},
	)

	// RuleEvaluations counts per-rule outcomes (fired|suppressed|error).
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_rule_evaluations_total",
			Help: "Rule evaluations that breached, by outcome",
		},
		[]string{"rule_id", "result"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_notifications_created_total",
			Help: "Notifications inserted into the inbox",
		},
		[]string{"category", "priority"},
	)

	// Deliveries counts delivery receipts by channel type and status (ok|failed|skipped).
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_engine_deliveries_total",
			Help: "Delivery attempts per channel",
		},
		[]string{"channel_type", "status"},
	)

	DeliveryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_engine_delivery_latency_seconds",
			Help:    "Time spent in a channel sender",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel_type"},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_engine_dispatch_queue_depth",
			Help: "Delivery jobs waiting for a worker",
		},
	)

	DigestPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_engine_digest_pending",
			Help: "Deliveries held for the next digest flush",
		},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_engine_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
