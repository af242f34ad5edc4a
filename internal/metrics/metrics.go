// Package metrics holds the agent's Prometheus instrumentation. The bridge
// server exposes everything registered here on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glucopilot_agent",
			Name:      "sync_attempts_total",
			Help:      "Snapshot sync attempts against the backend.",
		},
	)

	SyncFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glucopilot_agent",
			Name:      "sync_failures_total",
			Help:      "Snapshot sync attempts that ended in a typed error.",
		},
	)

	ProviderQueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glucopilot_agent",
			Name:      "provider_query_failures_total",
			Help:      "Health provider queries that failed and were zero-defaulted.",
		},
		[]string{"sample_type"},
	)

	InsightFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glucopilot_agent",
			Name:      "insight_fallbacks_total",
			Help:      "Times the fixed fallback insights replaced an empty server list.",
		},
	)

	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "glucopilot_agent",
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last successful snapshot sync.",
		},
	)

	BridgeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "glucopilot_agent",
			Name:      "bridge_websocket_clients",
			Help:      "Websocket clients currently attached to the bridge feed.",
		},
	)
)
