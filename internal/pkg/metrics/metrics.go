// Package metrics defines and registers all custom Prometheus metrics for the
// order synchronization engine. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init and
// are exposed on /metrics by the API router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderahead"

// ── Realtime metrics ──────────────────────────────────────────────────────────

// ConnectionsActive tracks live realtime connections.
// Label:
//   - role: "customer", "staff" or "admin"
var ConnectionsActive = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections_active",
		Help:      "Current number of authenticated realtime connections.",
	},
	[]string{"role"},
)

// AuthRejectionsTotal counts connection attempts refused by the authenticator.
// Label:
//   - reason: "missing_token", "invalid_token", "unknown_subject", "verify_failed"
var AuthRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_auth_rejections_total",
		Help:      "Total number of rejected realtime connection attempts.",
	},
	[]string{"reason"},
)

// MessagesPublishedTotal counts notifications handed to the router, per channel
// kind (staff, broadcast, customer) and event.
var MessagesPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_messages_published_total",
		Help:      "Total number of notifications published, by event and channel kind.",
	},
	[]string{"event", "channel"},
)

// DeliveryErrorsTotal counts per-subscriber delivery failures.
// Label:
//   - reason: "closed", "slow_consumer", "encode", "other"
var DeliveryErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_delivery_errors_total",
		Help:      "Total number of notifications that could not be delivered to a subscriber.",
	},
	[]string{"reason"},
)

// ── Order metrics ─────────────────────────────────────────────────────────────

// OrdersCreatedTotal counts committed orders.
// Label:
//   - fulfillment: "immediate" or "scheduled"
var OrdersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of orders committed, by fulfillment mode.",
	},
	[]string{"fulfillment"},
)

// OrderTransitionsTotal counts applied transitions.
// Labels:
//   - field: "status" or "payment_status"
//   - to: the new value
var OrderTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Total number of order status and payment status transitions applied.",
	},
	[]string{"field", "to"},
)

// TransactionDuration measures order transactions from begin to commit or rollback.
// Labels:
//   - op: "create" or "update_status"
//   - result: "commit" or "rollback"
var TransactionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_transaction_duration_seconds",
		Help:      "Duration of order transactions.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op", "result"},
)
