// Package metrics defines and registers the custom Prometheus metrics of the
// user management API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import
// (promauto). HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/99minutos/user-management/internal/core/domain"
)

const namespace = "usermgmt"

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersCreatedTotal counts users created.
// Label:
//   - user_type: "Manager" or "Client"
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of users created, by user type.",
	},
	[]string{"user_type"},
)

// UsersDeletedTotal counts users removed.
var UsersDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_deleted_total",
		Help:      "Total number of users deleted.",
	},
)

// ── Relationship metrics ──────────────────────────────────────────────────────

// RelationshipOperationsTotal counts assign and reassign calls.
// Labels:
//   - operation: "assign" or "reassign"
//   - result: "ok", or the error kind ("invariant_violated", "dependency_missing", ...)
var RelationshipOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relationship_operations_total",
		Help:      "Total number of manager assignment operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// RelationshipOperationDuration measures assign and reassign latency, lock included.
// Label:
//   - operation: "assign" or "reassign"
var RelationshipOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "relationship_operation_duration_seconds",
		Help:      "Duration of manager assignment operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ObserveRelationship records one assign or reassign call.
func ObserveRelationship(operation string, started time.Time, err error) {
	RelationshipOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	RelationshipOperationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// Result turns err into a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation_failed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvariantViolated):
		return "invariant_violated"
	case errors.Is(err, domain.ErrDependencyMissing):
		return "dependency_missing"
	case errors.Is(err, domain.ErrStoreConflict):
		return "store_conflict"
	}
	return "store_unavailable"
}
