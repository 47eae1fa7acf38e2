package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Database connection metrics
	// ============================================
	DBConnectionPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_db_connection_pool_size",
		Help: "Database connection pool size",
	})

	DBConnectionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_db_connection_active",
		Help: "Number of active database connections",
	})

	DBConnectionIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_db_connection_idle",
		Help: "Number of idle database connections",
	})

	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	// ============================================
	// NATS connection and publish metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_nats_messages_published_total",
			Help: "Total number of NATS events published",
		},
		[]string{"subject"},
	)

	NATSPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_nats_publish_errors_total",
			Help: "Total number of NATS publish failures",
		},
		[]string{"subject"},
	)

	// ============================================
	// Ledger operation metrics
	// ============================================
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_ledger_operations_total",
			Help: "Total number of ledger operations by type and result",
		},
		[]string{"operation", "result"},
	)

	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ============================================
	// Pool state metrics
	// ============================================
	PoolTotalAmount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_pool_total_amount",
			Help: "Total pooled amount per asset",
		},
		[]string{"asset"},
	)

	PoolTotalShares = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_pool_total_lp_shares",
			Help: "Total LP shares outstanding per asset",
		},
		[]string{"asset"},
	)

	PoolStrategyAmount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_pool_strategy_amount",
			Help: "Amount deployed to strategies per asset",
		},
		[]string{"asset"},
	)

	PendingWithdrawRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_pending_withdraw_requests",
			Help: "Number of pending withdrawal requests per asset",
		},
		[]string{"asset"},
	)
)

// TimeOperation starts a timer feeding the operation duration histogram;
// callers defer ObserveDuration.
func TimeOperation(operation string) *prometheus.Timer {
	return prometheus.NewTimer(LedgerOperationDuration.WithLabelValues(operation))
}

// RecordOperation increments the ledger operation counter with a
// success/error result derived from err.
func RecordOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	LedgerOperations.WithLabelValues(operation, result).Inc()
}

// SetPoolGauges refreshes the per-asset pool gauges after a state change.
func SetPoolGauges(asset string, totalAmount, totalShares, strategyAmount uint64) {
	PoolTotalAmount.WithLabelValues(asset).Set(float64(totalAmount))
	PoolTotalShares.WithLabelValues(asset).Set(float64(totalShares))
	PoolStrategyAmount.WithLabelValues(asset).Set(float64(strategyAmount))
}
