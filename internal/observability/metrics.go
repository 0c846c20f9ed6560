// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Token metrics
	TransfersProcessed *prometheus.CounterVec
	TransferVolume     prometheus.Counter
	FeesCollected      prometheus.Counter
	FeesBurned         prometheus.Counter
	FeesDistributed    prometheus.Counter

	// Treasury metrics
	WithdrawalsTotal *prometheus.CounterVec
	WithdrawalVolume *prometheus.CounterVec
	SwapSlippageBps  prometheus.Histogram

	// Scenario metrics
	ScenarioRunsTotal *prometheus.CounterVec
	ScenarioDuration  prometheus.Histogram
	OpsApplied        *prometheus.CounterVec

	// Storage metrics
	StoreQueryDuration *prometheus.HistogramVec
	StoreQueryErrors   *prometheus.CounterVec

	// Server metrics
	EventFeedClients prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "govtoken_lab"
	}

	return &Metrics{
		TransfersProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "transfers_processed_total",
			Help:      "Total number of transfers processed by class",
		}, []string{"class"}),
		TransferVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "transfer_volume_tokens_total",
			Help:      "Gross transfer volume in whole tokens",
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "fees_collected_tokens_total",
			Help:      "Total fees taken in whole tokens",
		}),
		FeesBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "fees_burned_tokens_total",
			Help:      "Fee share burned in whole tokens",
		}),
		FeesDistributed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "fees_distributed_tokens_total",
			Help:      "Fee share paid to recipients in whole tokens",
		}),

		WithdrawalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "withdrawals_total",
			Help:      "Total treasury withdrawals by kind and status",
		}, []string{"kind", "status"}),
		WithdrawalVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "withdrawal_volume_tokens_total",
			Help:      "Withdrawn volume in whole tokens by kind",
		}, []string{"kind"}),
		SwapSlippageBps: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "swap_slippage_tolerance_bps",
			Help:      "Slippage tolerance requested on swap withdrawals",
			Buckets:   []float64{10, 50, 100, 250, 500, 750, 1000},
		}),

		ScenarioRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "runs_total",
			Help:      "Total scenario runs by status",
		}, []string{"status"}),
		ScenarioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "duration_seconds",
			Help:      "Scenario execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenario",
			Name:      "ops_applied_total",
			Help:      "Total scenario ops applied by kind",
		}, []string{"kind"}),

		StoreQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Store query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		StoreQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_errors_total",
			Help:      "Total store query errors",
		}, []string{"store", "operation"}),

		EventFeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "event_feed_clients",
			Help:      "Connected websocket event feed clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransfer records one processed transfer.
func RecordTransfer(class string, volume, fee, burned float64) {
	DefaultMetrics.TransfersProcessed.WithLabelValues(class).Inc()
	DefaultMetrics.TransferVolume.Add(volume)
	DefaultMetrics.FeesCollected.Add(fee)
	DefaultMetrics.FeesBurned.Add(burned)
	DefaultMetrics.FeesDistributed.Add(fee - burned)
}

// RecordWithdrawal records one treasury withdrawal attempt.
func RecordWithdrawal(kind, status string, volume float64) {
	DefaultMetrics.WithdrawalsTotal.WithLabelValues(kind, status).Inc()
	if status == "success" {
		DefaultMetrics.WithdrawalVolume.WithLabelValues(kind).Add(volume)
	}
}

// RecordSwapSlippage records the slippage tolerance of a swap withdrawal.
func RecordSwapSlippage(bps uint64) {
	DefaultMetrics.SwapSlippageBps.Observe(float64(bps))
}

// RecordScenarioRun records a scenario run.
func RecordScenarioRun(status string, durationSeconds float64) {
	DefaultMetrics.ScenarioRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScenarioDuration.Observe(durationSeconds)
}

// RecordOp records one applied scenario op.
func RecordOp(kind string) {
	DefaultMetrics.OpsApplied.WithLabelValues(kind).Inc()
}

// RecordStoreQuery records store query metrics.
func RecordStoreQuery(store, operation string, seconds float64, err error) {
	DefaultMetrics.StoreQueryDuration.WithLabelValues(store, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreQueryErrors.WithLabelValues(store, operation).Inc()
	}
}
