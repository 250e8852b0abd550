package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pychain"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Signed transactions processed, by route and outcome code.",
		},
		[]string{"route", "code"},
	)
	transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transaction_duration_seconds",
			Help:      "Time spent authenticating and applying a transaction.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "queries_total",
			Help:      "Read-only queries answered, by route and outcome code.",
		},
		[]string{"route", "code"},
	)
	totalSupply = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_supply",
			Help:      "Sum of all balances in minor units.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, transactions, transactionDuration, queries, totalSupply)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordTransaction counts one processed envelope. An empty code is a
// success; an empty route means the envelope never got that far.
func RecordTransaction(route, code string, duration time.Duration) {
	RegisterMetrics()
	route, code = labelOrDefault(route, "none"), labelOrDefault(code, "ok")
	transactions.WithLabelValues(route, code).Inc()
	transactionDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func RecordQuery(route, code string, duration time.Duration) {
	RegisterMetrics()
	queries.WithLabelValues(labelOrDefault(route, "none"), labelOrDefault(code, "ok")).Inc()
}

func SetTotalSupply(v int64) {
	RegisterMetrics()
	totalSupply.Set(float64(v))
}

func labelOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
