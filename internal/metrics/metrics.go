// Package metrics exposes Prometheus instrumentation for the ledger engine
// and its HTTP surface on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia/wallet-ledger/internal/logger"
)

type Collector struct {
	registry          *prometheus.Registry
	transactionsTotal *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	lockWaitSeconds   prometheus.Histogram
	reconciledPending prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		transactionsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Ledger transactions recorded, by kind and terminal status",
		}, []string{"kind", "status"}),
		operationDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_operation_duration_seconds",
			Help:    "Time taken by ledger engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		lockWaitSeconds: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_lock_wait_seconds",
			Help:    "Time spent waiting for per-account locks",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		}),
		reconciledPending: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "wallet_reconciled_pending_total",
			Help: "Stale pending transactions closed by the recovery sweep",
		}),
		httpRequestsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_http_requests_total",
			Help: "HTTP requests served, by route and status code",
		}, []string{"method", "route", "status"}),
	}
}

// RecordTransaction counts a transaction reaching a terminal status.
func (c *Collector) RecordTransaction(kind, status string) {
	c.transactionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordOperation observes the duration of one engine operation.
func (c *Collector) RecordOperation(operation string, duration time.Duration) {
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLockWait observes how long an operation waited for its account lock.
func (c *Collector) RecordLockWait(duration time.Duration) {
	c.lockWaitSeconds.Observe(duration.Seconds())
}

// RecordReconciledPending counts transactions closed by the recovery sweep.
func (c *Collector) RecordReconciledPending(count int) {
	c.reconciledPending.Add(float64(count))
}

// RecordHTTPRequest counts one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, route string, status int) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the private registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer runs the metrics endpoint on its own listener so scrapes never
// contend with ledger traffic. The returned server is shut down by the caller.
func (c *Collector) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("metrics server starting", logger.Fields{"addr": addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", err, logger.Fields{"addr": addr})
		}
	}()

	return server
}
