package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokoledger_sales_created_total",
		Help: "Sales recorded in the ledger.",
	})

	SaleCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokoledger_sale_cents_total",
		Help: "Total cents recorded across sales.",
	})

	SagaFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokoledger_saga_failures_total",
		Help: "Sale saga steps that failed and were left for resume.",
	}, []string{"step"})

	OfflinePending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokoledger_offline_pending_entries",
		Help: "Entries waiting in the offline queue.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokoledger_http_requests_total",
		Help: "HTTP requests served, by method, path, and status.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokoledger_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
