// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service collectors behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	LedgerEntries  *prometheus.CounterVec
	SaleCommits    prometheus.Counter
	SaleConflicts  prometheus.Counter
	PurchasePosts  prometheus.Counter
	PurchaseVoids  prometheus.Counter
	RebuildRuns    prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unistock_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unistock_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unistock_ledger_entries_total",
			Help: "Ledger entries appended, by kind.",
		}, []string{"kind"}),
		SaleCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unistock_sale_commits_total",
			Help: "Sale orders successfully paid and debited.",
		}),
		SaleConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unistock_sale_commit_conflicts_total",
			Help: "Payment confirmations rejected for insufficient stock.",
		}),
		PurchasePosts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unistock_purchase_posts_total",
			Help: "Purchase orders posted.",
		}),
		PurchaseVoids: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unistock_purchase_voids_total",
			Help: "Purchase orders voided.",
		}),
		RebuildRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unistock_balance_rebuilds_total",
			Help: "Balance projection rebuilds executed.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.LedgerEntries,
		m.SaleCommits,
		m.SaleConflicts,
		m.PurchasePosts,
		m.PurchaseVoids,
		m.RebuildRuns,
	)
	return m
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
