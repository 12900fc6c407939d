package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesTotal counts sale submissions by result (ok, rejected, failed).
	SalesTotal *prometheus.CounterVec
	// SaleAmount observes grand totals of successful sales.
	SaleAmount prometheus.Histogram
	// VoucherLookups counts voucher applications by result (applied, invalid, error).
	VoucherLookups *prometheus.CounterVec
	// CatalogSearches counts product searches by result (hit, miss, error, stale).
	CatalogSearches *prometheus.CounterVec
	// InvoicePrints counts print attempts per printer kind and result.
	InvoicePrints *prometheus.CounterVec
	// StoreAPIRequests counts outbound store API calls by method, path and outcome.
	StoreAPIRequests *prometheus.CounterVec
	// StoreAPILatency records outbound store API latency in milliseconds.
	StoreAPILatency *prometheus.HistogramVec
	// ActiveTerminals tracks billing terminals currently held in memory.
	ActiveTerminals prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers POS Prometheus collectors.
// Safe to call more than once; only the first call registers.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Count of sale submissions by outcome.",
		}, []string{"result"})
		SaleAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_amount",
			Help:      "Grand total of completed sales in store currency.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		})
		VoucherLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_lookups_total",
			Help:      "Count of voucher applications by outcome.",
		}, []string{"result"})
		CatalogSearches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_searches_total",
			Help:      "Count of product searches by outcome.",
		}, []string{"result"})
		InvoicePrints = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_prints_total",
			Help:      "Count of invoice print attempts.",
		}, []string{"printer", "result"})
		StoreAPIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_api_requests_total",
			Help:      "Count of store API calls by outcome.",
		}, []string{"method", "path", "result"})
		StoreAPILatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_api_duration_ms",
			Help:      "Store API call latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "path"})
		ActiveTerminals = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_terminals",
			Help:      "Billing terminals currently held in memory.",
		})

		mustRegisterCollector(reg, SalesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesTotal = v
			}
		})
		mustRegisterCollector(reg, SaleAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleAmount = v
			}
		})
		mustRegisterCollector(reg, VoucherLookups, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherLookups = v
			}
		})
		mustRegisterCollector(reg, CatalogSearches, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogSearches = v
			}
		})
		mustRegisterCollector(reg, InvoicePrints, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InvoicePrints = v
			}
		})
		mustRegisterCollector(reg, StoreAPIRequests, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StoreAPIRequests = v
			}
		})
		mustRegisterCollector(reg, StoreAPILatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				StoreAPILatency = v
			}
		})
		mustRegisterCollector(reg, ActiveTerminals, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ActiveTerminals = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}

// Inc bumps a labelled counter when domain metrics are registered.
func Inc(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}
