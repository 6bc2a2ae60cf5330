package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotations_created_total",
		Help: "Total number of quotations created",
	})

	QuotationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotations_expired_total",
		Help: "Total number of quotations expired by the background sweep",
	})

	OrdersConvertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_converted_total",
		Help: "Total number of quotations converted into orders",
	})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	}, []string{"reason"})

	StockLocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_locks_total",
		Help: "Total number of successful order stock locks",
	})

	StockLockFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_lock_failures_total",
		Help: "Total number of failed order stock locks",
	}, []string{"reason"})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total number of confirmed payments",
	})

	PriceResolveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_resolve_latency_seconds",
		Help:    "Latency of price resolution",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
