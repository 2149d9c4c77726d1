package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Total number of stock ledger movements",
	}, []string{"kind", "reason"})

	StockOperationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_operations_failed_total",
		Help: "Total number of failed inventory operations",
	}, []string{"reason"})

	PurchaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_order_transitions_total",
		Help: "Total number of purchase order state transitions",
	}, []string{"to_status"})

	SalesTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_order_transitions_total",
		Help: "Total number of sales order state transitions",
	}, []string{"to_status"})

	ReservationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transitions_total",
		Help: "Total number of reservation state transitions",
	}, []string{"to_status"})

	InvoicesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoices_issued_total",
		Help: "Total number of invoices issued",
	})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of payments recorded",
	}, []string{"method"})

	TxRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tx_retries_total",
		Help: "Total number of transaction retries after deadlock or serialization failure",
	})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Total number of requests answered from the idempotency cache",
	})

	StockCheckLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_check_latency_seconds",
		Help:    "Latency of availability checks",
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
