package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	WorkorderOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "workorder_operations_total",
		Help:      "Work order engine operations by kind and outcome.",
	}, []string{"op", "outcome"})

	StockAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "stock_adjustments_total",
		Help:      "Committed and attempted stock writes by direction.",
	}, []string{"direction"})

	DeliveriesCascaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "deliveries_cascaded_total",
		Help:      "Deliveries created automatically by completed work orders.",
	})

	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "auth_events_total",
		Help:      "Login, logout and failed login events.",
	}, []string{"event"})
)

func ObserveOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	WorkorderOps.WithLabelValues(op, outcome).Inc()
}
