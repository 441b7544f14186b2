package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bazaar"

type Metrics struct {
	registry *prometheus.Registry

	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec
	Checkouts        *prometheus.CounterVec
	CheckoutSeconds  *prometheus.HistogramVec
	DecrementFailure prometheus.Counter
	Reconciliations  *prometheus.CounterVec
}

// New registers collectors on a private registry so tests can build as
// many instances as they like.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "outcomes_total",
			Help:      "Checkout attempts by terminal state and payment method.",
		}, []string{"state", "payment_method"}),
		CheckoutSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Time from validation to terminal state.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
		DecrementFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "decrement_failures_total",
			Help:      "Stock decrements that failed after the order was persisted.",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "tasks_total",
			Help:      "Reconciliation task outcomes.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.LatencyMS, m.Checkouts, m.CheckoutSeconds, m.DecrementFailure, m.Reconciliations,
	)

	return m
}

func (m *Metrics) ObserveCheckout(state, paymentMethod string, elapsed time.Duration) {
	m.Checkouts.WithLabelValues(state, paymentMethod).Inc()
	m.CheckoutSeconds.WithLabelValues(state).Observe(elapsed.Seconds())
}

func (m *Metrics) IncDecrementFailure() {
	m.DecrementFailure.Inc()
}

func (m *Metrics) IncReconciliation(result string) {
	m.Reconciliations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
