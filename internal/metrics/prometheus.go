// Package metrics contains middlewares and counters for metrics gathering.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP Requests total counter
var totalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP Requests.",
	},
	[]string{"method", "route", "status"},
)

// HTTP Requests duration
var duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_duration_seconds",
		Help: "HTTP Requests Duration",
	},
	[]string{"method", "route"},
)

// AppointmentConflicts counts bookings rejected because the slot overlapped another appointment.
var AppointmentConflicts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "appointment_conflicts_total",
		Help: "Appointment bookings rejected due to a time conflict.",
	},
)

// InvoicePayments counts payments applied to invoices by resulting invoice status.
var InvoicePayments = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "invoice_payments_total",
		Help: "Payments applied to invoices.",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(totalRequests, duration, AppointmentConflicts, InvoicePayments)
}

// PrometheusMiddleware instruments the given request and register metrics. Requests are
// labeled by route pattern so path parameters do not explode the label cardinality.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			duration.WithLabelValues(r.Method, routePattern(r)).Observe(v)
		}))
		next.ServeHTTP(ww, r)
		timer.ObserveDuration()
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		totalRequests.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).Inc()
	})
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
