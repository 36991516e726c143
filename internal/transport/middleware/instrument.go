package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrument counts and times requests per handler. handler is the fixed
// label value, so paths never leak into label cardinality.
func Instrument(reg prometheus.Registerer, handler string) (Middleware, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "modix",
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests served by the ops server.",
		ConstLabels: prometheus.Labels{"handler": handler},
	}, []string{"code", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   "modix",
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "HTTP request latency of the ops server.",
		ConstLabels: prometheus.Labels{"handler": handler},
		Buckets:     prometheus.DefBuckets,
	}, []string{"code", "method"})

	for _, c := range []prometheus.Collector{requests, duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerCounter(requests,
			promhttp.InstrumentHandlerDuration(duration, next))
	}, nil
}
