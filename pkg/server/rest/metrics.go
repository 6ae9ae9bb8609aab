package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InflightGauge   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routex",
			Name:      "http_requests_total",
			Help:      "total http requests by path and status",
		}, []string{"path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "routex",
			Name:      "http_request_duration_seconds",
			Help:      "request latency by path",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		InflightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "routex",
			Name:      "http_requests_inflight",
			Help:      "requests currently being served",
		}),
	}
	reg.MustRegister(m.RequestCount, m.RequestDuration, m.InflightGauge)
	return m
}

// PromHTTPMiddleware records count, latency, and in-flight per request.
func PromHTTPMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.InflightGauge.Inc()
			defer m.InflightGauge.Dec()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			m.RequestCount.WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}
