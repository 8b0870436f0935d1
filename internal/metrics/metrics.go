// Package metrics содержит Prometheus-метрики сервиса на отдельном реестре.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/beatstore/internal/tier"
)

const namespace = "beatstore"

// Исходы запроса на загрузку.
const (
	OutcomeNew            = "new"
	OutcomeReDownload     = "re_download"
	OutcomeQuotaExceeded  = "quota_exceeded"
	OutcomeNoSubscription = "no_subscription"
)

// Metrics — набор метрик сервиса.
type Metrics struct {
	registry *prometheus.Registry

	Downloads           *prometheus.CounterVec
	AnalyticsFailures   prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New создаёт метрики на собственном реестре вместе с метриками процесса и Go.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests by license type and outcome",
		}, []string{"license_type", "outcome"}),
		AnalyticsFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_failures_total",
			Help:      "Beat download counter updates that failed",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.Downloads,
		m.AnalyticsFailures,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// DownloadServed считает запрос на загрузку с указанным исходом.
func (m *Metrics) DownloadServed(lt tier.LicenseType, outcome string) {
	m.Downloads.WithLabelValues(string(lt), outcome).Inc()
}

// AnalyticsFailed считает неудачное обновление счётчика загрузок.
func (m *Metrics) AnalyticsFailed() {
	m.AnalyticsFailures.Inc()
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware считает HTTP-запросы по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
