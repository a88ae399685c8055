package reqstat

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the aggregator into Prometheus. Unlike the report counters
// these are never reset.
type Metrics struct {
	Registry prometheus.Gatherer

	// requests by outcome
	Requests *prometheus.CounterVec

	// status codes, 0 excluded
	StatusCodes *prometheus.CounterVec

	// response minus request time
	Latency prometheus.Histogram

	// values of the last report
	ErrorRate    prometheus.Gauge
	CacheHitRate prometheus.Gauge
	HostPing     *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg. A nil reg gets a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Registry: reg,

		Requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spider_requests_total",
			Help: "Total number of completed crawler requests by outcome.",
		}, []string{"outcome"}),

		StatusCodes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spider_http_status_codes_total",
			Help: "HTTP status codes returned to the crawler.",
		}, []string{"code"}),

		Latency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "spider_request_latency_milliseconds",
			Help:    "Histogram of crawler request latencies.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}),

		ErrorRate: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "spider_error_rate",
			Help: "Error rate of the last reporting cycle.",
		}),

		CacheHitRate: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "spider_cache_hit_rate",
			Help: "Cache hit rate of the last reporting cycle.",
		}),

		HostPing: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "spider_host_ping_milliseconds",
			Help: "TCP connect latency to the configured hosts in the last cycle.",
		}, []string{"host"}),
	}
}

func (m *Metrics) observe(outcome Outcome, latency int64, statusCode uint16) {
	m.Requests.WithLabelValues(outcome.String()).Inc()
	if statusCode != 0 {
		m.StatusCodes.WithLabelValues(strconv.Itoa(int(statusCode))).Inc()
	}
	m.Latency.Observe(float64(latency))
}

func (m *Metrics) snapshot(r *Report) {
	m.ErrorRate.Set(r.ErrorRate)
	m.CacheHitRate.Set(r.CacheHitRate)
	m.HostPing.Reset()
	for h, ms := range r.HostsPingDelay {
		m.HostPing.WithLabelValues(h).Set(ms)
	}
}
