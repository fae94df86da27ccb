// Package metrics Prometheus 指標：來源層級呼叫、回填結果與 HTTP 請求
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_aggregator"

// Collector 指標收集器；每個實例使用自己的 registry
type Collector struct {
	registry *prometheus.Registry

	tierCalls    *prometheus.CounterVec
	tierDuration *prometheus.HistogramVec
	tierResults  *prometheus.CounterVec
	persistence  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New 建立指標收集器
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		tierCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "calls_total",
				Help:      "Provider tier calls by outcome (ok, error, skipped)",
			},
			[]string{"tier", "outcome"},
		),
		tierDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "call_duration_seconds",
				Help:      "Provider tier call latency",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"tier"},
		),
		tierResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "results_total",
				Help:      "Recipes returned by each provider tier",
			},
			[]string{"tier"},
		),
		persistence: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persistence",
				Name:      "writes_total",
				Help:      "Cache-fill writes by outcome (created, exists, failed, dropped)",
			},
			[]string{"outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveTierCall 記錄一次來源層級呼叫
func (c *Collector) ObserveTierCall(tier, outcome string, duration time.Duration, results int) {
	c.tierCalls.WithLabelValues(tier, outcome).Inc()
	if outcome == "skipped" {
		return
	}
	c.tierDuration.WithLabelValues(tier).Observe(duration.Seconds())
	if results > 0 {
		c.tierResults.WithLabelValues(tier).Add(float64(results))
	}
}

// ObservePersistence 記錄一次回填結果
func (c *Collector) ObservePersistence(outcome string) {
	c.persistence.WithLabelValues(outcome).Inc()
}

// ObserveHTTP 記錄一次 HTTP 請求
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry 供測試讀取指標
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler /metrics 端點
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
