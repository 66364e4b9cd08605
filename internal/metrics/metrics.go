// Package metrics exposes request and session metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/logix-service/internal/service"
)

const namespace = "logix"

// Collector records service metrics. It satisfies service.Observer.
type Collector struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	connected prometheus.Gauge
	connSize  prometheus.Gauge
}

// New registers the service metrics on a fresh registry. pending reports
// the number of requests waiting for or holding the driver; nil disables
// the in-flight gauge.
func New(pending func() int) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by command and reply status.",
		}, []string{"command", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from receipt to reply, by command.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"command"}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_connected",
			Help:      "1 while a PLC session is open.",
		}),
		connSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_connection_size",
			Help:      "CIP connection size of the current session.",
		}),
	}

	if pending != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Requests queued for or holding the driver.",
		}, func() float64 { return float64(pending()) })
	}

	return c
}

// RequestHandled counts one reply. Anything that is not a known command
// is labelled "unknown" to keep label cardinality bounded.
func (c *Collector) RequestHandled(command string, status service.Status, elapsed time.Duration) {
	label := "unknown"
	if cmd, ok := service.ParseCommand(command); ok {
		label = cmd.String()
	}
	c.requests.WithLabelValues(label, status.Code()).Inc()
	c.durations.WithLabelValues(label).Observe(elapsed.Seconds())
}

// SessionChanged updates the session gauges.
func (c *Collector) SessionChanged(info service.SessionInfo) {
	if info.State == service.StateConnected {
		c.connected.Set(1)
		c.connSize.Set(float64(info.ConnectionSize))
		return
	}
	c.connected.Set(0)
	c.connSize.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
