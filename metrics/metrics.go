package metrics

import (
	"net/http"
	"time"

	"excalidraw-desktop/bridge"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the bridge. It implements
// bridge.Observer.
type Metrics struct {
	registry *prometheus.Registry

	BridgeCalls    *prometheus.CounterVec
	BridgeDuration *prometheus.HistogramVec
	startTime      time.Time
}

var _ bridge.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),

		BridgeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "excalidraw_bridge_calls_total",
				Help: "Total number of bridge calls by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		BridgeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "excalidraw_bridge_call_duration_seconds",
				Help:    "Bridge call duration in seconds, dialogs included",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
			},
			[]string{"command"},
		),
	}

	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "excalidraw_host_uptime_seconds",
			Help: "Host uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	m.registry.MustRegister(
		m.BridgeCalls,
		m.BridgeDuration,
		uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Observe(cmd bridge.Command, result bridge.Result, elapsed time.Duration) {
	m.BridgeCalls.WithLabelValues(cmd.String(), result.Kind().String()).Inc()
	m.BridgeDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
