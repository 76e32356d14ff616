// Package prometheus exposes the manager's operational state as Prometheus
// metrics on an isolated registry.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/autoscaler"
	"github.com/intelworks/tool-runtime-manager/internal/health"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/resource"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

const namespace = "tool_manager"

// Exporter publishes resource, registry and control loop metrics. Gauge
// values are read live at scrape time from the component snapshots; counters
// are fed by the registry observer and tick sink.
type Exporter struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	transitionsTotal *prometheus.CounterVec
	ticksTotal       *prometheus.CounterVec
}

// NewExporter builds the metric set over the given components.
func NewExporter(reg *registry.Registry, sampler *resource.Sampler, classifier *resource.Classifier, scaler *autoscaler.Scaler, monitor *health.Monitor, logger *zap.Logger) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_level",
			Help:      "Classified resource level severity (0=low, 1=medium, 2=high, 3=critical)",
		},
		func() float64 { return float64(classifier.CurrentLevel().Severity()) },
	))

	for _, m := range []struct {
		name   string
		help   string
		sample func() float64
	}{
		{"cpu_utilization_percent", "Smoothed host CPU utilization", func() float64 { c, _, _ := classifier.Utilization(); return c }},
		{"memory_utilization_percent", "Smoothed host memory utilization", func() float64 { _, v, _ := classifier.Utilization(); return v }},
		{"gpu_utilization_percent", "Smoothed host GPU utilization", func() float64 { _, _, g := classifier.Utilization(); return g }},
	} {
		e.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: m.name, Help: m.help},
			m.sample,
		))
	}

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_score",
			Help:      "Aggregated health score (0-100)",
		},
		func() float64 { return float64(monitor.Report().HealthScore) },
	))

	e.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "autoscaling_enabled",
			Help:      "Whether the auto-scaling kill-switch is on (1) or off (0)",
		},
		func() float64 {
			if scaler.Enabled() {
				return 1
			}
			return 0
		},
	))

	e.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_samples_total",
			Help:      "Samples held from the last good reading after a provider failure",
		},
		func() float64 { return float64(sampler.StaleSamples()) },
	))

	e.registry.MustRegister(toolStateCollector{registry: reg})

	e.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed tool lifecycle transitions by reason",
		},
		[]string{"reason", "to"},
	)
	e.registry.MustRegister(e.transitionsTotal)

	e.ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autoscaler_ticks_total",
			Help:      "Control loop ticks by classified resource level",
		},
		[]string{"level"},
	)
	e.registry.MustRegister(e.ticksTotal)

	return e
}

// Handler returns the scrape handler for the exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Observer feeds the transition counter from committed registry events.
func (e *Exporter) Observer() registry.Observer {
	return func(ev registry.Event) {
		e.transitionsTotal.WithLabelValues(string(ev.Reason), string(ev.To)).Inc()
	}
}

// OnTick feeds the tick counter from the control loop.
func (e *Exporter) OnTick() func(autoscaler.TickStats) {
	return func(stats autoscaler.TickStats) {
		e.ticksTotal.WithLabelValues(string(stats.Level)).Inc()
	}
}

// toolStateCollector reports the number of tools in each lifecycle state at
// scrape time, from the current registry snapshot.
type toolStateCollector struct {
	registry *registry.Registry
}

var toolStateDesc = prometheus.NewDesc(
	namespace+"_tools",
	"Registered tools by lifecycle state",
	[]string{"state"},
	nil,
)

func (c toolStateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- toolStateDesc
}

func (c toolStateCollector) Collect(ch chan<- prometheus.Metric) {
	counts := map[types.LifecycleState]int{
		types.LifecycleDisabled: 0,
		types.LifecycleEnabled:  0,
		types.LifecyclePaused:   0,
		types.LifecycleError:    0,
	}
	for _, st := range c.registry.Snapshot().Tools {
		counts[st.Lifecycle]++
	}
	for state, n := range counts {
		ch <- prometheus.MustNewConstMetric(toolStateDesc, prometheus.GaugeValue, float64(n), string(state))
	}
}
