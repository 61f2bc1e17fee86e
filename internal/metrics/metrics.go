// Package metrics exposes Prometheus collectors for detection sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/repwatch/internal/repetition"
)

// Metrics holds the collectors updated by the session runner.
type Metrics struct {
	Samples        prometheus.Counter
	InvalidSamples prometheus.Counter
	MissingPoses   prometheus.Counter
	SourceErrors   prometheus.Counter
	Events         prometheus.Counter
	Episodes       prometheus.Counter
	StdDev         prometheus.Gauge
	WindowFill     prometheus.Gauge
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repwatch_samples_total",
			Help: "Samples accepted by the repetition detector.",
		}),
		InvalidSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repwatch_invalid_samples_total",
			Help: "Non-finite samples rejected by the repetition detector.",
		}),
		MissingPoses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repwatch_missing_poses_total",
			Help: "Frames without a usable pose.",
		}),
		SourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repwatch_source_errors_total",
			Help: "Errors returned by the landmark source.",
		}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repwatch_events_total",
			Help: "Repetitive movement detection events.",
		}),
		Episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repwatch_episodes_total",
			Help: "Runs of consecutive triggered samples.",
		}),
		StdDev: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repwatch_window_std_dev",
			Help: "Population standard deviation of the current window.",
		}),
		WindowFill: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repwatch_window_fill",
			Help: "Number of samples in the current window.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Samples,
			m.InvalidSamples,
			m.MissingPoses,
			m.SourceErrors,
			m.Events,
			m.Episodes,
			m.StdDev,
			m.WindowFill,
		)
	}

	return m
}

// Observe records one detector result. prevEvents is the event count
// before the call.
func (m *Metrics) Observe(res repetition.Result, prevEvents, windowLen int) {
	m.Samples.Inc()
	m.WindowFill.Set(float64(windowLen))

	if res.HasStdDev {
		m.StdDev.Set(res.StdDev)
	}
	if delta := res.EventCount - prevEvents; delta > 0 {
		m.Events.Add(float64(delta))
	}
	if res.EpisodeStart {
		m.Episodes.Inc()
	}
}
