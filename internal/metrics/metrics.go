// Package metrics exposes optional Prometheus instrumentation for a
// playback session (spec §4.P, expansion). It is never required for
// playback itself: a nil *Metrics is always safe to call into, so wiring
// it through the player package costs nothing when --metrics-addr is
// unset. The collector set and private-registry-plus-promhttp.HandlerFor
// serving style follows the prometheus/client_golang idiom the rest of
// the example pack reaches for rather than hand-rolled counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors a playback session updates as it runs.
// A nil *Metrics is valid; every method no-ops on it.
type Metrics struct {
	registry *prometheus.Registry

	recordsPlayed prometheus.Counter
	seeksTotal    prometheus.Counter
	elapsedSec    prometheus.Gauge
	speed         prometheus.Gauge
	driftUsec     prometheus.Gauge
}

// New creates a Metrics with a private registry so serve-mode metrics
// never collide with anything else in the process's default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		recordsPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ttyplay",
			Name:      "records_played_total",
			Help:      "Number of ttyrec records written to the terminal.",
		}),
		seeksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ttyplay",
			Name:      "seeks_total",
			Help:      "Number of seek or jump operations performed.",
		}),
		elapsedSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ttyplay",
			Name:      "elapsed_seconds",
			Help:      "Current playback position, in recording time.",
		}),
		speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ttyplay",
			Name:      "speed_multiplier",
			Help:      "Current playback speed multiplier (0 when paused).",
		}),
		driftUsec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ttyplay",
			Name:      "drift_microseconds",
			Help:      "Most recent timing drift correction, in microseconds.",
		}),
	}
	reg.MustRegister(m.recordsPlayed, m.seeksTotal, m.elapsedSec, m.speed, m.driftUsec)
	return m
}

// Handler returns an http.Handler serving this Metrics' collectors, or nil
// if m is nil.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPlayed increments the played-records counter.
func (m *Metrics) RecordPlayed() {
	if m == nil {
		return
	}
	m.recordsPlayed.Inc()
}

// SeekPerformed increments the seek counter.
func (m *Metrics) SeekPerformed() {
	if m == nil {
		return
	}
	m.seeksTotal.Inc()
}

// SetElapsed records the current playback position in seconds.
func (m *Metrics) SetElapsed(seconds float64) {
	if m == nil {
		return
	}
	m.elapsedSec.Set(seconds)
}

// SetSpeed records the current speed multiplier, 0 when paused.
func (m *Metrics) SetSpeed(multiplier float64) {
	if m == nil {
		return
	}
	m.speed.Set(multiplier)
}

// SetDrift records the most recent drift correction in microseconds.
func (m *Metrics) SetDrift(usec float64) {
	if m == nil {
		return
	}
	m.driftUsec.Set(usec)
}
