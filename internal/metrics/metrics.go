// Package metrics exposes Prometheus counters and histograms for calls
// made to the upstream dog API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	registry *prometheus.Registry

	successfulAPICallsTotal *prometheus.CounterVec
	failedAPICallsTotal     *prometheus.CounterVec
	unauthorizedTotal       prometheus.Counter
	apiDelay                *prometheus.HistogramVec
	activeWorkspaces        prometheus.Gauge
}

// New creates a collector with its own registry, so tests and multiple
// servers in one process never collide on registration.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		successfulAPICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_api_calls_total",
				Help: "The number of successful dog API calls",
			},
			[]string{"action"},
		),
		failedAPICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failed_api_calls_total",
				Help: "The number of dog API calls that returned an error",
			},
			[]string{"action"},
		),
		unauthorizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unauthorized_api_responses_total",
			Help: "The number of 401 responses that forced a logout",
		}),
		apiDelay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_delay_milliseconds",
				Help:    "Histogram of the delay in milliseconds when calling the dog API",
				Buckets: []float64{10, 100, 250, 500, 1000, 1500, 2000},
			},
			[]string{"action"},
		),
		activeWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_workspaces",
			Help: "The number of browser sessions with live state in memory",
		}),
	}
	reg.MustRegister(c.successfulAPICallsTotal)
	reg.MustRegister(c.failedAPICallsTotal)
	reg.MustRegister(c.unauthorizedTotal)
	reg.MustRegister(c.apiDelay)
	reg.MustRegister(c.activeWorkspaces)
	return c
}

func labels(action string) prometheus.Labels {
	return prometheus.Labels{"action": action}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCall records the outcome and latency of one API call.
func (c *Collector) ObserveCall(action string, took time.Duration, err error) {
	if err != nil {
		c.failedAPICallsTotal.With(labels(action)).Inc()
	} else {
		c.successfulAPICallsTotal.With(labels(action)).Inc()
	}
	c.apiDelay.With(labels(action)).Observe(float64(took.Milliseconds()))
}

func (c *Collector) IncUnauthorized() {
	c.unauthorizedTotal.Inc()
}

func (c *Collector) SetActiveWorkspaces(n int) {
	c.activeWorkspaces.Set(float64(n))
}
