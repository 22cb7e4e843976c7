// Package metrics exposes statement latency and error counts to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records one observation per executed statement.
type Collector struct {
	duration *prometheus.SummaryVec
	failures *prometheus.CounterVec
}

// Options names the exported series.
type Options struct {
	Namespace string
	Subsystem string
}

// NewCollector creates the collector and registers it with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, opts Options) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if opts.Subsystem == "" {
		opts.Subsystem = "sqlrow"
	}

	c := &Collector{
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "query_duration_milliseconds",
			Help:      "Statement execution time in milliseconds.",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"database", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "query_errors_total",
			Help:      "Statements that returned an error.",
		}, []string{"database", "operation"}),
	}

	if err := reg.Register(c.duration); err != nil {
		return nil, err
	}
	if err := reg.Register(c.failures); err != nil {
		reg.Unregister(c.duration)
		return nil, err
	}
	return c, nil
}

// Observe records a finished statement.
func (c *Collector) Observe(database, operation string, d time.Duration, err error) {
	c.duration.WithLabelValues(database, operation).Observe(float64(d.Microseconds()) / 1000.0)
	if err != nil {
		c.failures.WithLabelValues(database, operation).Inc()
	}
}
