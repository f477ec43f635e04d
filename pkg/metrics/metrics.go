// Package metrics records Prometheus metrics for plan runs and their steps.
//
// # Basic Usage
//
//	c, err := metrics.NewCollector("nebulaframe", prometheus.DefaultRegisterer)
//	if err != nil {
//	    return err
//	}
//	timer := metrics.NewTimer("explode")
//	out, err := explode.Explode(t, sel, opts)
//	c.ObserveStep("explode", timer.Stop(), t.NumRows(), out.NumRows(), err)
//
// # Metric Types
//
// Counter: steps, rows and warnings per operation
// Gauge: active runs and the rows-per-second of the last step
// Histogram: step duration in seconds
//
// A nil *Collector is valid and records nothing, which is how disabled
// metrics are represented.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector holds the run and step metrics of one registry.
type Collector struct {
	steps         *prometheus.CounterVec   // steps by op and status
	stepDuration  *prometheus.HistogramVec // step latency distribution
	rows          *prometheus.CounterVec   // rows by op and direction
	warnings      *prometheus.CounterVec   // warnings by op and type
	throughput    *prometheus.GaugeVec     // rows per second of the last step
	runs          *prometheus.CounterVec   // runs by status
	activeRuns    prometheus.Gauge
	runDuration   prometheus.Histogram
}

// NewCollector registers the metrics under namespace with reg. Registering
// twice with the same registry fails with prometheus.AlreadyRegisteredError.
func NewCollector(namespace string, reg prometheus.Registerer) (c *Collector, err error) {
	defer func() {
		// promauto panics on duplicate registration
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				c, err = nil, e
				return
			}
			panic(r)
		}
	}()

	f := promauto.With(reg)
	return &Collector{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of plan steps executed",
		}, []string{"op", "status"}),

		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Plan step duration in seconds",
			Buckets: []float64{
				1e-5, // 10μs - Small tables
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms - Large joins
				1,    // 1s
				10,   // 10s - File IO on large inputs
			},
		}, []string{"op"}),

		rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows read and produced by plan steps",
		}, []string{"op", "direction"}),

		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal warnings raised by plan steps",
		}, []string{"op", "type"}),

		throughput: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_throughput_rows_per_second",
			Help:      "Output rows per second of the most recent step",
		}, []string{"op"}),

		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of plan runs",
		}, []string{"status"}),

		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of plan runs in progress",
		}),

		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Plan run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-3, 10, 6),
		}),
	}, nil
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// ObserveStep records one executed step.
func (c *Collector) ObserveStep(op string, d time.Duration, rowsIn, rowsOut int, err error) {
	if c == nil {
		return
	}
	c.steps.WithLabelValues(op, status(err)).Inc()
	c.stepDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		return
	}
	c.rows.WithLabelValues(op, "in").Add(float64(rowsIn))
	c.rows.WithLabelValues(op, "out").Add(float64(rowsOut))
	if secs := d.Seconds(); secs > 0 {
		c.throughput.WithLabelValues(op).Set(float64(rowsOut) / secs)
	}
}

// Warning counts a warning of the given type raised by op.
func (c *Collector) Warning(op, warnType string) {
	if c == nil {
		return
	}
	c.warnings.WithLabelValues(op, warnType).Inc()
}

// StartRun marks a run as active. The returned function ends it.
func (c *Collector) StartRun() func(err error) {
	if c == nil {
		return func(error) {}
	}
	c.activeRuns.Inc()
	timer := NewTimer("run")
	return func(err error) {
		c.activeRuns.Dec()
		c.runs.WithLabelValues(status(err)).Inc()
		c.runDuration.Observe(timer.Stop().Seconds())
	}
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed time since creation. It may be called more than
// once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
