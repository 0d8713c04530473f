// Package metrics exports vcontrold readings and run statistics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

const namespace = "vcontrold"

// Recorder holds the collectors on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	executions      *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	batchDuration   prometheus.Histogram
	lastBatch       prometheus.Gauge
	value           *prometheus.GaugeVec
	deviceInfo      *prometheus.GaugeVec
}

// NewRecorder creates and registers all collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_executions_total",
				Help:      "Command executions by resulting state.",
			},
			[]string{"state"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Time from prompt to parsed reply per command.",
				Buckets:   []float64{0.5, 1, 2, 2.5, 3, 5, 10, 30},
			},
			[]string{"command"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Duration of complete batch runs.",
				Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
			},
		),
		lastBatch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_batch_timestamp_seconds",
				Help:      "Unix time the last batch finished.",
			},
		),
		value: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "value",
				Help:      "Last numeric or boolean reading per command.",
			},
			[]string{"command", "unit"},
		),
		deviceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "device_info",
				Help:      "Identified heating control, always 1.",
			},
			[]string{"model", "id", "protocol"},
		),
	}

	r.registry.MustRegister(
		r.executions,
		r.commandDuration,
		r.batchDuration,
		r.lastBatch,
		r.value,
		r.deviceInfo,
	)
	return r
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// SetDevice publishes the identity of the heating control.
func (r *Recorder) SetDevice(id vcontrold.DeviceIdentity) {
	r.deviceInfo.Reset()
	r.deviceInfo.WithLabelValues(id.Model, strconv.Itoa(id.ID), id.Protocol).Set(1)
}

// ObserveResult records a single execution. Readings of failed commands
// are removed so no stale value is exported.
func (r *Recorder) ObserveResult(res vcontrold.Result) {
	r.executions.WithLabelValues(string(res.State)).Inc()
	if res.State == vcontrold.StateSkipped {
		return
	}
	r.commandDuration.WithLabelValues(res.Command).Observe(res.Duration.Seconds())

	if res.State != vcontrold.StateSuccess {
		r.value.DeletePartialMatch(prometheus.Labels{"command": res.Command})
		return
	}
	if v, ok := numeric(res.Value); ok {
		r.value.WithLabelValues(res.Command, res.Unit).Set(v)
	}
}

// ObserveReport records every item of a batch plus the batch itself.
func (r *Recorder) ObserveReport(report *vcontrold.Report) {
	for _, item := range report.Items {
		r.ObserveResult(item)
	}
	if n := len(report.Skipped); n > 0 {
		r.executions.WithLabelValues(string(vcontrold.StateSkipped)).Add(float64(n))
	}
	r.batchDuration.Observe(report.Duration.Seconds())
	r.lastBatch.Set(float64(time.Now().Unix()))
}

func numeric(v vcontrold.Value) (float64, bool) {
	switch v := v.(type) {
	case vcontrold.Number:
		return float64(v), true
	case vcontrold.Bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
