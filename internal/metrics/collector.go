// Package metrics exposes Prometheus counters/histograms for the run
// pipeline. Adapted from the teacher's internal/metrics.Collector
// (constructor building a struct of *prometheus.*Vec fields via
// promauto, Record* methods) but re-scoped away from the teacher's
// domain/SSL/DNS/incident/SLA metrics to runs, pipeline stages, the tick
// loop, and quota admission. The Mimir remote-write path
// (internal/metrics/mimir.go, remote_write.go) is not carried forward —
// see DESIGN.md.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	stageErrorsTotal *prometheus.CounterVec
	tickDuration     prometheus.Histogram
	queueDepth       prometheus.Gauge
	quotaDenials     *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspulse_runs_total",
			Help: "Total completed runs by delivery outcome.",
		}, []string{"delivery_status", "trigger_type"}),

		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statuspulse_run_duration_seconds",
			Help:    "End-to-end duration of a single run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger_type"}),

		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statuspulse_stage_duration_seconds",
			Help:    "Duration of one pipeline stage within a run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),

		stageErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspulse_stage_errors_total",
			Help: "Pipeline stage failures by stage and error kind.",
		}, []string{"stage", "error_kind"}),

		tickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "statuspulse_tick_duration_seconds",
			Help:    "Duration of one tick loop iteration across all due entries.",
			Buckets: prometheus.DefBuckets,
		}),

		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "statuspulse_trigger_queue_depth",
			Help: "Pending manual trigger jobs in the Redis queue.",
		}),

		quotaDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspulse_quota_denials_total",
			Help: "Admission denials by resource kind.",
		}, []string{"kind"}),
	}
}

func (c *Collector) RecordRun(deliveryStatus, triggerType string, duration time.Duration) {
	c.runsTotal.WithLabelValues(deliveryStatus, triggerType).Inc()
	c.runDuration.WithLabelValues(triggerType).Observe(duration.Seconds())
}

func (c *Collector) RecordStage(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (c *Collector) RecordStageError(stage, errorKind string) {
	c.stageErrorsTotal.WithLabelValues(stage, errorKind).Inc()
}

func (c *Collector) RecordTick(duration time.Duration) {
	c.tickDuration.Observe(duration.Seconds())
}

func (c *Collector) SetQueueDepth(depth int64) {
	c.queueDepth.Set(float64(depth))
}

func (c *Collector) RecordQuotaDenial(kind string) {
	c.quotaDenials.WithLabelValues(kind).Inc()
}
