// Package metrics exports the audio core's runtime state to Prometheus:
// buffer pool occupancy, render timing, diagnostic ring activity, level
// meter readings, and loader/cache/worker-pool stats. It replaces the
// teacher's audiocore/metrics.go, which delegated to a missing
// internal/observability/metrics package — this rewrites the same
// singleton/enabled-flag/slog shape directly against the real client
// library instead.
package metrics

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tphakala/audiocore/internal/audiocore"
	"github.com/tphakala/audiocore/internal/buildinfo"
	"github.com/tphakala/audiocore/internal/loader"
	"github.com/tphakala/audiocore/internal/logging"
	"github.com/tphakala/audiocore/internal/wasmpool"
)

// Collector holds every registered metric. The zero value is a disabled
// Collector whose methods do nothing; build a live one with New, which
// registers it with a prometheus.Registerer.
type Collector struct {
	enabled bool
	logger  *slog.Logger

	bufferOutstanding *prometheus.GaugeVec
	bufferFree        *prometheus.GaugeVec
	bufferPeak        *prometheus.GaugeVec
	bufferExhausted   *prometheus.CounterVec

	renderDuration prometheus.Histogram
	renderErrors   prometheus.Counter

	diagnostics *prometheus.CounterVec

	meterPeak *prometheus.GaugeVec
	meterRMS  *prometheus.GaugeVec

	spectrumDuration prometheus.Histogram

	loaderActive    prometheus.Gauge
	loaderCacheSize prometheus.Gauge

	workerCount     prometheus.Gauge
	workerDegraded  prometheus.Gauge
	workerSaturated prometheus.Counter
	lastSaturated   atomic.Uint64

	buildInfo *prometheus.GaugeVec
}

// New builds a Collector and registers its metrics with reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// pipeline instances) or prometheus.DefaultRegisterer for a single-process
// exporter.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		enabled: true,
		logger:  loggerOrDefault(),

		bufferOutstanding: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "buffer_pool", Name: "outstanding",
			Help: "Buffers currently lent out, by block length.",
		}, []string{"length"}),
		bufferFree: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "buffer_pool", Name: "free",
			Help: "Buffers currently idle in the free list, by block length.",
		}, []string{"length"}),
		bufferPeak: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "buffer_pool", Name: "peak_outstanding",
			Help: "High-water mark of outstanding buffers, by block length.",
		}, []string{"length"}),
		bufferExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiocore", Subsystem: "buffer_pool", Name: "exhausted_total",
			Help: "Count of Acquire calls that returned Exhausted, by block length.",
		}, []string{"length"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "audiocore", Subsystem: "pipeline", Name: "render_duration_seconds",
			Help:    "Wall-clock duration of Pipeline.Render calls.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 2, 20),
		}),
		renderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audiocore", Subsystem: "pipeline", Name: "render_silence_total",
			Help: "Count of render calls that emitted silence due to a failed step.",
		}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiocore", Subsystem: "pipeline", Name: "diagnostics_total",
			Help: "Diagnostic ring records drained, by kind.",
		}, []string{"kind"}),

		meterPeak: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "level_meter", Name: "peak",
			Help: "Most recent peak-absolute reading, by channel.",
		}, []string{"channel"}),
		meterRMS: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "level_meter", Name: "rms",
			Help: "Most recent smoothed RMS reading, by channel.",
		}, []string{"channel"}),

		spectrumDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "audiocore", Subsystem: "spectrum", Name: "analyze_duration_seconds",
			Help:    "Wall-clock duration of one FFT analysis pass.",
			Buckets: prometheus.DefBuckets,
		}),

		loaderActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "loader", Name: "active_loads",
			Help: "Loads currently holding a concurrency-cap slot.",
		}),
		loaderCacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "loader", Name: "cache_entries",
			Help: "Entries currently resident in the decode cache.",
		}),

		workerCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "worker_pool", Name: "workers",
			Help: "Live worker goroutines in the WASM worker pool.",
		}),
		workerDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audiocore", Subsystem: "worker_pool", Name: "degraded",
			Help: "1 if the worker pool degraded to single-threaded inline mode.",
		}),
		workerSaturated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audiocore", Subsystem: "worker_pool", Name: "saturated_total",
			Help: "Count of submissions that ran inline because the task queue was full.",
		}),

		buildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "audiocore", Name: "build_info",
			Help: "Always 1; labels carry the running binary's version, build date, and system ID.",
		}, []string{"version", "build_date", "system_id"}),
	}

	return c
}

func loggerOrDefault() *slog.Logger {
	if l := logging.ForService("metrics"); l != nil {
		return l
	}
	return slog.Default()
}

// RecordBufferPoolStats updates the buffer pool gauges for one block length.
func (c *Collector) RecordBufferPoolStats(length int, stats audiocore.Stats) {
	if c == nil || !c.enabled {
		return
	}
	label := lengthLabel(length)
	c.bufferOutstanding.WithLabelValues(label).Set(float64(stats.Outstanding))
	c.bufferFree.WithLabelValues(label).Set(float64(stats.Free))
	c.bufferPeak.WithLabelValues(label).Set(float64(stats.PeakOutstanding))
}

// RecordExhausted records one Acquire failure for length.
func (c *Collector) RecordExhausted(length int) {
	if c == nil || !c.enabled {
		return
	}
	c.bufferExhausted.WithLabelValues(lengthLabel(length)).Inc()
}

// RecordRender records the duration of one Pipeline.Render call. silent
// reports whether the render emitted silence due to a failed step.
func (c *Collector) RecordRender(d time.Duration, silent bool) {
	if c == nil || !c.enabled {
		return
	}
	c.renderDuration.Observe(d.Seconds())
	if silent {
		c.renderErrors.Inc()
	}
}

// RecordDiagnostics drains records and increments diagnostics counters.
func (c *Collector) RecordDiagnostics(records []audiocore.DiagnosticRecord) {
	if c == nil || !c.enabled {
		return
	}
	for _, rec := range records {
		c.diagnostics.WithLabelValues(rec.Kind.String()).Inc()
	}
	if len(records) > 0 {
		c.logger.Debug("diagnostic records drained", "count", len(records))
	}
}

// RecordLevelMeter updates the level meter gauges for one channel.
func (c *Collector) RecordLevelMeter(channel int, peak, rms float32) {
	if c == nil || !c.enabled {
		return
	}
	label := lengthLabel(channel)
	c.meterPeak.WithLabelValues(label).Set(float64(peak))
	c.meterRMS.WithLabelValues(label).Set(float64(rms))
}

// RecordSpectrumAnalysis records the duration of one FFT analysis pass.
func (c *Collector) RecordSpectrumAnalysis(d time.Duration) {
	if c == nil || !c.enabled {
		return
	}
	c.spectrumDuration.Observe(d.Seconds())
}

// RecordLoaderStats updates loader/cache gauges. activeLoads is a
// best-effort snapshot; cache is queried directly for its entry count.
func (c *Collector) RecordLoaderStats(activeLoads int, cache *loader.DecodeCache) {
	if c == nil || !c.enabled {
		return
	}
	c.loaderActive.Set(float64(activeLoads))
	if cache != nil {
		c.loaderCacheSize.Set(float64(cache.Len()))
	}
}

// RecordWorkerPool updates the WASM worker pool gauges/counters.
func (c *Collector) RecordWorkerPool(stats wasmpool.Stats) {
	if c == nil || !c.enabled {
		return
	}
	c.workerCount.Set(float64(stats.WorkerCount))
	if stats.Degraded {
		c.workerDegraded.Set(1)
	} else {
		c.workerDegraded.Set(0)
	}
	if delta := stats.SaturatedCount - c.lastSaturated.Swap(stats.SaturatedCount); delta > 0 {
		c.workerSaturated.Add(float64(delta))
	}
}

// RecordBuildInfo publishes the running binary's version, build date, and
// system ID as a constant-valued gauge, the usual Prometheus pattern for
// joining build metadata onto a dashboard built from the other metrics.
func (c *Collector) RecordBuildInfo(info buildinfo.BuildInfo) {
	if c == nil || !c.enabled || info == nil {
		return
	}
	c.buildInfo.WithLabelValues(info.GetVersion(), info.GetBuildDate(), info.GetSystemID()).Set(1)
}

func lengthLabel(n int) string {
	return strconv.Itoa(n)
}

// global holds a process-wide Collector for callers that don't want to
// thread one through every constructor (cmd/corebench's simplest path).
var (
	global     atomic.Pointer[Collector]
	globalOnce sync.Once
)

// InitGlobal builds and stores the process-wide Collector exactly once.
// Subsequent calls are no-ops.
func InitGlobal(reg prometheus.Registerer) *Collector {
	globalOnce.Do(func() {
		global.Store(New(reg))
	})
	return global.Load()
}

// Global returns the process-wide Collector, or a disabled no-op Collector
// if InitGlobal was never called.
func Global() *Collector {
	if c := global.Load(); c != nil {
		return c
	}
	return &Collector{enabled: false}
}
