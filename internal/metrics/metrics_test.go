package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiocore/internal/audiocore"
	"github.com/tphakala/audiocore/internal/buildinfo"
	"github.com/tphakala/audiocore/internal/wasmpool"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordBufferPoolStatsSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordBufferPoolStats(512, audiocore.Stats{Outstanding: 3, Free: 5, PeakOutstanding: 8})

	assert.Equal(t, 3.0, gaugeValue(t, c.bufferOutstanding.WithLabelValues("512")))
	assert.Equal(t, 5.0, gaugeValue(t, c.bufferFree.WithLabelValues("512")))
	assert.Equal(t, 8.0, gaugeValue(t, c.bufferPeak.WithLabelValues("512")))
}

func TestRecordExhaustedIncrementsPerLength(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordExhausted(256)
	c.RecordExhausted(256)
	c.RecordExhausted(1024)

	assert.Equal(t, 2.0, counterValue(t, c.bufferExhausted.WithLabelValues("256")))
	assert.Equal(t, 1.0, counterValue(t, c.bufferExhausted.WithLabelValues("1024")))
}

func TestRecordRenderObservesDurationAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordRender(5*time.Millisecond, false)
	c.RecordRender(1*time.Millisecond, true)

	var m dto.Metric
	require.NoError(t, c.renderDuration.Write(&m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 1.0, counterValue(t, c.renderErrors))
}

func TestRecordDiagnosticsIncrementsPerKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordDiagnostics([]audiocore.DiagnosticRecord{
		{Kind: audiocore.KindPoolExhausted},
		{Kind: audiocore.KindPoolExhausted},
	})

	assert.Equal(t, 2.0, counterValue(t, c.diagnostics.WithLabelValues(audiocore.KindPoolExhausted.String())))
}

func TestRecordDiagnosticsEmptySliceIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordDiagnostics(nil)
	// No panic, nothing to assert beyond survival — an empty drain must not
	// fabricate a metric series.
}

func TestRecordLevelMeterSetsPeakAndRMS(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordLevelMeter(0, 0.8, 0.3)

	assert.InDelta(t, 0.8, gaugeValue(t, c.meterPeak.WithLabelValues("0")), 1e-6)
	assert.InDelta(t, 0.3, gaugeValue(t, c.meterRMS.WithLabelValues("0")), 1e-6)
}

func TestRecordWorkerPoolConvertsMonotonicCounterToIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordWorkerPool(wasmpool.Stats{WorkerCount: 4, Degraded: false, SaturatedCount: 3, CompletedCount: 10})
	assert.Equal(t, 4.0, gaugeValue(t, c.workerCount))
	assert.Equal(t, 0.0, gaugeValue(t, c.workerDegraded))
	assert.Equal(t, 3.0, counterValue(t, c.workerSaturated))

	c.RecordWorkerPool(wasmpool.Stats{WorkerCount: 4, Degraded: true, SaturatedCount: 7, CompletedCount: 20})
	assert.Equal(t, 1.0, gaugeValue(t, c.workerDegraded))
	assert.Equal(t, 7.0, counterValue(t, c.workerSaturated))
}

func TestRecordBuildInfoSetsLabeledGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordBuildInfo(&buildinfo.Context{Version: "v1.2.3", BuildDate: "2026-07-31", SystemID: "host-a"})

	assert.Equal(t, 1.0, gaugeValue(t, c.buildInfo.WithLabelValues("v1.2.3", "2026-07-31", "host-a")))
}

func TestRecordBuildInfoNilInfoIsNoop(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	assert.NotPanics(t, func() {
		c.RecordBuildInfo(nil)
	})
}

func TestNilCollectorMethodsAreNoops(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordBufferPoolStats(1, audiocore.Stats{})
		c.RecordExhausted(1)
		c.RecordRender(time.Millisecond, false)
		c.RecordDiagnostics(nil)
		c.RecordLevelMeter(0, 0, 0)
		c.RecordSpectrumAnalysis(time.Millisecond)
		c.RecordLoaderStats(0, nil)
		c.RecordWorkerPool(wasmpool.Stats{})
		c.RecordBuildInfo(&buildinfo.Context{Version: "v0"})
	})
}

func TestDisabledCollectorMethodsAreNoops(t *testing.T) {
	// Global() falling back to a disabled Collector when InitGlobal was
	// never called must not panic on any method.
	g := &Collector{enabled: false}
	assert.NotPanics(t, func() {
		g.RecordExhausted(1)
	})
}

func TestInitGlobalIsIdempotent(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	first := InitGlobal(reg1)
	second := InitGlobal(reg2)

	assert.Same(t, first, second)
	assert.Same(t, first, Global())
}
