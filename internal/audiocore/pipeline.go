package audiocore

import (
	"time"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/dsp/biquad"
	"github.com/tphakala/audiocore/internal/dsp/levelmeter"
	"github.com/tphakala/audiocore/internal/dsp/simd"
	"github.com/tphakala/audiocore/internal/dsp/spectrum"
)

// Source supplies decoded planar samples to the render path. FillBlock
// writes exactly blockLength samples into each of dst's channels and
// returns true, or returns false to request silence for this block
// (no data currently available).
type Source interface {
	FillBlock(dst [][]float32, blockLength int) bool
}

// Pipeline is the only component the host calls every render (C9): it
// borrows scratch buffers from the BufferPool, runs the biquad cascade
// in place, forwards the block to the spectrum analyzer (throttled
// internally), updates the level meter, and writes the result into the
// host's output block. No step blocks or logs. Once the pool is warm, a
// render allocates nothing except on two paths: a block that triggers a
// spectrum analysis allocates that analysis's working and frame buffers,
// and a block on which the pool is exhausted allocates the error value and
// one diagnostic record.
type Pipeline struct {
	pool         *BufferPool
	biquad       *biquad.Engine
	meter        *levelmeter.Meter
	spectrumAnlz *spectrum.Analyzer
	ring         *diagnosticRing
	source       Source

	channelCount int

	// scratch and scratchViews are reused across every Render call; they
	// are the only per-pipeline state that would otherwise need
	// per-block allocation.
	scratch      []*Buffer
	scratchViews [][]float32

	now func() time.Time
}

// NewPipeline builds a Pipeline wired to cfg, with kernels selected once
// at construction (§4.2) and source supplying decoded audio. source may
// be nil, in which case every render emits silence. The spectrum analyzer
// is given no RunAsync hook, so its analysis runs inline on the render
// call whichever way spectrum.run_on_audio_thread is set.
func NewPipeline(cfg *config.Config, kernels simd.Kernels, source Source) *Pipeline {
	channelCount := cfg.Audio.ChannelCount

	p := &Pipeline{
		pool:         NewBufferPool(cfg.Pool),
		biquad:       biquad.NewEngine(float64(cfg.Audio.SampleRate), channelCount),
		meter:        levelmeter.NewMeter(channelCount, cfg.Meter.RMSTau, kernels),
		ring:         newDiagnosticRing(256),
		source:       source,
		channelCount: channelCount,
		scratch:      make([]*Buffer, channelCount),
		scratchViews: make([][]float32, channelCount),
		now:          time.Now,
	}

	spec, err := spectrum.NewAnalyzer(cfg.Spectrum, kernels)
	if err == nil {
		p.spectrumAnlz = spec
	}

	return p
}

// Configure recomputes EQ coefficients off the audio thread and
// publishes the new snapshot; see biquad.Engine.Configure.
func (p *Pipeline) Configure(bands [8]config.Band, bypassUnityBands bool) error {
	if err := p.biquad.Configure(bands, bypassUnityBands); err != nil {
		p.ring.record(KindCoefficientPublishFailed, 0, p.now().UnixNano())
		return err
	}
	return nil
}

// Diagnostics returns every diagnostic ring record still resident,
// oldest first. Call from any non-audio thread.
func (p *Pipeline) Diagnostics() []DiagnosticRecord {
	return p.ring.Drain()
}

// Render is the host's entry point, called once per audio callback.
// output is planar: output[ch] holds exactly blockLength samples.
func (p *Pipeline) Render(output [][]float32, blockLength int) {
	acquired := 0
	for ch := 0; ch < p.channelCount; ch++ {
		buf, err := p.pool.Acquire(blockLength, false)
		if err != nil {
			p.ring.record(KindPoolExhausted, uint32(ch), p.now().UnixNano())
			break
		}
		p.scratch[ch] = buf
		p.scratchViews[ch] = buf.Data()
		acquired++
	}

	if acquired < p.channelCount {
		p.releaseScratch(acquired)
		silence(output, blockLength)
		return
	}

	filled := p.source != nil && p.source.FillBlock(p.scratchViews, blockLength)
	if !filled {
		for _, view := range p.scratchViews {
			clear(view)
		}
	}

	p.biquad.ProcessInPlace(p.scratchViews, p.channelCount)

	if p.spectrumAnlz != nil && len(p.scratchViews) > 0 {
		p.spectrumAnlz.Feed(p.scratchViews[0])
	}

	for ch := range p.scratchViews {
		p.meter.Update(p.scratchViews[ch], ch)
	}

	for ch := 0; ch < p.channelCount && ch < len(output); ch++ {
		n := min(blockLength, len(output[ch]), len(p.scratchViews[ch]))
		copy(output[ch][:n], p.scratchViews[ch][:n])
	}

	p.releaseScratch(acquired)
}

func (p *Pipeline) releaseScratch(acquired int) {
	for ch := 0; ch < acquired; ch++ {
		p.scratch[ch].Release()
		p.scratch[ch] = nil
		p.scratchViews[ch] = nil
	}
}

func silence(output [][]float32, blockLength int) {
	for _, ch := range output {
		n := min(blockLength, len(ch))
		clear(ch[:n])
	}
}

// Meter exposes the level meter for host-side display polling.
func (p *Pipeline) Meter() *levelmeter.Meter { return p.meter }

// Spectrum exposes the spectrum analyzer for host-side display polling.
// Returns nil if the configured FFT size was rejected at construction.
func (p *Pipeline) Spectrum() *spectrum.Analyzer { return p.spectrumAnlz }

// Pool exposes the buffer pool for host-side stats polling.
func (p *Pipeline) Pool() *BufferPool { return p.pool }
