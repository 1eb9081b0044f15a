// Package spectrum implements the FFT-based spectrum analyzer (§4.5): a
// circular accumulation buffer feeds a windowed real-to-complex FFT,
// converted to dB-with-floor magnitudes, exponentially smoothed, and
// published to a single-writer single-reader frame ring.
package spectrum

import (
	"math"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/dsp/simd"
	"github.com/tphakala/audiocore/internal/errors"
)

// FloorDB is the magnitude floor applied to every bin (§4.5).
const FloorDB = -120.0

// Frame is one smoothed spectrum frame: N/2+1 magnitude bins in dB.
type Frame struct {
	BinsDB []float64
}

// frameRing is the capacity-2 single-writer single-reader publish
// mechanism: the writer builds a new immutable Frame and stores it into
// the slot the reader isn't currently pointed at, then flips the index —
// so a reader already holding the old index's pointer keeps a valid,
// never-partially-written Frame even if the writer races ahead and
// republishes into that same slot on its next lap. This is the same
// snapshot-publish idiom as internal/dsp/biquad's coefficient publish,
// doubled up so the index flip and the slot write are never observed
// torn. A reader slower than the FFT cadence simply misses intermediate
// frames and reads the latest one — spectrum display tolerates dropped
// frames far better than a blocking or growing queue would tolerate a
// slow reader.
type frameRing struct {
	slots   [2]atomic.Pointer[Frame]
	current atomic.Uint32
}

func (r *frameRing) publish(f *Frame) {
	next := (r.current.Load() + 1) % uint32(len(r.slots))
	r.slots[next].Store(f)
	r.current.Store(next)
}

// Latest returns the most recently published Frame, or nil if feed has
// never produced a full frame.
func (r *frameRing) Latest() *Frame { return r.slots[r.current.Load()].Load() }

// Analyzer accumulates render blocks into a circular window of FFT size,
// and on each full window (subject to throttling) produces a smoothed
// dB-magnitude spectrum frame.
type Analyzer struct {
	fftSize          int
	window           []float64
	smoothingAlpha   float64
	minFrameInterval int
	runOnAudioThread bool
	kernels          simd.Kernels

	accum          []float64
	accumPos       int
	accumFilled    bool
	blocksSinceRun int

	prevSmoothed []float64
	ring         frameRing

	// RunAsync, if set and runOnAudioThread is false, is handed the
	// analysis closure instead of running it inline. The caller supplies
	// this (native thread pool or WASM WorkerPool); this package owns no
	// worker pool of its own.
	RunAsync func(func())
}

// NewAnalyzer validates cfg.FFTSize and builds an Analyzer.
func NewAnalyzer(cfg config.SpectrumConfig, kernels simd.Kernels) (*Analyzer, error) {
	switch cfg.FFTSize {
	case 512, 1024, 2048, 4096:
	default:
		return nil, errors.Newf("fft size %d is not a power of two in [512, 4096]", cfg.FFTSize).
			Component("spectrum").
			Category(errors.CategoryValidation).
			Context("fft_size", cfg.FFTSize).
			Build()
	}

	a := &Analyzer{
		fftSize:          cfg.FFTSize,
		window:           buildWindow(cfg.Window, cfg.FFTSize),
		smoothingAlpha:   cfg.SmoothingAlpha,
		minFrameInterval: max(1, cfg.MinFrameInterval),
		runOnAudioThread: cfg.RunOnAudioThread,
		kernels:          kernels,
		accum:            make([]float64, cfg.FFTSize),
		prevSmoothed:     make([]float64, cfg.FFTSize/2+1),
	}
	return a, nil
}

func buildWindow(w config.WindowFunc, n int) []float64 {
	coeffs := make([]float64, n)
	switch w {
	case config.WindowHann:
		for i := range coeffs {
			coeffs[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		}
	case config.WindowHamming:
		for i := range coeffs {
			coeffs[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		}
	case config.WindowBlackman:
		for i := range coeffs {
			x := 2 * math.Pi * float64(i) / float64(n-1)
			coeffs[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		}
	default: // rectangular
		for i := range coeffs {
			coeffs[i] = 1
		}
	}
	return coeffs
}

// Feed appends block to the circular accumulator, which always slides
// forward by len(block) regardless of throttling. When the accumulator
// has completed a full window and at least minFrameInterval blocks have
// elapsed since the last analysis, it runs the analysis — inline if
// runOnAudioThread, otherwise via RunAsync.
func (a *Analyzer) Feed(block []float32) {
	for _, s := range block {
		a.accum[a.accumPos] = float64(s)
		a.accumPos++
		if a.accumPos == a.fftSize {
			a.accumPos = 0
			a.accumFilled = true
		}
	}

	if !a.accumFilled {
		return
	}
	a.blocksSinceRun++
	if a.blocksSinceRun < a.minFrameInterval {
		return
	}
	a.blocksSinceRun = 0

	windowed := make([]float64, a.fftSize)
	for i := 0; i < a.fftSize; i++ {
		idx := (a.accumPos + i) % a.fftSize
		windowed[i] = a.accum[idx] * a.window[i]
	}

	if a.runOnAudioThread || a.RunAsync == nil {
		a.analyze(windowed)
		return
	}
	a.RunAsync(func() { a.analyze(windowed) })
}

// analyze runs the FFT, converts to dB magnitudes with a floor, smooths
// against the previous frame, and publishes the result.
func (a *Analyzer) analyze(windowed []float64) {
	result := fft.FFTReal(windowed)
	bins := a.fftSize/2 + 1

	magnitudes := make([]float64, bins)
	for i := 0; i < bins; i++ {
		re, im := real(result[i]), imag(result[i])
		magnitudes[i] = math.Sqrt(re*re + im*im)
	}

	db := make([]float64, bins)
	a.kernels.MagnitudeToDB(db, magnitudes, FloorDB)

	smoothed := make([]float64, bins)
	for i := range smoothed {
		smoothed[i] = a.smoothingAlpha*db[i] + (1-a.smoothingAlpha)*a.prevSmoothed[i]
	}
	a.prevSmoothed = smoothed

	a.ring.publish(&Frame{BinsDB: smoothed})
}

// Latest returns the most recently published spectrum frame.
func (a *Analyzer) Latest() *Frame {
	return a.ring.Latest()
}

// DecodeLegacyFrame services callers feeding 8-bit magnitude buffers
// (legacy UI feed, §4.5) without running the full FFT pipeline: the
// UnpackGainOffset kernel unpacks and scales the bytes, a plain loop widens
// them to float64, and the MagnitudeToDB kernel converts to dB. These are
// three separate passes over the data, not one fused loop.
func (a *Analyzer) DecodeLegacyFrame(src []byte, gain, offset float32) []float64 {
	unpacked := make([]float32, len(src))
	a.kernels.UnpackGainOffset(unpacked, src, gain, offset)

	magnitudes := make([]float64, len(unpacked))
	for i, v := range unpacked {
		magnitudes[i] = float64(v)
	}

	db := make([]float64, len(magnitudes))
	a.kernels.MagnitudeToDB(db, magnitudes, FloorDB)
	return db
}
