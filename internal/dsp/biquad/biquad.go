// Package biquad implements the 8-band parametric-EQ cascade (§4.3): one
// Direct Form I biquad per band, applied in series per channel, with
// coefficients computed off the audio thread and published as an
// immutable snapshot the render path only ever reads.
package biquad

import (
	"math"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/errors"
)

const bandCount = 8

// coeffs holds one band's normalized Direct Form I coefficients
// (a0 already divided out) plus whether the band is configured as unity
// gain, letting the render path skip it entirely when bypass is enabled.
type coeffs struct {
	b0, b1, b2 float32
	a1, a2     float32
	unity      bool
}

// Snapshot is the immutable coefficient set published by Configure. The
// render path loads one atomic pointer to it per block; it never mutates
// through this type.
type Snapshot struct {
	bands       [bandCount]coeffs
	bypassUnity bool
}

// channelState holds the two-sample history (x1,x2,y1,y2) for every band
// of one channel — the "channels × bands × 2" matrix from §4.3, laid out
// per channel so Configure can leave it untouched across a reconfigure.
type channelState struct {
	x1, x2 [bandCount]float32
	y1, y2 [bandCount]float32
}

// Engine owns one coefficient snapshot and one state matrix, sized for a
// fixed channel count at construction.
type Engine struct {
	sampleRate float64
	snapshot   atomic.Pointer[Snapshot]
	states     []channelState
}

// NewEngine builds an Engine for channelCount channels at sampleRate,
// with all bands initialized to unity gain.
func NewEngine(sampleRate float64, channelCount int) *Engine {
	e := &Engine{
		sampleRate: sampleRate,
		states:     make([]channelState, channelCount),
	}
	unity := &Snapshot{}
	for i := range unity.bands {
		unity.bands[i] = coeffs{b0: 1, unity: true}
	}
	e.snapshot.Store(unity)
	return e
}

// Configure computes coefficients for all 8 bands off the audio thread
// and atomically publishes the new snapshot. State is left untouched so
// a live reconfigure does not produce an audible click; call Reset
// explicitly to clear history.
func (e *Engine) Configure(bands [bandCount]config.Band, bypassUnityBands bool) error {
	nyquist := e.sampleRate / 2
	next := &Snapshot{bypassUnity: bypassUnityBands}

	for i, b := range bands {
		if b.CenterHz <= 0 || b.CenterHz >= nyquist {
			return errors.Newf("band %d center frequency %.2fHz outside (0, %.2f)", i, b.CenterHz, nyquist).
				Component("biquad").
				Category(errors.CategoryValidation).
				Context("band", i).
				Context("center_hz", b.CenterHz).
				Context("nyquist", nyquist).
				Build()
		}
		next.bands[i] = peakingCoeffs(e.sampleRate, b.CenterHz, b.Q, b.GainDB)
	}

	e.snapshot.Store(next)
	return nil
}

// peakingCoeffs computes RBJ-cookbook peaking-EQ coefficients in 64-bit
// and rounds to 32-bit on publish, per §4.3's numeric notes.
func peakingCoeffs(sampleRate, centerHz, q, gainDB float64) coeffs {
	if gainDB == 0 {
		return coeffs{b0: 1, unity: true}
	}

	a := math.Pow(10, gainDB/40)
	omega := 2 * math.Pi * centerHz / sampleRate
	sinW, cosW := math.Sin(omega), math.Cos(omega)
	alpha := sinW / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosW
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW
	a2 := 1 - alpha/a

	return coeffs{
		b0: float32(b0 / a0),
		b1: float32(b1 / a0),
		b2: float32(b2 / a0),
		a1: float32(a1 / a0),
		a2: float32(a2 / a0),
	}
}

// denormalFloor is flushed in place of any state value smaller in
// magnitude, substituting for a DAZ/FTZ CPU control-register mode:
// portable Go has no way to set that mode without assembly, so the
// cascade flushes near-zero history after every block instead. The
// effect is the same — IIR state never decays into the denormal range
// and drags the FPU into microcode slow paths.
const denormalFloor = 1e-30

func flushDenormal(v float32) float32 {
	if v > -denormalFloor && v < denormalFloor {
		return 0
	}
	return v
}

// ProcessInPlace applies the 8-band cascade to every channel of block,
// lower-indexed bands first (§4.3's deterministic gain-stacking
// tie-break). block is planar: block[ch] holds blockLength samples.
func (e *Engine) ProcessInPlace(block [][]float32, channelCount int) {
	snap := e.snapshot.Load()
	if snap == nil {
		return
	}

	for ch := 0; ch < channelCount && ch < len(block) && ch < len(e.states); ch++ {
		samples := block[ch]
		state := &e.states[ch]

		for band := 0; band < bandCount; band++ {
			c := snap.bands[band]
			if snap.bypassUnity && c.unity {
				continue
			}

			x1, x2 := state.x1[band], state.x2[band]
			y1, y2 := state.y1[band], state.y2[band]

			for i, x0 := range samples {
				y0 := c.b0*x0 + c.b1*x1 + c.b2*x2 - c.a1*y1 - c.a2*y2
				samples[i] = y0
				x2, x1 = x1, x0
				y2, y1 = y1, y0
			}

			state.x1[band], state.x2[band] = x1, x2
			state.y1[band], state.y2[band] = flushDenormal(y1), flushDenormal(y2)
		}
	}
}

// Reset clears all per-channel filter history. State is not cleared by
// Configure, so the host calls Reset explicitly when a discontinuity
// (seek, stream restart) makes stale history undesirable.
func (e *Engine) Reset() {
	for i := range e.states {
		e.states[i] = channelState{}
	}
}
