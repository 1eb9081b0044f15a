// Package levelmeter implements the lock-free per-channel peak/RMS meter
// (§4.4): per block, a plain scalar scan for peak-absolute and a
// SquareAccumulate kernel pass for sum-of-squares (two passes, not one
// fused SIMD pass), folded into two atomic cells per channel via
// compare-and-exchange loops. No locks, no allocation, and progress is
// guaranteed even under contention.
package levelmeter

import (
	"math"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/dsp/simd"
)

// Snapshot is one channel's peak and RMS level at the moment snapshot()
// was called.
type Snapshot struct {
	Peak float32
	RMS  float32
}

// channelCell packs peak and rms as bit-cast atomic.Uint32 values so both
// update with CAS loops rather than a lock.
type channelCell struct {
	peak atomic.Uint32
	rms  atomic.Uint32
}

// Meter is a fixed-size array of per-channel cells plus the RMS time
// constant, built once for a known channel count.
type Meter struct {
	tau     float32
	kernels simd.Kernels
	cells   []channelCell
}

// NewMeter builds a Meter for channelCount channels with RMS time
// constant tau (§6 meter.rms_tau), using kernels for the block-local
// sum-of-squares pass.
func NewMeter(channelCount int, tau float64, kernels simd.Kernels) *Meter {
	return &Meter{
		tau:     float32(tau),
		kernels: kernels,
		cells:   make([]channelCell, channelCount),
	}
}

// Update scans block once in plain Go for peak-absolute and once through
// the SquareAccumulate kernel for sum-of-squares, then folds the result
// into channel's atomic cells via
// compare-and-exchange-weak-style retry loops (plain CAS loops; Go has no
// distinct "weak" CAS, so every retry re-reads and re-computes).
func (m *Meter) Update(block []float32, channel int) {
	if channel < 0 || channel >= len(m.cells) || len(block) == 0 {
		return
	}

	var blockPeak float32
	for _, v := range block {
		av := v
		if av < 0 {
			av = -av
		}
		if av > blockPeak {
			blockPeak = av
		}
	}
	sumSquares := m.kernels.SquareAccumulate(block)
	blockRMS := float32(math.Sqrt(sumSquares / float64(len(block))))

	cell := &m.cells[channel]
	casPeak(&cell.peak, blockPeak)
	casRMS(&cell.rms, blockRMS, m.tau)
}

func casPeak(cell *atomic.Uint32, blockPeak float32) {
	for {
		old := cell.Load()
		oldPeak := math.Float32frombits(old)
		if blockPeak <= oldPeak {
			return
		}
		if cell.CompareAndSwap(old, math.Float32bits(blockPeak)) {
			return
		}
	}
}

func casRMS(cell *atomic.Uint32, blockRMS, tau float32) {
	for {
		old := cell.Load()
		oldRMS := math.Float32frombits(old)
		next := tau*oldRMS + (1-tau)*blockRMS
		if cell.CompareAndSwap(old, math.Float32bits(next)) {
			return
		}
	}
}

// Snapshot reads every channel's atomic cells with relaxed ordering. It
// may observe per-channel values that are self-consistent but
// cross-channel values skewed by at most one block — acceptable, since
// the meter is a display aid, not a control input (§4.4).
func (m *Meter) Snapshot() []Snapshot {
	out := make([]Snapshot, len(m.cells))
	for i := range m.cells {
		out[i] = Snapshot{
			Peak: math.Float32frombits(m.cells[i].peak.Load()),
			RMS:  math.Float32frombits(m.cells[i].rms.Load()),
		}
	}
	return out
}

// Reset clears every channel's peak atomically. RMS is left running
// since it is a continuous estimate, not a hold value.
func (m *Meter) Reset() {
	for i := range m.cells {
		m.cells[i].peak.Store(0)
	}
}
