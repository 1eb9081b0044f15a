package levelmeter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/audiocore/internal/dsp/simd"
)

func testKernels() simd.Kernels {
	return simd.NewKernels(simd.Capability{Level: simd.LevelScalar})
}

func TestUpdatePeakTracksMaximum(t *testing.T) {
	t.Parallel()

	m := NewMeter(1, 0.9, testKernels())
	m.Update([]float32{0.1, -0.5, 0.3}, 0)
	m.Update([]float32{0.05, 0.05}, 0)

	snap := m.Snapshot()
	assert.InDelta(t, 0.5, snap[0].Peak, 1e-6, "peak must hold the max across blocks")
}

func TestResetClearsPeakNotRMS(t *testing.T) {
	t.Parallel()

	m := NewMeter(1, 0.5, testKernels())
	m.Update([]float32{1, 1, 1, 1}, 0)
	before := m.Snapshot()[0]
	assert.Greater(t, before.RMS, float32(0))

	m.Reset()
	after := m.Snapshot()[0]
	assert.Equal(t, float32(0), after.Peak)
	assert.Equal(t, before.RMS, after.RMS)
}

func TestUpdateOutOfRangeChannelNoPanic(t *testing.T) {
	t.Parallel()

	m := NewMeter(1, 0.9, testKernels())
	assert.NotPanics(t, func() {
		m.Update([]float32{1, 2, 3}, 5)
	})
}

func TestUpdateEmptyBlockNoPanic(t *testing.T) {
	t.Parallel()

	m := NewMeter(1, 0.9, testKernels())
	assert.NotPanics(t, func() {
		m.Update(nil, 0)
	})
}

func TestRMSConvergesTowardConstantSignal(t *testing.T) {
	t.Parallel()

	m := NewMeter(1, 0.5, testKernels())
	block := make([]float32, 512)
	for i := range block {
		block[i] = 1
	}

	for i := 0; i < 50; i++ {
		m.Update(block, 0)
	}

	snap := m.Snapshot()
	assert.InDelta(t, 1.0, snap[0].RMS, 0.01)
}

func TestConcurrentUpdateDifferentChannelsNoRace(t *testing.T) {
	t.Parallel()

	m := NewMeter(4, 0.9, testKernels())
	var wg sync.WaitGroup
	for ch := 0; ch < 4; ch++ {
		wg.Add(1)
		go func(ch int) {
			defer wg.Done()
			block := make([]float32, 128)
			for i := range block {
				block[i] = float32(ch) * 0.1
			}
			for i := 0; i < 100; i++ {
				m.Update(block, ch)
			}
		}(ch)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Len(t, snap, 4)
}
