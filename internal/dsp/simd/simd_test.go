package simd

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func randomFloat32Slice(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rand.Float64()*2 - 1)
	}
	return out
}

func allKernelTables() map[string]Kernels {
	return map[string]Kernels{
		"scalar": scalarKernels(),
		"sse":    sseKernels(),
		"avx2":   avx2Kernels(),
	}
}

func TestKernelParityVectorAdd(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 3, 4, 7, 8, 17, 100} {
		a := randomFloat32Slice(n)
		b := randomFloat32Slice(n)
		want := make([]float32, n)
		scalarVectorAdd(want, a, b)

		for name, k := range allKernelTables() {
			got := make([]float32, n)
			k.VectorAdd(got, a, b)
			assert.Equal(t, want, got, "kernel=%s n=%d", name, n)
		}
	}
}

func TestKernelParityScalarMultiply(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 4, 9, 16, 33} {
		src := randomFloat32Slice(n)
		want := make([]float32, n)
		scalarScalarMultiply(want, src, 1.5)

		for name, k := range allKernelTables() {
			got := make([]float32, n)
			k.ScalarMultiply(got, src, 1.5)
			assert.Equal(t, want, got, "kernel=%s n=%d", name, n)
		}
	}
}

func TestKernelParityAbsValue(t *testing.T) {
	t.Parallel()

	src := []float32{-1, 2, -3, 4, -5, 6, -7, 8, -9, 10}
	want := make([]float32, len(src))
	scalarAbsValue(want, src)

	for name, k := range allKernelTables() {
		got := make([]float32, len(src))
		k.AbsValue(got, src)
		assert.Equal(t, want, got, "kernel=%s", name)
	}
}

func TestKernelParitySquareAccumulate(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 7, 8, 9, 31, 32, 33} {
		src := randomFloat32Slice(n)
		want := scalarSquareAccumulate(src)

		for name, k := range allKernelTables() {
			got := k.SquareAccumulate(src)
			assert.InDelta(t, want, got, 1e-6, "kernel=%s n=%d", name, n)
		}
	}
}

func TestKernelParityUnpackGainOffset(t *testing.T) {
	t.Parallel()

	src := make([]byte, 20)
	for i := range src {
		src[i] = byte(i * 7)
	}
	want := make([]float32, len(src))
	scalarUnpackGainOffset(want, src, 2.0, -1.0)

	for name, k := range allKernelTables() {
		got := make([]float32, len(src))
		k.UnpackGainOffset(got, src, 2.0, -1.0)
		assert.Equal(t, want, got, "kernel=%s", name)
	}
}

func TestKernelParityMagnitudeToDB(t *testing.T) {
	t.Parallel()

	src := []float64{0, 1e-15, 0.001, 1, 1000}
	want := make([]float64, len(src))
	scalarMagnitudeToDB(want, src, -120)

	for name, k := range allKernelTables() {
		got := make([]float64, len(src))
		k.MagnitudeToDB(got, src, -120)
		for i := range got {
			assert.InDelta(t, want[i], got[i], 1e-9, "kernel=%s idx=%d", name, i)
		}
	}
}

func TestMagnitudeToDBFloor(t *testing.T) {
	t.Parallel()

	src := []float64{0}
	dst := make([]float64, 1)
	scalarMagnitudeToDB(dst, src, -120)
	assert.Equal(t, -120.0, dst[0])
}

func TestDetectSelectsConsistentLevel(t *testing.T) {
	t.Parallel()

	c := Detect()
	k := NewKernels(c)
	assert.Equal(t, c.Level, k.Level)
	assert.NotNil(t, k.VectorAdd)
	assert.NotNil(t, k.MagnitudeToDB)
}

func TestDefaultKernelsNotNaN(t *testing.T) {
	t.Parallel()

	k := DefaultKernels()
	src := []float32{1, 2, 3}
	sum := k.SquareAccumulate(src)
	assert.False(t, math.IsNaN(sum))
}
