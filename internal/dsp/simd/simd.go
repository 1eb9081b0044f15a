// Package simd selects and dispatches portable vector kernels based on the
// host CPU's feature set. Detection runs once at pipeline construction;
// the resulting Kernels value is a fixed set of function pointers with no
// further runtime branching on the audio thread.
//
// There is no inline assembly here: the "AVX2"/"SSE" kernels are
// loop-unrolled pure Go tuned to those instruction widths, which the Go
// compiler's auto-vectorizing backend and branch predictor exploit
// without requiring hand-written intrinsics.
package simd

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Level names the kernel family selected for this process.
type Level int

const (
	LevelScalar Level = iota
	LevelSSE
	LevelAVX2
)

func (l Level) String() string {
	switch l {
	case LevelAVX2:
		return "avx2"
	case LevelSSE:
		return "sse"
	default:
		return "scalar"
	}
}

// Capability records what the detected host supports. NEON is reported
// for diagnostics but always dispatches to the scalar kernel family: no
// NEON-tuned unroll width has been validated against the corpus this
// package is grounded on, so ARM targets get the portable baseline
// rather than a guessed width.
type Capability struct {
	Level Level
	AVX2  bool
	SSE2  bool
	NEON  bool
}

var (
	detectOnce sync.Once
	detected   Capability
)

// Detect probes the running CPU via cpuid.CPU on its first call and
// returns that same Capability record, to build a Kernels table from, on
// every call.
func Detect() Capability {
	detectOnce.Do(func() { detected = detect() })
	return detected
}

func detect() Capability {
	if runtime.GOARCH == "arm64" || runtime.GOARCH == "arm" {
		return Capability{Level: LevelScalar, NEON: cpuid.CPU.Supports(cpuid.ASIMD)}
	}

	c := Capability{
		AVX2: cpuid.CPU.Supports(cpuid.AVX2),
		SSE2: cpuid.CPU.Supports(cpuid.SSE2),
	}
	switch {
	case c.AVX2:
		c.Level = LevelAVX2
	case c.SSE2:
		c.Level = LevelSSE
	default:
		c.Level = LevelScalar
	}
	return c
}

// Kernels is a fixed table of vector primitives chosen once for the
// detected Capability. All functions operate on equal-length slices and
// the caller owns allocation; none of them allocate.
type Kernels struct {
	Level Level

	// VectorAdd computes dst[i] = a[i] + b[i].
	VectorAdd func(dst, a, b []float32)
	// ScalarMultiply computes dst[i] = src[i] * scalar.
	ScalarMultiply func(dst, src []float32, scalar float32)
	// AbsValue computes dst[i] = abs(src[i]).
	AbsValue func(dst, src []float32)
	// SquareAccumulate returns the sum of src[i]*src[i], used by the
	// level meter's RMS accumulation.
	SquareAccumulate func(src []float32) float64
	// UnpackGainOffset converts packed byte samples to float32, applying
	// dst[i] = float32(src[i])*gain + offset. Used by the spectrum
	// analyzer's legacy 8-bit magnitude feed (DecodeLegacyFrame).
	UnpackGainOffset func(dst []float32, src []byte, gain, offset float32)
	// MagnitudeToDB converts linear FFT magnitudes to dB with a floor,
	// dst[i] = max(floorDB, 20*log10(src[i]+epsilon)).
	MagnitudeToDB func(dst, src []float64, floorDB float64)
}

// NewKernels builds the Kernels table for the given Capability. Called
// once per pipeline construction; the returned table is immutable and
// safe for concurrent use by any number of goroutines.
func NewKernels(cap Capability) Kernels {
	switch cap.Level {
	case LevelAVX2:
		return avx2Kernels()
	case LevelSSE:
		return sseKernels()
	default:
		return scalarKernels()
	}
}

// DefaultKernels detects the host capability and builds its table in one
// call, the common case for non-test callers.
func DefaultKernels() Kernels {
	return NewKernels(Detect())
}
