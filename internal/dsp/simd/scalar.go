package simd

import "math"

// scalarKernels is the portable baseline: no unrolling, correct on any
// architecture including NEON targets that fall back here.
func scalarKernels() Kernels {
	return Kernels{
		Level:            LevelScalar,
		VectorAdd:        scalarVectorAdd,
		ScalarMultiply:   scalarScalarMultiply,
		AbsValue:         scalarAbsValue,
		SquareAccumulate: scalarSquareAccumulate,
		UnpackGainOffset: scalarUnpackGainOffset,
		MagnitudeToDB:    scalarMagnitudeToDB,
	}
}

func scalarVectorAdd(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	for i := 0; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

func scalarScalarMultiply(dst, src []float32, scalar float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = src[i] * scalar
	}
}

func scalarAbsValue(dst, src []float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		v := src[i]
		if v < 0 {
			v = -v
		}
		dst[i] = v
	}
}

func scalarSquareAccumulate(src []float32) float64 {
	var sum float64
	for _, v := range src {
		f := float64(v)
		sum += f * f
	}
	return sum
}

func scalarUnpackGainOffset(dst []float32, src []byte, gain, offset float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = float32(src[i])*gain + offset
	}
}

const dbEpsilon = 1e-12

func scalarMagnitudeToDB(dst, src []float64, floorDB float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		db := 20 * math.Log10(src[i]+dbEpsilon)
		if db < floorDB {
			db = floorDB
		}
		dst[i] = db
	}
}
