package simd

import "math"

// avx2Kernels unrolls by 8, matching AVX2's 256-bit/float32 lane width.
func avx2Kernels() Kernels {
	return Kernels{
		Level:            LevelAVX2,
		VectorAdd:        avx2VectorAdd,
		ScalarMultiply:   avx2ScalarMultiply,
		AbsValue:         avx2AbsValue,
		SquareAccumulate: avx2SquareAccumulate,
		UnpackGainOffset: avx2UnpackGainOffset,
		MagnitudeToDB:    avx2MagnitudeToDB,
	}
}

const avx2Width = 8

func avx2VectorAdd(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	i := 0
	for ; i+avx2Width <= n; i += avx2Width {
		for j := 0; j < avx2Width; j++ {
			dst[i+j] = a[i+j] + b[i+j]
		}
	}
	for ; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

func avx2ScalarMultiply(dst, src []float32, scalar float32) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+avx2Width <= n; i += avx2Width {
		for j := 0; j < avx2Width; j++ {
			dst[i+j] = src[i+j] * scalar
		}
	}
	for ; i < n; i++ {
		dst[i] = src[i] * scalar
	}
}

func avx2AbsValue(dst, src []float32) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+avx2Width <= n; i += avx2Width {
		for j := 0; j < avx2Width; j++ {
			v := src[i+j]
			if v < 0 {
				v = -v
			}
			dst[i+j] = v
		}
	}
	for ; i < n; i++ {
		v := src[i]
		if v < 0 {
			v = -v
		}
		dst[i] = v
	}
}

func avx2SquareAccumulate(src []float32) float64 {
	n := len(src)
	i := 0
	var acc [avx2Width]float64
	for ; i+avx2Width <= n; i += avx2Width {
		for j := 0; j < avx2Width; j++ {
			f := float64(src[i+j])
			acc[j] += f * f
		}
	}
	var sum float64
	for _, v := range acc {
		sum += v
	}
	for ; i < n; i++ {
		f := float64(src[i])
		sum += f * f
	}
	return sum
}

func avx2UnpackGainOffset(dst []float32, src []byte, gain, offset float32) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+avx2Width <= n; i += avx2Width {
		for j := 0; j < avx2Width; j++ {
			dst[i+j] = float32(src[i+j])*gain + offset
		}
	}
	for ; i < n; i++ {
		dst[i] = float32(src[i])*gain + offset
	}
}

func avx2MagnitudeToDB(dst, src []float64, floorDB float64) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+avx2Width <= n; i += avx2Width {
		for j := 0; j < avx2Width; j++ {
			db := 20 * math.Log10(src[i+j]+dbEpsilon)
			if db < floorDB {
				db = floorDB
			}
			dst[i+j] = db
		}
	}
	for ; i < n; i++ {
		db := 20 * math.Log10(src[i]+dbEpsilon)
		if db < floorDB {
			db = floorDB
		}
		dst[i] = db
	}
}
