package simd

import "math"

// sseKernels unrolls by 4, matching SSE's 128-bit/float32 lane width. The
// Go compiler vectorizes these loops on amd64 targets that support SSE2;
// the unroll factor alone buys most of the benefit over the scalar table
// without hand-written assembly.
func sseKernels() Kernels {
	return Kernels{
		Level:            LevelSSE,
		VectorAdd:        sseVectorAdd,
		ScalarMultiply:   sseScalarMultiply,
		AbsValue:         sseAbsValue,
		SquareAccumulate: sseSquareAccumulate,
		UnpackGainOffset: sseUnpackGainOffset,
		MagnitudeToDB:    sseMagnitudeToDB,
	}
}

const sseWidth = 4

func sseVectorAdd(dst, a, b []float32) {
	n := min(len(dst), len(a), len(b))
	i := 0
	for ; i+sseWidth <= n; i += sseWidth {
		dst[i] = a[i] + b[i]
		dst[i+1] = a[i+1] + b[i+1]
		dst[i+2] = a[i+2] + b[i+2]
		dst[i+3] = a[i+3] + b[i+3]
	}
	for ; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

func sseScalarMultiply(dst, src []float32, scalar float32) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+sseWidth <= n; i += sseWidth {
		dst[i] = src[i] * scalar
		dst[i+1] = src[i+1] * scalar
		dst[i+2] = src[i+2] * scalar
		dst[i+3] = src[i+3] * scalar
	}
	for ; i < n; i++ {
		dst[i] = src[i] * scalar
	}
}

func sseAbsValue(dst, src []float32) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+sseWidth <= n; i += sseWidth {
		for j := 0; j < sseWidth; j++ {
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

func sseSquareAccumulate(src []float32) float64 {
	n := len(src)
	i := 0
	var s0, s1, s2, s3 float64
	for ; i+sseWidth <= n; i += sseWidth {
		f0, f1, f2, f3 := float64(src[i]), float64(src[i+1]), float64(src[i+2]), float64(src[i+3])
		s0 += f0 * f0
		s1 += f1 * f1
		s2 += f2 * f2
		s3 += f3 * f3
	}
	sum := s0 + s1 + s2 + s3
	for ; i < n; i++ {
		f := float64(src[i])
		sum += f * f
	}
	return sum
}

func sseUnpackGainOffset(dst []float32, src []byte, gain, offset float32) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+sseWidth <= n; i += sseWidth {
		dst[i] = float32(src[i])*gain + offset
		dst[i+1] = float32(src[i+1])*gain + offset
		dst[i+2] = float32(src[i+2])*gain + offset
		dst[i+3] = float32(src[i+3])*gain + offset
	}
	for ; i < n; i++ {
		dst[i] = float32(src[i])*gain + offset
	}
}

func sseMagnitudeToDB(dst, src []float64, floorDB float64) {
	n := min(len(dst), len(src))
	i := 0
	for ; i+sseWidth <= n; i += sseWidth {
		for j := 0; j < sseWidth; j++ {
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
