package malgo

import (
	"encoding/binary"
	"math"
)

// interleaveF32 packs n frames from planar float32 channels into an
// interleaved little-endian IEEE-754 byte buffer, the format malgo's
// playback callback expects.
func interleaveF32(dst []byte, planar [][]float32, n int) {
	channels := len(planar)
	need := n * channels * 4
	if len(dst) < need {
		return
	}
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 4
			binary.LittleEndian.PutUint32(dst[off:off+4], math.Float32bits(planar[ch][i]))
		}
	}
}

// deinterleaveF32 unpacks an interleaved little-endian IEEE-754 byte buffer
// into n frames of planar float32, one slice per channel.
func deinterleaveF32(planar [][]float32, src []byte, n int) {
	channels := len(planar)
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 4
			if off+4 > len(src) {
				return
			}
			planar[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(src[off : off+4]))
		}
	}
}
