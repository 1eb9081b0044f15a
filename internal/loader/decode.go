package loader

import (
	"bytes"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/audiocore/internal/errors"
)

// DecodedArtifact is the result of a completed load: planar float32 samples
// at the file's native sample rate and channel count.
type DecodedArtifact struct {
	Fingerprint string
	SampleRate  int
	Channels    int
	Samples     [][]float32 // Samples[ch] holds that channel's full run
}

func (d *DecodedArtifact) frameCount() int {
	if len(d.Samples) == 0 {
		return 0
	}
	return len(d.Samples[0])
}

// decodeProgress reports the fraction of the input bytes consumed, used to drive
// the (0.5, 1.0] half of a load's progress_sink calls.
type decodeProgress func(fraction float64)

// decodeWAV streams r through go-audio/wav's PCM decoder, converting each
// sample to float32 and deinterleaving into per-channel slices. The int-to-
// float32 divisor follows the decoder's reported bit depth exactly as the
// teacher's BirdNet ingestion path does. Progress is reported as bytes
// consumed from r versus r's total length, since go-audio/wav exposes no
// total-frame count up front.
func decodeWAV(r *bytes.Reader, onProgress decodeProgress) (*DecodedArtifact, error) {
	totalBytes := r.Len()

	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New(errNotValidWAV).Component("loader").Category(errors.CategoryIO).Build()
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}

	var divisor float32
	switch decoder.BitDepth {
	case 16:
		divisor = 32768.0
	case 24:
		divisor = 8388608.0
	case 32:
		divisor = 2147483648.0
	default:
		return nil, errors.New(errUnsupportedBitDepth).Component("loader").Category(errors.CategoryIO).
			Context("bit_depth", decoder.BitDepth).Build()
	}

	out := make([][]float32, channels)

	const readFrames = 4096
	buf := &audio.IntBuffer{
		Data:   make([]int, readFrames*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, errors.IOError("loader", err)
		}
		if n == 0 {
			break
		}

		frames := n / channels
		for i := 0; i < frames; i++ {
			for ch := 0; ch < channels; ch++ {
				sample := buf.Data[i*channels+ch]
				out[ch] = append(out[ch], float32(sample)/divisor)
			}
		}

		if onProgress != nil && totalBytes > 0 {
			consumed := totalBytes - r.Len()
			onProgress(clamp01(float64(consumed) / float64(totalBytes)))
		}
	}

	return &DecodedArtifact{
		SampleRate: int(decoder.SampleRate),
		Channels:   channels,
		Samples:    out,
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

const (
	errNotValidWAV         = constError("input is not a valid WAV file")
	errUnsupportedBitDepth = constError("unsupported audio bit depth")
)

type constError string

func (e constError) Error() string { return string(e) }
