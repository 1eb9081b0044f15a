package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestValidateBlockSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"power of two canonical", 512, false},
		{"minimum", 64, false},
		{"maximum", 4096, false},
		{"not power of two", 500, true},
		{"below range", 32, true},
		{"above range", 8192, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			cfg.Audio.BlockSize = tc.size
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEQBandFrequencyRange(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Audio.SampleRate = 48000
	cfg.EQ.Bands[0].CenterHz = 30000 // above Nyquist (24000)
	assert.Error(t, cfg.Validate())
}

func TestValidateFFTSizeEnum(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Spectrum.FFTSize = 3000
	assert.Error(t, cfg.Validate())

	cfg.Spectrum.FFTSize = 1024
	assert.NoError(t, cfg.Validate())
}

func TestValidateSmoothingAlphaRange(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Spectrum.SmoothingAlpha = 0
	assert.Error(t, cfg.Validate())

	cfg.Spectrum.SmoothingAlpha = 1.5
	assert.Error(t, cfg.Validate())

	cfg.Spectrum.SmoothingAlpha = 1.0
	assert.NoError(t, cfg.Validate())
}

func TestValidateWindowEnum(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Spectrum.Window = "triangular"
	assert.Error(t, cfg.Validate())
}

func TestDefaultBandsAreCanonical(t *testing.T) {
	t.Parallel()

	cfg := Default()
	want := []float64{60, 170, 310, 600, 1000, 3000, 6000, 12000}
	for i, b := range cfg.EQ.Bands {
		assert.InDelta(t, want[i], b.CenterHz, 1e-9)
		assert.InDelta(t, 0.0, b.GainDB, 1e-9)
	}
}
