// Package config defines the single configuration surface for the audio
// core: every option the host can set, and the validation that keeps an
// invalid edit from ever reaching a running pipeline.
package config

import (
	"fmt"
	"math/bits"

	"github.com/spf13/viper"

	"github.com/tphakala/audiocore/internal/cpuspec"
	"github.com/tphakala/audiocore/internal/errors"
	"github.com/tphakala/audiocore/internal/logging"
)

// WindowFunc selects the taper applied before the spectrum analyzer's FFT.
type WindowFunc string

const (
	WindowRectangular WindowFunc = "rectangular"
	WindowHann        WindowFunc = "hann"
	WindowHamming     WindowFunc = "hamming"
	WindowBlackman    WindowFunc = "blackman"
)

// Band is one parametric-EQ band.
type Band struct {
	CenterHz float64 `mapstructure:"center_hz" yaml:"center_hz"`
	GainDB   float64 `mapstructure:"gain_db"   yaml:"gain_db"`
	Q        float64 `mapstructure:"q"         yaml:"q"`
}

// AudioConfig covers the render block shape negotiated with the host.
type AudioConfig struct {
	BlockSize    int `mapstructure:"block_size"    yaml:"block_size"`
	SampleRate   int `mapstructure:"sample_rate"   yaml:"sample_rate"`
	ChannelCount int `mapstructure:"channel_count" yaml:"channel_count"`
}

// PoolConfig covers C1 BufferPool.
type PoolConfig struct {
	MaxOutstanding uint32 `mapstructure:"max_outstanding" yaml:"max_outstanding"`
	ZeroOnAcquire  bool   `mapstructure:"zero_on_acquire" yaml:"zero_on_acquire"`
}

// EQConfig covers C3 BiquadEngine. BypassUnityBands implements the
// "EQ at zero gain" open question as a configurable toggle (SPEC_FULL.md §9).
type EQConfig struct {
	Bands            [8]Band `mapstructure:"bands" yaml:"bands"`
	BypassUnityBands bool    `mapstructure:"bypass_unity_bands" yaml:"bypass_unity_bands"`
}

// SpectrumConfig covers C5 SpectrumAnalyzer. RunOnAudioThread implements the
// "spectrum placement" open question as a configurable toggle.
type SpectrumConfig struct {
	FFTSize          int        `mapstructure:"fft_size"          yaml:"fft_size"`
	SmoothingAlpha   float64    `mapstructure:"smoothing_alpha"   yaml:"smoothing_alpha"`
	Window           WindowFunc `mapstructure:"window"            yaml:"window"`
	RunOnAudioThread bool       `mapstructure:"run_on_audio_thread" yaml:"run_on_audio_thread"`
	MinFrameInterval int        `mapstructure:"min_frame_interval_blocks" yaml:"min_frame_interval_blocks"`
}

// MeterConfig covers C4 LevelMeter.
type MeterConfig struct {
	RMSTau float64 `mapstructure:"rms_tau" yaml:"rms_tau"`
}

// LoaderConfig covers C7 AsyncLoader.
type LoaderConfig struct {
	MaxFileBytes  uint64 `mapstructure:"max_file_bytes"  yaml:"max_file_bytes"`
	ChunkBytes    uint32 `mapstructure:"chunk_bytes"     yaml:"chunk_bytes"`
	TimeoutMS     uint32 `mapstructure:"timeout_ms"      yaml:"timeout_ms"`
	MaxConcurrent uint8  `mapstructure:"max_concurrent"  yaml:"max_concurrent"`
}

// CacheConfig covers C7 DecodeCache.
type CacheConfig struct {
	MaxEntries uint16 `mapstructure:"max_entries" yaml:"max_entries"`
	MaxBytes   uint64 `mapstructure:"max_bytes"   yaml:"max_bytes"`
}

// WorkersConfig covers C8 WorkerPool (WASM only; ignored on native builds).
type WorkersConfig struct {
	TargetCount uint8 `mapstructure:"target_count" yaml:"target_count"`
}

// LoggingConfig selects file-rotation behavior for internal/logging.
type LoggingConfig struct {
	Rotation   logging.RotationPolicy `mapstructure:"rotation"     yaml:"rotation"`
	MaxSizeMB  int                    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int                    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int                    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// Config is the single struct enumerating every recognized option (§6).
type Config struct {
	Audio    AudioConfig    `mapstructure:"audio"`
	Pool     PoolConfig     `mapstructure:"pool"`
	EQ       EQConfig       `mapstructure:"eq"`
	Spectrum SpectrumConfig `mapstructure:"spectrum"`
	Meter    MeterConfig    `mapstructure:"meter"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// optimalWorkerCount defaults workers.target_count to the host's
// performance-core count (falling back to logical cores on non-hybrid
// CPUs), the same heuristic the teacher used for its own thread-count
// default. wasmpool.clampWorkerCount applies the hard [1, 16] ceiling on
// top of this when the pool is initialized, so an unusually large core count
// here is harmless.
func optimalWorkerCount() uint8 {
	n := cpuspec.GetCPUSpec().RenderWorkerBudget()
	if n < 1 {
		return 1
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// canonicalBandHz are the default EQ center frequencies (§3).
var canonicalBandHz = [8]float64{60, 170, 310, 600, 1000, 3000, 6000, 12000}

// Default returns a Config populated with every default named in §4/§6.
func Default() *Config {
	cfg := &Config{
		Audio: AudioConfig{
			BlockSize:    512,
			SampleRate:   48000,
			ChannelCount: 2,
		},
		Pool: PoolConfig{
			MaxOutstanding: 64,
			ZeroOnAcquire:  false,
		},
		Spectrum: SpectrumConfig{
			FFTSize:          2048,
			SmoothingAlpha:   0.3,
			Window:           WindowHann,
			RunOnAudioThread: true,
			MinFrameInterval: 4,
		},
		Meter: MeterConfig{
			RMSTau: 0.9,
		},
		Loader: LoaderConfig{
			MaxFileBytes:  500 * 1024 * 1024,
			ChunkBytes:    64 * 1024,
			TimeoutMS:     30_000,
			MaxConcurrent: 4,
		},
		Cache: CacheConfig{
			MaxEntries: 50,
			MaxBytes:   512 * 1024 * 1024,
		},
		Workers: WorkersConfig{
			TargetCount: optimalWorkerCount(),
		},
		Logging: LoggingConfig{
			Rotation:   logging.RotationSize,
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
	for i := range cfg.EQ.Bands {
		cfg.EQ.Bands[i] = Band{CenterHz: canonicalBandHz[i], GainDB: 0, Q: 1.0}
	}
	return cfg
}

// Load reads configuration from v, overlaying it on Default(). v is expected
// to already have its file/env/flag sources configured by the caller
// (typically cmd/corebench via viper.BindPFlags).
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(fmt.Errorf("unmarshal config: %w", err)).
			Component("config").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces every range/enum constraint named in §6. The caller is
// responsible for keeping the previously valid configuration active when
// Validate fails (§7: "the previous valid configuration remains active").
func (c *Config) Validate() error {
	if !isPowerOfTwoInRange(c.Audio.BlockSize, 64, 4096) {
		return configError("audio.block_size", "must be a power of two in [64, 4096]", c.Audio.BlockSize)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return configError("audio.sample_rate", "must be in [8000, 192000]", c.Audio.SampleRate)
	}
	if c.Audio.ChannelCount < 1 || c.Audio.ChannelCount > 8 {
		return configError("audio.channel_count", "must be in [1, 8]", c.Audio.ChannelCount)
	}
	nyquist := float64(c.Audio.SampleRate) / 2
	for i, b := range c.EQ.Bands {
		if b.CenterHz <= 0 || b.CenterHz >= nyquist {
			return configError(fmt.Sprintf("eq.bands[%d].center_hz", i), "must be in (0, nyquist)", b.CenterHz)
		}
		if b.Q <= 0 {
			return configError(fmt.Sprintf("eq.bands[%d].q", i), "must be > 0", b.Q)
		}
	}
	switch c.Spectrum.FFTSize {
	case 512, 1024, 2048, 4096:
	default:
		return configError("spectrum.fft_size", "must be one of {512, 1024, 2048, 4096}", c.Spectrum.FFTSize)
	}
	if c.Spectrum.SmoothingAlpha <= 0 || c.Spectrum.SmoothingAlpha > 1 {
		return configError("spectrum.smoothing_alpha", "must be in (0.0, 1.0]", c.Spectrum.SmoothingAlpha)
	}
	switch c.Spectrum.Window {
	case WindowRectangular, WindowHann, WindowHamming, WindowBlackman:
	default:
		return configError("spectrum.window", "unrecognized window function", c.Spectrum.Window)
	}
	if c.Meter.RMSTau < 0 || c.Meter.RMSTau > 1 {
		return configError("meter.rms_tau", "must be in [0.0, 1.0]", c.Meter.RMSTau)
	}
	if c.Loader.MaxConcurrent == 0 {
		return configError("loader.max_concurrent", "must be >= 1", c.Loader.MaxConcurrent)
	}
	if c.Cache.MaxEntries == 0 {
		return configError("cache.max_entries", "must be >= 1", c.Cache.MaxEntries)
	}
	return nil
}

func isPowerOfTwoInRange(n, lo, hi int) bool {
	if n < lo || n > hi {
		return false
	}
	return bits.OnesCount(uint(n)) == 1
}

func configError(field, reason string, value any) error {
	return errors.Newf("%s: %s (got %v)", field, reason, value).
		Component("config").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
