package malgo

import (
	"sync"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/errors"

	"github.com/gen2brain/malgo"
)

// RenderFunc fills output (planar, one slice per channel, blockLength
// samples each) for one playback callback.
type RenderFunc func(output [][]float32, blockLength int)

// StreamConfig configures a playback Stream.
type StreamConfig struct {
	DeviceName   string
	SampleRate   uint32
	Channels     uint8
	BufferFrames uint32
}

// Stream wraps a malgo playback device configured for 32-bit float planar
// output, bridging malgo's interleaved byte callback to a planar
// RenderFunc.
type Stream struct {
	config StreamConfig

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.RWMutex
	render  RenderFunc
	planar  [][]float32
	running atomic.Bool

	actualRate uint32
}

// NewStream allocates a Stream; it does not open the device until Start.
func NewStream(config StreamConfig) *Stream {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.Channels == 0 {
		config.Channels = 2
	}
	if config.BufferFrames == 0 {
		config.BufferFrames = 512
	}
	return &Stream{config: config}
}

// SetRenderFunc installs the callback invoked for every playback block.
// Safe to call before or after Start.
func (s *Stream) SetRenderFunc(fn RenderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render = fn
}

// SampleRate returns the rate negotiated with the device after Start.
func (s *Stream) SampleRate() uint32 {
	return atomic.LoadUint32(&s.actualRate)
}

// Start opens the playback device and begins invoking the render callback.
func (s *Stream) Start() error {
	if s.running.Load() {
		return errors.New(nil).
			Component("contextshim").
			Category(errors.CategoryState).
			Context("error", "stream already running").
			Build()
	}

	backends, err := backendsForPlatform()
	if err != nil {
		return err
	}
	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("operation", "init_context").
			Build()
	}
	s.ctx = ctx

	deviceInfo, err := s.findDevice()
	if err != nil {
		_ = ctx.Uninit()
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(s.config.Channels)
	deviceConfig.Playback.DeviceID = deviceInfo.ID.Pointer()
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.PeriodSizeInFrames = s.config.BufferFrames

	s.planar = make([][]float32, s.config.Channels)
	for i := range s.planar {
		s.planar[i] = make([]float32, s.config.BufferFrames)
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onData,
	})
	if err != nil {
		_ = ctx.Uninit()
		return errors.New(err).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("operation", "init_device").
			Build()
	}
	s.device = device
	s.actualRate = device.SampleRate()

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		return errors.New(err).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("operation", "start_device").
			Build()
	}

	s.running.Store(true)
	return nil
}

// Stop halts playback and releases the device and context.
func (s *Stream) Stop() error {
	if !s.running.Load() {
		return nil
	}
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx = nil
	}
	s.running.Store(false)
	return nil
}

// onData is malgo's interleaved-bytes callback; it sizes the planar
// scratch buffers to framecount, invokes the installed RenderFunc (or
// writes silence when none is installed), then interleaves the result into
// pOutputSamples.
func (s *Stream) onData(pOutputSamples, _ []byte, framecount uint32) {
	s.mu.RLock()
	render := s.render
	s.mu.RUnlock()

	channels := len(s.planar)
	n := int(framecount)
	for ch := 0; ch < channels; ch++ {
		if cap(s.planar[ch]) < n {
			s.planar[ch] = make([]float32, n)
		}
		s.planar[ch] = s.planar[ch][:n]
	}

	if render != nil {
		render(s.planar, n)
	} else {
		for ch := range s.planar {
			clear(s.planar[ch])
		}
	}

	interleaveF32(pOutputSamples, s.planar, n)
}

func (s *Stream) findDevice() (*malgo.DeviceInfo, error) {
	devices, err := s.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, errors.New(err).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("operation", "enumerate_devices").
			Build()
	}
	return SelectDevice(devices, s.config.DeviceName)
}
