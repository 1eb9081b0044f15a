//go:build !js

package contextshim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/contextshim/malgo"
	"github.com/tphakala/audiocore/internal/errors"
)

// nativeShim is the non-WASM Shim backed by a single shared malgo.Stream.
// EnsureInitialized is idempotent: the first caller opens the device, every
// later caller observes the same Handle. There is no main-thread
// restriction on native targets. Initialization runs at most once per
// process: if the first attempt fails, every later call returns that same
// error, and once the handle's last reference is closed, later calls return
// that closed handle rather than reopening the device.
type nativeShim struct {
	once    sync.Once
	initErr error
	handle  *nativeHandle
}

var defaultShim nativeShim

// NewShim returns the process-wide native audio context shim.
func NewShim() Shim {
	return &defaultShim
}

func (s *nativeShim) EnsureInitialized(ctx context.Context, sampleRate, channelCount, blockSize int) (Handle, error) {
	s.once.Do(func() {
		s.handle = &nativeHandle{
			sampleRate: sampleRate,
			channels:   channelCount,
			blockSize:  blockSize,
			refs:       0,
		}
		s.handle.state.Store(int32(Initializing))

		stream := malgo.NewStream(malgo.StreamConfig{
			SampleRate:   uint32(sampleRate),
			Channels:     uint8(channelCount),
			BufferFrames: uint32(blockSize),
		})
		s.handle.stream = stream

		if err := stream.Start(); err != nil {
			s.handle.state.Store(int32(Closed))
			s.initErr = errors.New(err).
				Component("contextshim").
				Category(errors.CategoryPlatform).
				Context("operation", "ensure_initialized").
				Build()
			return
		}
		s.handle.state.Store(int32(Ready))
	})

	if s.initErr != nil {
		return nil, s.initErr
	}
	s.handle.Retain()
	return s.handle, nil
}

func (s *nativeShim) Get() (Handle, error) {
	if s.handle == nil || State(s.handle.state.Load()) == Uninitialized {
		return nil, errNotInitialized("contextshim")
	}
	if State(s.handle.state.Load()) == Closed {
		return nil, errClosed("contextshim")
	}
	s.handle.Retain()
	return s.handle, nil
}

// nativeHandle is a reference-counted Handle wrapping one malgo.Stream.
// The underlying stream is stopped only when the reference count reaches
// zero, so multiple pipeline components can share one audio device.
type nativeHandle struct {
	sampleRate int
	channels   int
	blockSize  int

	stream *malgo.Stream

	mu    sync.Mutex
	refs  int
	state atomic.Int32
}

func (h *nativeHandle) SampleRate() int    { return h.sampleRate }
func (h *nativeHandle) ChannelCount() int  { return h.channels }
func (h *nativeHandle) BlockSize() int     { return h.blockSize }
func (h *nativeHandle) State() State       { return State(h.state.Load()) }

func (h *nativeHandle) SetRenderFunc(fn RenderFunc) {
	if fn == nil {
		h.stream.SetRenderFunc(nil)
		return
	}
	h.stream.SetRenderFunc(func(output [][]float32, blockLength int) {
		fn(output, blockLength)
	})
}

func (h *nativeHandle) Retain() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs++
}

func (h *nativeHandle) Close() error {
	h.mu.Lock()
	h.refs--
	remaining := h.refs
	h.mu.Unlock()

	if remaining > 0 {
		return nil
	}

	h.state.Store(int32(Closed))
	return h.stream.Stop()
}
