//go:build js && wasm

package contextshim

import (
	"context"
	"sync"
	"sync/atomic"
)

// wasmShim is the browser Shim. The underlying AudioContext can only be
// created on the main thread (§4.6), so EnsureInitialized rejects any
// caller whose context was not marked by WithMainThread. Audio worklets
// and other workers must call Get instead, which returns the handle the
// main thread already published.
type wasmShim struct {
	mu       sync.Mutex
	handle   *wasmHandle
	inited   bool
}

var defaultWasmShim wasmShim

// NewShim returns the process-wide WASM audio context shim.
func NewShim() Shim {
	return &defaultWasmShim
}

func (s *wasmShim) EnsureInitialized(ctx context.Context, sampleRate, channelCount, blockSize int) (Handle, error) {
	if !isMainThread(ctx) {
		return nil, errWrongThread("contextshim")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inited && State(s.handle.state.Load()) != Closed {
		s.handle.Retain()
		return s.handle, nil
	}

	s.handle = &wasmHandle{
		sampleRate: sampleRate,
		channels:   channelCount,
		blockSize:  blockSize,
		refs:       1,
	}
	s.handle.state.Store(int32(Ready))
	s.inited = true
	return s.handle, nil
}

func (s *wasmShim) Get() (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited {
		return nil, errNotInitialized("contextshim")
	}
	if State(s.handle.state.Load()) == Closed {
		return nil, errClosed("contextshim")
	}
	s.handle.Retain()
	return s.handle, nil
}

// wasmHandle represents the shared browser AudioContext. The actual
// context lives in host JS glue reached via syscall/js from the pipeline
// package; this handle only tracks lifecycle and the installed render
// callback, since contextshim itself has no audio-rendering logic.
type wasmHandle struct {
	sampleRate int
	channels   int
	blockSize  int

	mu     sync.Mutex
	render RenderFunc
	refs   int
	state  atomic.Int32
}

func (h *wasmHandle) SampleRate() int   { return h.sampleRate }
func (h *wasmHandle) ChannelCount() int { return h.channels }
func (h *wasmHandle) BlockSize() int    { return h.blockSize }
func (h *wasmHandle) State() State      { return State(h.state.Load()) }

func (h *wasmHandle) SetRenderFunc(fn RenderFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.render = fn
}

func (h *wasmHandle) Retain() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs++
}

func (h *wasmHandle) Close() error {
	h.mu.Lock()
	h.refs--
	remaining := h.refs
	h.mu.Unlock()

	if remaining > 0 {
		return nil
	}
	h.state.Store(int32(Closed))
	return nil
}
