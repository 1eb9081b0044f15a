// Package contextshim owns creation and reuse of the host audio output
// context. Two build-tagged variants share this contract: native.go (any
// non-wasm target) and wasm.go (js/wasm), selected automatically by the Go
// toolchain.
package contextshim

import (
	"context"

	"github.com/tphakala/audiocore/internal/errors"
)

// State is the context lifecycle state machine (§4.6).
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// RenderFunc is the pipeline's render entry point, invoked by the native
// backend's audio callback or by the host's WASM audio worklet glue.
// output is planar, one slice per channel, each exactly blockLength long.
type RenderFunc func(output [][]float32, blockLength int)

// Handle is a reference-counted audio output context. All clones returned
// by ensure_initialized / Get observe the same underlying context; the last
// drop closes the host context idempotently.
type Handle interface {
	// SampleRate returns the negotiated sample rate.
	SampleRate() int
	// ChannelCount returns the negotiated channel count.
	ChannelCount() int
	// BlockSize returns the negotiated render block length.
	BlockSize() int
	// SetRenderFunc installs the callback the native backend invokes for
	// every audio block. Safe to call before or after the stream starts.
	SetRenderFunc(fn RenderFunc)
	// Retain increments the handle's reference count.
	Retain()
	// Close decrements the reference count; on reaching zero it closes the
	// underlying host context idempotently.
	Close() error
	// State reports the current lifecycle state.
	State() State
}

// Shim is the two-variant contract (§4.6): ensure_initialized idempotently
// creates or returns the shared Handle.
type Shim interface {
	EnsureInitialized(ctx context.Context, sampleRate, channelCount, blockSize int) (Handle, error)
	Get() (Handle, error)
}

// mainThreadKey marks a context.Context as originating from the host's
// main thread. On native targets this is irrelevant (EnsureInitialized has
// no thread restriction); on WASM it is the only way EnsureInitialized can
// tell a main-thread caller from a worker caller, since portable Go has no
// direct "am I the browser main thread" primitive. The host entry point
// (the WASM bootstrap glue) must call
// WithMainThread(ctx) once before anything else touches the shim.
type mainThreadKeyType struct{}

var mainThreadKey mainThreadKeyType

// WithMainThread marks ctx as originating from the host's main thread.
func WithMainThread(ctx context.Context) context.Context {
	return context.WithValue(ctx, mainThreadKey, true)
}

// isMainThread reports whether ctx was marked by WithMainThread.
func isMainThread(ctx context.Context) bool {
	v, _ := ctx.Value(mainThreadKey).(bool)
	return v
}

func errWrongThread(component string) error {
	return errors.New(nil).
		Component(component).
		Category(errors.CategoryState).
		Context("error", "ensure_initialized called off the main thread").
		Build()
}

func errNotInitialized(component string) error {
	return errors.New(nil).
		Component(component).
		Category(errors.CategoryState).
		Context("error", "get called before the main thread published the shared handle").
		Build()
}

func errClosed(component string) error {
	return errors.New(nil).
		Component(component).
		Category(errors.CategoryState).
		Context("error", "shim is closed").
		Build()
}
