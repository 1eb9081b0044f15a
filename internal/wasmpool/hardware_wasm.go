//go:build js && wasm

package wasmpool

import (
	"runtime"
	"syscall/js"
)

// hardwareParallelism reads navigator.hardwareConcurrency when present,
// falling back to runtime.NumCPU (Go's wasm runtime sets GOMAXPROCS from
// the same browser-reported value when threads are enabled).
func hardwareParallelism() int {
	nav := js.Global().Get("navigator")
	if nav.IsUndefined() || nav.IsNull() {
		return runtime.NumCPU()
	}
	hc := nav.Get("hardwareConcurrency")
	if hc.IsUndefined() || hc.IsNull() {
		return runtime.NumCPU()
	}
	n := hc.Int()
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// sharedMemoryAvailable reports whether the page has SharedArrayBuffer and
// cross-origin isolation, the two preconditions for a real multi-worker
// pool (§4.8). Absent either, the pool degrades to single-threaded inline
// submission.
func sharedMemoryAvailable() bool {
	global := js.Global()

	sab := global.Get("SharedArrayBuffer")
	if sab.IsUndefined() || sab.IsNull() {
		return false
	}

	isolated := global.Get("crossOriginIsolated")
	if isolated.IsUndefined() || isolated.IsNull() {
		return false
	}
	return isolated.Bool()
}
