//go:build !js

package wasmpool

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// hardwareParallelism reports the logical core count. Native builds have no
// SharedArrayBuffer/cross-origin-isolation concept, so sharedMemoryAvailable
// is always true here — this path exists so cmd/corebench can exercise the
// pool's sizing and degrade logic without a browser.
func hardwareParallelism() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func sharedMemoryAvailable() bool { return true }
