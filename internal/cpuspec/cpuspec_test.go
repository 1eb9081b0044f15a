package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCoresIntel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i7-13700K", 8},
		{"14th Gen Intel(R) Core(TM) i5-14600K", 6},
		{"Intel(R) Core(TM) Ultra 9 Processor 285", 8},
		{"Intel(R) Core(TM) Ultra 5 Processor 225", 4},
		{"AMD Ryzen 9 7950X 16-Core Processor", 0},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, determinePerformanceCores(c.brand), c.brand)
	}
}

func TestDeterminePerformanceCoresAppleSilicon(t *testing.T) {
	t.Parallel()

	cases := []struct {
		brand string
		want  int
	}{
		{"Apple M1", 4},
		{"Apple M1 Pro", 8},
		{"Apple M2 Max", 12},
		{"Apple M3 Ultra", 24},
		{"Apple M4", 6},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, determinePerformanceCores(c.brand), c.brand)
	}
}

func TestDeterminePerformanceCoresUnknownBrandReturnsZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, determinePerformanceCores("some unrecognized CPU brand string"))
}

func TestRenderWorkerBudgetNeverExceedsAvailableCPUs(t *testing.T) {
	t.Parallel()

	spec := GetCPUSpec()
	assert.GreaterOrEqual(t, spec.RenderWorkerBudget(), 1)
	assert.LessOrEqual(t, spec.RenderWorkerBudget(), runtime.NumCPU())
}

func TestRenderWorkerBudgetPrefersPerformanceCoresWhenDetected(t *testing.T) {
	t.Parallel()

	spec := CPUSpec{BrandName: "Apple M1 Pro", PerformanceCores: 8}
	budget := spec.RenderWorkerBudget()
	assert.LessOrEqual(t, budget, 8)
	assert.GreaterOrEqual(t, budget, 1)
}
