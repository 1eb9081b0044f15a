package audiocore

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiocore/internal/config"
)

func testPool(maxOutstanding uint32) *BufferPool {
	return NewBufferPool(config.PoolConfig{MaxOutstanding: maxOutstanding, ZeroOnAcquire: false})
}

func TestAcquireReturnsAlignedZeroedBuffer(t *testing.T) {
	t.Parallel()

	p := testPool(4)
	buf, err := p.Acquire(128, false)
	require.NoError(t, err)
	require.Len(t, buf.Data(), 128)
	assert.Zero(t, uintptr(unsafe.Pointer(&buf.Data()[0]))%cacheLineBytes, "buffer must start on a cache-line boundary")
	for _, v := range buf.Data() {
		assert.Equal(t, float32(0), v)
	}
}

func TestAcquireExhaustsAtMaxOutstanding(t *testing.T) {
	t.Parallel()

	p := testPool(2)
	b1, err := p.Acquire(64, false)
	require.NoError(t, err)
	b2, err := p.Acquire(64, false)
	require.NoError(t, err)

	_, err = p.Acquire(64, false)
	require.Error(t, err)

	b1.Release()
	b2.Release()
}

func TestReleaseReturnsBufferToFreeList(t *testing.T) {
	t.Parallel()

	p := testPool(1)
	buf, err := p.Acquire(32, false)
	require.NoError(t, err)
	buf.Release()

	stats := p.Stats(32)
	assert.Equal(t, uint32(1), stats.Free)
	assert.Equal(t, uint32(0), stats.Outstanding)

	_, err = p.Acquire(32, false)
	assert.NoError(t, err, "a released buffer should be reusable without exhausting the cap")
}

func TestAcquireZeroedClearsReusedBuffer(t *testing.T) {
	t.Parallel()

	p := testPool(1)
	buf, err := p.Acquire(8, false)
	require.NoError(t, err)
	data := buf.Data()
	for i := range data {
		data[i] = 1
	}
	buf.Release()

	buf2, err := p.Acquire(8, true)
	require.NoError(t, err)
	for _, v := range buf2.Data() {
		assert.Equal(t, float32(0), v)
	}
}

func TestStatsTracksPeakOutstanding(t *testing.T) {
	t.Parallel()

	p := testPool(4)
	b1, err := p.Acquire(16, false)
	require.NoError(t, err)
	b2, err := p.Acquire(16, false)
	require.NoError(t, err)

	stats := p.Stats(16)
	assert.Equal(t, uint32(2), stats.PeakOutstanding)

	b1.Release()
	b2.Release()

	stats = p.Stats(16)
	assert.Equal(t, uint32(2), stats.PeakOutstanding, "peak should not decay after release")
}

func TestStatsForUnknownLengthIsZeroValue(t *testing.T) {
	t.Parallel()

	p := testPool(4)
	assert.Equal(t, Stats{}, p.Stats(999))
}

func TestDistinctLengthsHaveIndependentCaps(t *testing.T) {
	t.Parallel()

	p := testPool(1)
	b1, err := p.Acquire(16, false)
	require.NoError(t, err)
	b2, err := p.Acquire(32, false)
	require.NoError(t, err)

	assert.NotNil(t, b1)
	assert.NotNil(t, b2)
}

func TestAcquireNeverBlocksUnderConcurrency(t *testing.T) {
	t.Parallel()

	p := testPool(8)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf, err := p.Acquire(64, false)
			if err == nil {
				buf.Release()
			}
		}()
	}
	wg.Wait()
}

func TestAlignedFloat32StartsOnCacheLineBoundary(t *testing.T) {
	t.Parallel()

	for i := 0; i < 8; i++ {
		s := alignedFloat32(37)
		require.Len(t, s, 37)
		require.Zero(t, uintptr(unsafe.Pointer(&s[0]))%cacheLineBytes)
	}
}
