package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiocore/internal/config"
)

func fakeArtifact(frames int) *DecodedArtifact {
	return &DecodedArtifact{
		SampleRate: 48000,
		Channels:   1,
		Samples:    [][]float32{make([]float32, frames)},
	}
}

func TestDecodeCacheGetMissReturnsFalse(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 4})
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestDecodeCachePutThenGetHits(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 4})
	c.Put("a", fakeArtifact(100))

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 100, got.frameCount())
}

func TestDecodeCacheEvictsLeastRecentlyUsedAtEntryCap(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 2})
	c.Put("a", fakeArtifact(10))
	c.Put("b", fakeArtifact(10))
	c.Get("a") // touch a, making b the LRU
	c.Put("c", fakeArtifact(10))

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	assert.True(t, aOK)
	assert.False(t, bOK, "b should have been evicted as least-recently-used")
	assert.True(t, cOK)
	assert.Equal(t, 2, c.Len())
}

func TestDecodeCacheEvictsByByteCap(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 100, MaxBytes: 75 * 4})
	c.Put("a", fakeArtifact(50))
	c.Put("b", fakeArtifact(50))

	assert.Equal(t, 1, c.Len(), "second entry should evict the first to stay under the byte cap")
	_, bOK := c.Get("b")
	assert.True(t, bOK)
}

func TestDecodeCacheDefersEvictionOfPinnedEntry(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 1})
	c.Put("a", fakeArtifact(10))

	pinned, ok := c.Acquire("a")
	require.True(t, ok)

	c.Put("b", fakeArtifact(10))

	_, aStillThere := c.Get("a")
	assert.True(t, aStillThere, "pinned entry must survive a would-be eviction")
	assert.Equal(t, 2, c.Len(), "cap is exceeded only while the pin holds")

	pinned.Release()
	c.Put("c", fakeArtifact(10))

	_, aGone := c.Get("a")
	assert.False(t, aGone, "once unpinned, the entry becomes eligible for eviction again")
}

func TestDecodeCacheAcquireMissingReturnsFalse(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 4})
	_, ok := c.Acquire("missing")
	assert.False(t, ok)
}

func TestPinnedArtifactReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewDecodeCache(config.CacheConfig{MaxEntries: 4})
	c.Put("a", fakeArtifact(10))

	pinned, ok := c.Acquire("a")
	require.True(t, ok)

	assert.NotPanics(t, func() {
		pinned.Release()
		pinned.Release()
	})
}
