// Package audiocore owns the two components the render path touches
// directly every block: the bounded BufferPool (C1) and the Pipeline
// controller (C9) that sequences C1 through C5 behind one render call.
package audiocore

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/errors"
)

const cacheLineBytes = 64

// Buffer is a pool-owned, 64-byte-aligned planar sample buffer. It is
// exclusively lent to one caller until Release returns it to its
// length's free list.
type Buffer struct {
	data   []float32
	length int
	owner  *lengthPool
}

// Data returns the buffer's valid samples.
func (b *Buffer) Data() []float32 { return b.data[:b.length] }

// Release returns the buffer to its free list. Safe to call at most
// once per acquire; calling it twice double-frees the buffer into the
// free list, which the caller must not do.
func (b *Buffer) Release() {
	select {
	case b.owner.free <- b:
	default:
		// The free list is sized to the length's cap, so this branch is
		// unreachable in practice; it exists so Release never blocks.
	}
}

// lengthPool is the free list and accounting for one distinct buffer
// length. created is the number of buffers ever allocated for this
// length, capped at maxOutstanding; free holds currently idle buffers.
type lengthPool struct {
	free    chan *Buffer
	created atomic.Uint32
	peak    atomic.Uint32
}

// Stats is a non-blocking snapshot of one length's pool state (§4.1).
type Stats struct {
	Outstanding     uint32
	Free            uint32
	PeakOutstanding uint32
}

func (lp *lengthPool) stats() Stats {
	created := lp.created.Load()
	free := uint32(len(lp.free))
	outstanding := uint32(0)
	if created > free {
		outstanding = created - free
	}
	return Stats{
		Outstanding:     outstanding,
		Free:            free,
		PeakOutstanding: lp.peak.Load(),
	}
}

func (lp *lengthPool) trackPeak() {
	created := lp.created.Load()
	free := uint32(len(lp.free))
	outstanding := uint32(0)
	if created > free {
		outstanding = created - free
	}
	for {
		peak := lp.peak.Load()
		if outstanding <= peak {
			return
		}
		if lp.peak.CompareAndSwap(peak, outstanding) {
			return
		}
	}
}

// BufferPool hands out 64-byte-aligned Buffers bounded by
// max_outstanding per distinct length; acquire never blocks and never
// allocates past the cap (§4.1).
type BufferPool struct {
	maxOutstanding uint32
	zeroOnAcquire  bool

	mu      sync.RWMutex
	lengths map[int]*lengthPool
}

// NewBufferPool builds a BufferPool from cfg.
func NewBufferPool(cfg config.PoolConfig) *BufferPool {
	return &BufferPool{
		maxOutstanding: cfg.MaxOutstanding,
		zeroOnAcquire:  cfg.ZeroOnAcquire,
		lengths:        make(map[int]*lengthPool),
	}
}

// lengthPoolFor returns the free list for length, creating it on first
// use. Every call takes the map's read lock for the lookup; the write
// lock is taken only the first time a distinct length is seen, which for
// a running pipeline happens once during warmup.
func (p *BufferPool) lengthPoolFor(length int) *lengthPool {
	p.mu.RLock()
	lp, ok := p.lengths[length]
	p.mu.RUnlock()
	if ok {
		return lp
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if lp, ok := p.lengths[length]; ok {
		return lp
	}
	lp = &lengthPool{free: make(chan *Buffer, p.maxOutstanding)}
	p.lengths[length] = lp
	return lp
}

// Acquire returns a buffer of exactly length samples. zeroed forces a
// clear of borrowed free-list buffers on top of the pool-wide
// zero_on_acquire default; newly allocated buffers are always
// zero-valued already (fresh from make).
func (p *BufferPool) Acquire(length int, zeroed bool) (*Buffer, error) {
	lp := p.lengthPoolFor(length)

	select {
	case buf := <-lp.free:
		buf.length = length
		if zeroed || p.zeroOnAcquire {
			clear(buf.data[:length])
		}
		lp.trackPeak()
		return buf, nil
	default:
	}

	for {
		cur := lp.created.Load()
		if cur >= p.maxOutstanding {
			return nil, errExhausted(length, p.maxOutstanding)
		}
		if lp.created.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	buf := &Buffer{data: alignedFloat32(length), length: length, owner: lp}
	lp.trackPeak()
	return buf, nil
}

// Stats returns a non-blocking snapshot of the pool state for length.
func (p *BufferPool) Stats(length int) Stats {
	p.mu.RLock()
	lp, ok := p.lengths[length]
	p.mu.RUnlock()
	if !ok {
		return Stats{}
	}
	return lp.stats()
}

func errExhausted(length int, cap uint32) error {
	return errors.Newf("buffer pool exhausted for length %d (cap %d)", length, cap).
		Component("audiocore").
		Category(errors.CategoryBuffer).
		Context("length", length).
		Context("max_outstanding", cap).
		Build()
}

// alignedFloat32 returns a float32 slice of exactly n elements whose
// first element starts on a 64-byte boundary. Go's allocator gives no
// alignment guarantee for slices, so this over-allocates and slices
// forward to the first aligned element — the one place in this package
// unsafe.Pointer is justified, since no library in the retrieved corpus
// offers aligned float32 allocation.
func alignedFloat32(n int) []float32 {
	const elemsPerLine = cacheLineBytes / 4
	raw := make([]float32, n+elemsPerLine)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	pad := (cacheLineBytes - int(addr%cacheLineBytes)) % cacheLineBytes
	offset := pad / 4
	return raw[offset : offset+n : offset+n]
}
