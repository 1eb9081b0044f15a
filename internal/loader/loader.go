// Package loader implements the asynchronous file-to-PCM load path (C7):
// bounded concurrent loads, streaming fingerprinting with in-flight
// deduplication, chunked progress reporting, and an LRU decode cache with
// pinned reader views.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/audiocore/internal/config"
	"github.com/tphakala/audiocore/internal/errors"
)

// ProgressSink receives a monotonically non-decreasing fraction in [0, 1].
type ProgressSink func(fraction float64)

// Future resolves to a DecodedArtifact or an error. Wait blocks until the
// load completes or the caller's context is cancelled.
type Future struct {
	done     chan struct{}
	artifact *DecodedArtifact
	err      error
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

func (f *Future) resolve(artifact *DecodedArtifact, err error) {
	f.artifact, f.err = artifact, err
	close(f.done)
}

// Wait blocks until the future resolves or ctx is cancelled.
func (f *Future) Wait(ctx context.Context) (*DecodedArtifact, error) {
	select {
	case <-f.done:
		return f.artifact, f.err
	case <-ctx.Done():
		return nil, errors.CancellationError("loader", ctx.Err())
	}
}

// AsyncLoader runs the 7-step load protocol from spec §4.7 against the
// local filesystem, decoding WAV files in the background and caching
// results by content fingerprint.
type AsyncLoader struct {
	cfg   config.LoaderConfig
	cache *DecodeCache

	sem   chan struct{}
	group singleflight.Group
	hot   *gocache.Cache // short-TTL fingerprint -> *DecodedArtifact, fronts DecodeCache
}

// NewAsyncLoader builds an AsyncLoader wired to cfg and cache.
func NewAsyncLoader(cfg config.LoaderConfig, cache *DecodeCache) *AsyncLoader {
	concurrency := int(cfg.MaxConcurrent)
	if concurrency < 1 {
		concurrency = 1
	}
	return &AsyncLoader{
		cfg:   cfg,
		cache: cache,
		sem:   make(chan struct{}, concurrency),
		hot:   gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Load begins loading path in the background and returns immediately with a
// Future. Excess concurrent loads queue FIFO on the semaphore channel.
func (l *AsyncLoader) Load(ctx context.Context, path string, progress ProgressSink) *Future {
	fut := newFuture()
	go l.run(ctx, path, progress, fut)
	return fut
}

func (l *AsyncLoader) run(ctx context.Context, path string, progress ProgressSink, fut *Future) {
	info, err := os.Stat(path)
	if err != nil {
		fut.resolve(nil, errors.IOError("loader", err))
		return
	}
	if l.cfg.MaxFileBytes > 0 && uint64(info.Size()) > l.cfg.MaxFileBytes {
		fut.resolve(nil, errors.New(errTooLarge).Component("loader").Category(errors.CategoryResource).
			Context("path", path).Context("size", info.Size()).Context("max", l.cfg.MaxFileBytes).Build())
		return
	}

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		fut.resolve(nil, errors.CancellationError("loader", ctx.Err()))
		return
	}
	defer func() { <-l.sem }()

	timeout := time.Duration(l.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		fut.resolve(nil, errors.IOError("loader", err))
		return
	}
	defer f.Close()

	chunkSize := int(l.cfg.ChunkBytes)
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	firstChunk := make([]byte, chunkSize)
	n, readErr := io.ReadFull(f, firstChunk)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		fut.resolve(nil, errors.IOError("loader", readErr))
		return
	}
	firstChunk = firstChunk[:n]

	fingerprint := computeFingerprint(path, info.Size(), firstChunk)

	if cached, ok := l.hot.Get(fingerprint); ok {
		if progress != nil {
			progress(1.0)
		}
		fut.resolve(cached.(*DecodedArtifact), nil)
		return
	}
	if cached, ok := l.cache.Get(fingerprint); ok {
		if progress != nil {
			progress(1.0)
		}
		fut.resolve(cached, nil)
		return
	}

	// group.Do dedupes concurrent loads sharing a fingerprint: whichever
	// caller's first chunk produced this key does the I/O and decode; the
	// rest subscribe to its result instead of reading the file again.
	result, err, _ := l.group.Do(fingerprint, func() (any, error) {
		return l.loadBody(deadlineCtx, f, fingerprint, info.Size(), firstChunk, progress, chunkSize)
	})
	if err != nil {
		fut.resolve(nil, err)
		return
	}
	artifact := result.(*DecodedArtifact)
	fut.resolve(artifact, nil)
}

// loadBody buffers the remaining file content into a ring (step 4: chunked
// I/O with bounded [0, 0.5] progress), then hands the completed buffer to
// the WAV decoder on a background worker (step 5: (0.5, 1.0] progress) per
// spec §4.7. The ring is sized to the whole file up front rather than
// pipelined concurrently with the decoder, since this package's ring
// dependency offers no documented blocking-read mode to safely race a
// partially-filled buffer against the decoder's header read.
func (l *AsyncLoader) loadBody(ctx context.Context, f *os.File, fingerprint string, totalSize int64, firstChunk []byte, progress ProgressSink, chunkSize int) (*DecodedArtifact, error) {
	rb := ringbuffer.New(int(totalSize) + len(firstChunk) + chunkSize)

	if _, err := rb.Write(firstChunk); err != nil {
		return nil, errors.IOError("loader", err)
	}

	written := int64(len(firstChunk))
	if progress != nil && totalSize > 0 {
		progress(clamp01(0.5 * float64(written) / float64(totalSize)))
	}

	chunk := make([]byte, chunkSize)
readLoop:
	for {
		select {
		case <-ctx.Done():
			if deadline, ok := ctx.Deadline(); ok && time.Now().After(deadline) {
				return nil, errors.TimeoutError("loader", ctx.Err())
			}
			return nil, errors.CancellationError("loader", ctx.Err())
		default:
		}

		n, err := f.Read(chunk)
		if n > 0 {
			if _, werr := rb.Write(chunk[:n]); werr != nil {
				return nil, errors.IOError("loader", werr)
			}
			written += int64(n)
			if progress != nil && totalSize > 0 {
				progress(clamp01(0.5 * float64(written) / float64(totalSize)))
			}
		}
		if err == io.EOF {
			break readLoop
		}
		if err != nil {
			return nil, errors.IOError("loader", err)
		}
	}

	// Drain the ring into one contiguous buffer before decoding: go-audio's
	// decoder expects io.EOF at end of stream, which RingBuffer's Read does
	// not signal (it returns ErrIsEmpty instead) — but since every byte was
	// already written above, io.ReadFull reads the known `written` count
	// back out in full without ever touching that empty case.
	full := make([]byte, written)
	if _, err := io.ReadFull(rb, full); err != nil {
		return nil, errors.IOError("loader", err)
	}

	onProgress := func(frac float64) {
		if progress != nil {
			progress(0.5 + 0.5*clamp01(frac))
		}
	}
	artifact, err := decodeWAV(bytes.NewReader(full), onProgress)
	if err != nil {
		return nil, errors.New(err).Component("loader").Category(errors.CategoryIO).
			Context("reason", "decode_failed").Build()
	}

	artifact.Fingerprint = fingerprint
	l.hot.SetDefault(fingerprint, artifact)
	l.cache.Put(fingerprint, artifact)
	return artifact, nil
}

// computeFingerprint derives a dedup/cache key from the path, size, and
// first chunk of content. It is not a full-content hash — hashing the
// entire file would defeat the point of deduplicating before the remaining
// I/O happens — so two distinct files that happen to share a path, size,
// and first chunk collide. Acceptable for this module's cache/dedup
// purposes; not a content-integrity guarantee.
func computeFingerprint(path string, size int64, firstChunk []byte) string {
	h := sha256.New()
	io.WriteString(h, path)
	h.Write([]byte{byte(size), byte(size >> 8), byte(size >> 16), byte(size >> 24)})
	h.Write(firstChunk)
	return hex.EncodeToString(h.Sum(nil))
}

const errTooLarge = constError("file exceeds configured maximum size")
