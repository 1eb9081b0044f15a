// Package wasmpool implements the WASM-only parallel task pool (C8): a
// fixed set of worker goroutines (real OS threads natively, WASM workers
// sharing linear memory in the browser) that run a closed set of tasks
// (FFT, bulk decode, batch EQ coefficient recomputation) submitted from
// off the audio thread. The same code path runs on native targets too, so
// native benches can exercise it without a browser.
package wasmpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/errors"
)

// TaskKind is one of the pool's fixed, internally defined task shapes —
// never arbitrary user code (§4.8).
type TaskKind int

const (
	TaskFFT TaskKind = iota
	TaskBulkDecode
	TaskCoeffRecompute
)

func (k TaskKind) String() string {
	switch k {
	case TaskFFT:
		return "fft"
	case TaskBulkDecode:
		return "bulk_decode"
	case TaskCoeffRecompute:
		return "coeff_recompute"
	default:
		return "unknown"
	}
}

// Task is one unit of work submitted to the pool. Run must itself check
// ctx for cancellation at well-defined points (chunk boundaries, FFT
// completion) — cancellation is best-effort, not preemptive (§4.8, §5).
type Task struct {
	Kind TaskKind
	Run  func(ctx context.Context) (any, error)
}

// Future resolves to a Task's result or error.
type Future struct {
	done   chan struct{}
	result any
	err    error
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

func (f *Future) resolve(result any, err error) {
	f.result, f.err = result, err
	close(f.done)
}

// Wait blocks until the future resolves or ctx is cancelled.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, errors.CancellationError("wasmpool", ctx.Err())
	}
}

type poolState int32

const (
	stateUninitialized poolState = iota
	stateInitializing
	stateReady
	stateDegraded
)

const maxWorkers = 16

type taskEnvelope struct {
	ctx  context.Context
	task *Task
	fut  *Future
}

// Pool is the worker pool. The zero value is not usable; use NewPool.
type Pool struct {
	state    atomic.Int32
	initDone chan struct{}

	workerCount int
	tasks       chan *taskEnvelope
	closeOnce   sync.Once

	saturated atomic.Uint64
	completed atomic.Uint64
}

// NewPool builds an uninitialized Pool.
func NewPool() *Pool {
	return &Pool{initDone: make(chan struct{})}
}

// EnsureInitialized is idempotent and deadlock-free under concurrent
// callers: the first caller performs initialization behind a one-shot cell;
// concurrent callers observe Initializing and wait on its completion
// instead of re-entering, and callers after Ready return immediately (§4.8).
func (p *Pool) EnsureInitialized(ctx context.Context, targetWorkerCount int) error {
	if p.state.CompareAndSwap(int32(stateUninitialized), int32(stateInitializing)) {
		p.initialize(targetWorkerCount)
		close(p.initDone)
		return nil
	}

	if poolState(p.state.Load()) == stateInitializing {
		select {
		case <-p.initDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pool) initialize(targetWorkerCount int) {
	if !sharedMemoryAvailable() {
		p.state.Store(int32(stateDegraded))
		return
	}

	p.workerCount = clampWorkerCount(targetWorkerCount, hardwareParallelism())
	p.tasks = make(chan *taskEnvelope, p.workerCount*4)
	for i := 0; i < p.workerCount; i++ {
		go p.workerLoop()
	}
	p.state.Store(int32(stateReady))
}

func clampWorkerCount(target, hardwareParallel int) int {
	if target < 1 {
		target = 1
	}
	n := target
	if hardwareParallel < n {
		n = hardwareParallel
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Pool) workerLoop() {
	for env := range p.tasks {
		result, err := env.task.Run(env.ctx)
		env.fut.resolve(result, err)
		p.completed.Add(1)
	}
}

// Submit enqueues task and returns its Future immediately. If the pool
// degraded to single-threaded mode (no SharedArrayBuffer / no
// cross-origin isolation) or was never initialized, submit runs the task
// inline on the caller's goroutine — the rest of the system is unaware of
// the difference (§4.8). If the pool is ready but saturated, the task also
// runs inline rather than blocking the caller, and SaturatedCount ticks up
// so a host can alert on sustained saturation.
func (p *Pool) Submit(ctx context.Context, task *Task) *Future {
	fut := newFuture()
	env := &taskEnvelope{ctx: ctx, task: task, fut: fut}

	if poolState(p.state.Load()) != stateReady {
		p.runInline(env)
		return fut
	}

	select {
	case p.tasks <- env:
	default:
		p.saturated.Add(1)
		p.runInline(env)
	}
	return fut
}

func (p *Pool) runInline(env *taskEnvelope) {
	result, err := env.task.Run(env.ctx)
	env.fut.resolve(result, err)
	p.completed.Add(1)
}

// WorkerCount returns the number of live worker goroutines, 0 if degraded
// or not yet initialized.
func (p *Pool) WorkerCount() int { return p.workerCount }

// Degraded reports whether the pool is running in single-threaded inline
// mode.
func (p *Pool) Degraded() bool { return poolState(p.state.Load()) == stateDegraded }

// Ready reports whether the pool finished initializing into multi-worker
// mode.
func (p *Pool) Ready() bool { return poolState(p.state.Load()) == stateReady }

// Stats is a non-blocking snapshot of pool activity for host polling.
type Stats struct {
	WorkerCount    int
	Degraded       bool
	SaturatedCount uint64
	CompletedCount uint64
}

// Close stops every worker goroutine and releases the task queue. Safe to
// call more than once and safe to call on a pool that never initialized or
// degraded. A closed pool must not receive further Submit calls.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		if p.tasks != nil {
			close(p.tasks)
		}
	})
}

// StatsSnapshot returns a point-in-time Stats.
func (p *Pool) StatsSnapshot() Stats {
	return Stats{
		WorkerCount:    p.workerCount,
		Degraded:       p.Degraded(),
		SaturatedCount: p.saturated.Load(),
		CompletedCount: p.completed.Load(),
	}
}
