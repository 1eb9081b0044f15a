package wasmpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	t.Parallel()

	p := NewPool()
	t.Cleanup(p.Close)
	ctx := context.Background()
	require.NoError(t, p.EnsureInitialized(ctx, 4))
	require.NoError(t, p.EnsureInitialized(ctx, 4))
	require.NoError(t, p.EnsureInitialized(ctx, 4))
}

func TestEnsureInitializedConcurrentCallersNeverDeadlock(t *testing.T) {
	t.Parallel()

	p := NewPool()
	t.Cleanup(p.Close)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, p.EnsureInitialized(ctx, 4))
		}()
	}
	wg.Wait()
	assert.True(t, p.Ready())
}

func TestWorkerCountClampsToHardwareAndCeiling(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, clampWorkerCount(0, 8))
	assert.Equal(t, 4, clampWorkerCount(4, 8))
	assert.Equal(t, 8, clampWorkerCount(32, 8))
	assert.Equal(t, maxWorkers, clampWorkerCount(1000, 1000))
	assert.Equal(t, 1, clampWorkerCount(4, 0))
}

func TestSubmitRunsTaskAndResolvesFuture(t *testing.T) {
	t.Parallel()

	p := NewPool()
	t.Cleanup(p.Close)
	require.NoError(t, p.EnsureInitialized(context.Background(), 2))

	fut := p.Submit(context.Background(), &Task{
		Kind: TaskFFT,
		Run: func(ctx context.Context) (any, error) {
			return 42, nil
		},
	})

	result, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestSubmitBeforeInitializeRunsInline(t *testing.T) {
	t.Parallel()

	p := NewPool()
	t.Cleanup(p.Close)
	var ran bool
	fut := p.Submit(context.Background(), &Task{
		Kind: TaskCoeffRecompute,
		Run: func(ctx context.Context) (any, error) {
			ran = true
			return nil, nil
		},
	})

	_, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestSubmitPropagatesTaskError(t *testing.T) {
	t.Parallel()

	p := NewPool()
	t.Cleanup(p.Close)
	require.NoError(t, p.EnsureInitialized(context.Background(), 2))

	wantErr := assert.AnError
	fut := p.Submit(context.Background(), &Task{
		Kind: TaskBulkDecode,
		Run: func(ctx context.Context) (any, error) {
			return nil, wantErr
		},
	})

	_, err := fut.Wait(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestStatsSnapshotReflectsWorkerCount(t *testing.T) {
	t.Parallel()

	p := NewPool()
	t.Cleanup(p.Close)
	require.NoError(t, p.EnsureInitialized(context.Background(), 3))

	stats := p.StatsSnapshot()
	assert.Equal(t, p.WorkerCount(), stats.WorkerCount)
	assert.False(t, stats.Degraded)
}

func TestTaskKindStringCoversAllValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fft", TaskFFT.String())
	assert.Equal(t, "bulk_decode", TaskBulkDecode.String())
	assert.Equal(t, "coeff_recompute", TaskCoeffRecompute.String())
	assert.Equal(t, "unknown", TaskKind(99).String())
}
