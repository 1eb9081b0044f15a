package audiocore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticRingDrainEmptyIsEmpty(t *testing.T) {
	t.Parallel()

	r := newDiagnosticRing(8)
	assert.Empty(t, r.Drain())
}

func TestDiagnosticRingRecordAndDrainOrder(t *testing.T) {
	t.Parallel()

	r := newDiagnosticRing(8)
	r.record(KindPoolExhausted, 1, 100)
	r.record(KindDecodeDropped, 2, 200)
	r.record(KindWorkerSaturated, 3, 300)

	recs := r.Drain()
	require.Len(t, recs, 3)
	assert.Equal(t, KindPoolExhausted, recs[0].Kind)
	assert.Equal(t, uint32(1), recs[0].Payload)
	assert.Equal(t, KindDecodeDropped, recs[1].Kind)
	assert.Equal(t, KindWorkerSaturated, recs[2].Kind)
}

func TestDiagnosticRingOverwritesOldestUnderLoad(t *testing.T) {
	t.Parallel()

	r := newDiagnosticRing(4)
	for i := 0; i < 10; i++ {
		r.record(KindCoefficientPublishFailed, uint32(i), int64(i))
	}

	recs := r.Drain()
	require.Len(t, recs, 4)
	assert.Equal(t, uint32(6), recs[0].Payload, "oldest 6 records should have been overwritten")
	assert.Equal(t, uint32(9), recs[3].Payload)
}

func TestDiagnosticRingConcurrentProducersNoPanic(t *testing.T) {
	t.Parallel()

	r := newDiagnosticRing(16)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.record(KindWorkerSaturated, uint32(i), int64(i))
		}(i)
	}
	wg.Wait()

	recs := r.Drain()
	assert.LessOrEqual(t, len(recs), 16)
}

func TestDiagnosticKindStringCoversAllValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pool_exhausted", KindPoolExhausted.String())
	assert.Equal(t, "decode_dropped", KindDecodeDropped.String())
	assert.Equal(t, "coefficient_publish_failed", KindCoefficientPublishFailed.String())
	assert.Equal(t, "worker_saturated", KindWorkerSaturated.String())
	assert.Equal(t, "unknown", DiagnosticKind(99).String())
}
