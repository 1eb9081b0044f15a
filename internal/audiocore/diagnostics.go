package audiocore

import "sync/atomic"

// DiagnosticKind classifies a diagnostic ring record (§6 outbound ring).
type DiagnosticKind uint32

const (
	KindPoolExhausted DiagnosticKind = iota
	KindDecodeDropped
	KindCoefficientPublishFailed
	KindWorkerSaturated
)

func (k DiagnosticKind) String() string {
	switch k {
	case KindPoolExhausted:
		return "pool_exhausted"
	case KindDecodeDropped:
		return "decode_dropped"
	case KindCoefficientPublishFailed:
		return "coefficient_publish_failed"
	case KindWorkerSaturated:
		return "worker_saturated"
	default:
		return "unknown"
	}
}

// DiagnosticRecord is one fixed-size ring entry.
type DiagnosticRecord struct {
	TimestampUnixNano int64
	Kind              DiagnosticKind
	Payload           uint32
}

// diagnosticRing is a bounded MPSC ring: producers (any number of
// goroutines recording failures) claim a monotonically increasing slot
// index with a single atomic add and write their own slot, so two
// producers never contend on the same memory. A slower reader
// naturally observes "overwrite oldest" behavior once producers lap it,
// since a claimed index modulo capacity reuses the oldest slot.
type diagnosticRing struct {
	slots []atomic.Pointer[DiagnosticRecord]
	next  atomic.Uint64
}

func newDiagnosticRing(capacity int) *diagnosticRing {
	if capacity < 1 {
		capacity = 1
	}
	return &diagnosticRing{slots: make([]atomic.Pointer[DiagnosticRecord], capacity)}
}

// record publishes one diagnostic event. Never blocks.
func (r *diagnosticRing) record(kind DiagnosticKind, payload uint32, nowUnixNano int64) {
	idx := r.next.Add(1) - 1
	r.slots[idx%uint64(len(r.slots))].Store(&DiagnosticRecord{
		TimestampUnixNano: nowUnixNano,
		Kind:              kind,
		Payload:           payload,
	})
}

// Drain returns every still-resident record in oldest-to-newest order.
// Called by the host from any non-audio thread; never called from the
// render path.
func (r *diagnosticRing) Drain() []DiagnosticRecord {
	n := uint64(len(r.slots))
	last := r.next.Load()
	start := uint64(0)
	if last > n {
		start = last - n
	}

	out := make([]DiagnosticRecord, 0, last-start)
	for i := start; i < last; i++ {
		if rec := r.slots[i%n].Load(); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}
