package thrush

import (
	"context"
	"sync"
)

// UpdateBuffer accumulates samples and flushes them as one multi-sample
// update invocation, cutting per-sample process spawns for high-rate
// feeds. Add flushes automatically when the buffer reaches capacity;
// call Flush for anything still pending before the buffer goes away.
// Buffered samples must arrive in ascending time order, the same rule
// UpdateBatch imposes.
type UpdateBuffer struct {
	mu      sync.Mutex
	rrd     *RRD
	samples []Sample
	cap     int
}

// NewUpdateBuffer creates a buffer flushing into rrd every capacity
// samples.
func NewUpdateBuffer(rrd *RRD, capacity int) *UpdateBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &UpdateBuffer{
		rrd:     rrd,
		samples: make([]Sample, 0, capacity),
		cap:     capacity,
	}
}

// Add buffers one sample, flushing first if the buffer is full. A flush
// failure leaves the buffered samples in place and the new sample
// unbuffered.
func (b *UpdateBuffer) Add(ctx context.Context, sample Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) >= b.cap {
		if err := b.flushLocked(ctx); err != nil {
			return err
		}
	}
	b.samples = append(b.samples, sample)
	return nil
}

// Len returns the number of buffered samples.
func (b *UpdateBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Flush feeds everything buffered in one invocation. On failure the
// samples stay buffered so a later Flush can retry.
func (b *UpdateBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *UpdateBuffer) flushLocked(ctx context.Context) error {
	if len(b.samples) == 0 {
		return nil
	}
	if err := b.rrd.UpdateBatch(ctx, b.samples); err != nil {
		return err
	}
	b.samples = b.samples[:0]
	return nil
}
