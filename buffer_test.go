package thrush

import (
	"context"
	"errors"
	"testing"
)

func TestUpdateBufferFlush(t *testing.T) {
	inv := &fakeInvoker{}
	rrd := testRRD(t, inv)
	buf := NewUpdateBuffer(rrd, 10)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sample := Sample{
			Time:   Epoch(int64(1300000000 + i*300)),
			Values: map[string]float64{"requests": float64(i)},
		}
		if err := buf.Add(ctx, sample); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if buf.Len() != 3 {
		t.Errorf("Len = %d, want 3", buf.Len())
	}
	if len(inv.calls) != 0 {
		t.Error("buffering below capacity must not invoke the tool")
	}

	if err := buf.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Len after flush = %d, want 0", buf.Len())
	}

	call := inv.lastCall(t, "update")
	assertArgs(t, call.args, []string{
		"--template", "requests:temperature", "--",
		"1300000000:0:U",
		"1300000300:1:U",
		"1300000600:2:U",
	})
}

func TestUpdateBufferFlushEmpty(t *testing.T) {
	inv := &fakeInvoker{}
	buf := NewUpdateBuffer(testRRD(t, inv), 10)

	if err := buf.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(inv.calls) != 0 {
		t.Error("an empty flush must not invoke the tool")
	}
}

func TestUpdateBufferAutoFlush(t *testing.T) {
	inv := &fakeInvoker{}
	buf := NewUpdateBuffer(testRRD(t, inv), 2)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sample := Sample{
			Time:   Epoch(int64(1300000000 + i*300)),
			Values: map[string]float64{"requests": float64(i)},
		}
		if err := buf.Add(ctx, sample); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	// The third Add flushed the first two and kept the newcomer.
	if len(inv.calls) != 1 {
		t.Fatalf("got %d invocations, want 1", len(inv.calls))
	}
	assertArgs(t, inv.calls[0].args, []string{
		"--template", "requests:temperature", "--",
		"1300000000:0:U",
		"1300000300:1:U",
	})
	if buf.Len() != 1 {
		t.Errorf("Len = %d, want 1", buf.Len())
	}
}

func TestUpdateBufferRetainsOnFailure(t *testing.T) {
	inv := &fakeInvoker{runErr: newToolError("update", 1, "ERROR: illegal attempt", nil)}
	buf := NewUpdateBuffer(testRRD(t, inv), 10)

	ctx := context.Background()
	if err := buf.Add(ctx, Sample{Values: map[string]float64{"requests": 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := buf.Flush(ctx)
	if !errors.Is(err, ErrToolFailure) {
		t.Fatalf("expected tool failure, got %v", err)
	}
	// Failed samples stay put for a retry.
	if buf.Len() != 1 {
		t.Errorf("Len after failed flush = %d, want 1", buf.Len())
	}

	inv.runErr = nil
	if err := buf.Flush(ctx); err != nil {
		t.Fatalf("retry Flush: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Len after retry = %d, want 0", buf.Len())
	}
}

func TestUpdateBufferDefaultCapacity(t *testing.T) {
	buf := NewUpdateBuffer(testRRD(t, &fakeInvoker{}), 0)
	if buf.cap != 100 {
		t.Errorf("cap = %d, want 100", buf.cap)
	}
}
