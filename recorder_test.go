package thrush

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRecorderValidation(t *testing.T) {
	rrd := testRRD(t, &fakeInvoker{})
	collect := func(ctx context.Context) (map[string]float64, error) {
		return nil, nil
	}

	if _, err := NewRecorder(nil, collect, RecorderConfig{}); err == nil {
		t.Error("expected a nil rrd to be rejected")
	}
	if _, err := NewRecorder(rrd, nil, RecorderConfig{}); err == nil {
		t.Error("expected a nil callback to be rejected")
	}
	// Schedule typos fail at construction, not at Start.
	if _, err := NewRecorder(rrd, collect, RecorderConfig{Cron: "not a schedule"}); err == nil {
		t.Error("expected a bad cron expression to be rejected")
	}
	if _, err := NewRecorder(rrd, collect, RecorderConfig{Cron: "*/5 * * * *"}); err != nil {
		t.Errorf("NewRecorder: %v", err)
	}
}

func TestRecorderTick(t *testing.T) {
	inv := &fakeInvoker{}
	rrd := testRRD(t, inv)

	rec, err := NewRecorder(rrd, func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"requests": 12, "temperature": 21.5}, nil
	}, RecorderConfig{})
	if err != nil {
		t.Fatal(err)
	}

	rec.tick()

	call := inv.lastCall(t, "update")
	assertArgs(t, call.args, []string{
		"--template", "requests:temperature", "--",
		"N:12:21.5",
	})
	if rec.Failures() != 0 {
		t.Errorf("Failures = %d, want 0", rec.Failures())
	}
}

func TestRecorderTickCollectFailure(t *testing.T) {
	inv := &fakeInvoker{}
	rrd := testRRD(t, inv)

	rec, err := NewRecorder(rrd, func(ctx context.Context) (map[string]float64, error) {
		return nil, errors.New("sensor offline")
	}, RecorderConfig{})
	if err != nil {
		t.Fatal(err)
	}

	rec.tick()
	rec.tick()

	// Failed collects count and skip the update.
	if rec.Failures() != 2 {
		t.Errorf("Failures = %d, want 2", rec.Failures())
	}
	if len(inv.calls) != 0 {
		t.Error("a failed collect must not invoke the tool")
	}
}

func TestRecorderTickUpdateFailure(t *testing.T) {
	inv := &fakeInvoker{runErr: newToolError("update", 1, "ERROR: illegal attempt", nil)}
	rrd := testRRD(t, inv)

	rec, err := NewRecorder(rrd, func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"requests": 1}, nil
	}, RecorderConfig{})
	if err != nil {
		t.Fatal(err)
	}

	rec.tick()
	if rec.Failures() != 1 {
		t.Errorf("Failures = %d, want 1", rec.Failures())
	}
}

func TestRecorderTickTimeout(t *testing.T) {
	rrd := testRRD(t, &fakeInvoker{})

	var seenDeadline bool
	rec, err := NewRecorder(rrd, func(ctx context.Context) (map[string]float64, error) {
		_, seenDeadline = ctx.Deadline()
		return map[string]float64{"requests": 1}, nil
	}, RecorderConfig{TickTimeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}

	rec.tick()
	if !seenDeadline {
		t.Error("expected the tick context to carry a deadline")
	}
}

func TestRecorderInterval(t *testing.T) {
	inv := &fakeInvoker{}
	rrd := testRRD(t, inv)

	ticked := make(chan struct{}, 1)
	rec, err := NewRecorder(rrd, func(ctx context.Context) (map[string]float64, error) {
		select {
		case ticked <- struct{}{}:
		default:
		}
		return map[string]float64{"requests": 1}, nil
	}, RecorderConfig{Every: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Start(); err == nil {
		t.Error("expected a second Start to fail")
	}

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a tick")
	}

	rec.Stop()
	rec.Stop()

	// A stopped recorder starts again.
	if err := rec.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	rec.Stop()
}

func TestRecorderCronLifecycle(t *testing.T) {
	rrd := testRRD(t, &fakeInvoker{})
	rec, err := NewRecorder(rrd, func(ctx context.Context) (map[string]float64, error) {
		return map[string]float64{"requests": 1}, nil
	}, RecorderConfig{Cron: "*/5 * * * *"})
	if err != nil {
		t.Fatal(err)
	}

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.sched == nil {
		t.Error("expected a cron scheduler")
	}
	rec.Stop()
	if rec.sched != nil {
		t.Error("expected the scheduler to be released")
	}
}
