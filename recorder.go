package thrush

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// CollectFunc samples the quantities a Recorder feeds, keyed by
// canonical field name. Returning an error skips the tick.
type CollectFunc func(ctx context.Context) (map[string]float64, error)

// RecorderConfig controls the sampling schedule.
type RecorderConfig struct {
	// Every ticks the recorder on a fixed interval. Defaults to 5
	// minutes when Cron is empty.
	Every time.Duration
	// Cron schedules ticks with a standard cron expression such as
	// "*/5 * * * *". Takes precedence over Every.
	Cron string
	// TickTimeout bounds one collect-and-update cycle. Zero leaves it
	// unbounded.
	TickTimeout time.Duration
}

// Recorder runs the classic collection loop: on every tick it calls the
// collect callback and feeds the result into the RRD stamped with the
// tool's own clock. Failed ticks are logged and counted, never fatal;
// the next tick runs regardless.
type Recorder struct {
	rrd     *RRD
	collect CollectFunc
	cfg     RecorderConfig

	mu    sync.Mutex
	stop  chan struct{}
	sched *cron.Cron

	failures atomic.Int64
}

// NewRecorder creates a stopped recorder. A cron expression, if set, is
// validated here so schedule typos fail fast.
func NewRecorder(rrd *RRD, collect CollectFunc, cfg RecorderConfig) (*Recorder, error) {
	if rrd == nil {
		return nil, errors.New("rrd is required")
	}
	if collect == nil {
		return nil, errors.New("collect callback is required")
	}
	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			return nil, err
		}
	}
	return &Recorder{rrd: rrd, collect: collect, cfg: cfg}, nil
}

// Start launches the sampling loop. Starting a running recorder is an
// error.
func (rec *Recorder) Start() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.stop != nil {
		return errors.New("recorder already started")
	}
	rec.stop = make(chan struct{})

	if rec.cfg.Cron != "" {
		c := cron.New()
		if _, err := c.AddFunc(rec.cfg.Cron, rec.tick); err != nil {
			rec.stop = nil
			return err
		}
		c.Start()
		rec.sched = c
		return nil
	}

	go rec.run(rec.stop)
	return nil
}

// Stop halts the loop. It is idempotent; a stopped recorder can be
// started again.
func (rec *Recorder) Stop() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.stop == nil {
		return
	}
	close(rec.stop)
	rec.stop = nil
	if rec.sched != nil {
		rec.sched.Stop()
		rec.sched = nil
	}
}

// Failures returns the number of ticks that failed to collect or update.
func (rec *Recorder) Failures() int64 {
	return rec.failures.Load()
}

func (rec *Recorder) run(stop chan struct{}) {
	interval := rec.cfg.Every
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rec.tick()
		}
	}
}

func (rec *Recorder) tick() {
	ctx := context.Background()
	if rec.cfg.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rec.cfg.TickTimeout)
		defer cancel()
	}

	values, err := rec.collect(ctx)
	if err != nil {
		rec.failures.Add(1)
		slog.Warn("recorder collect failed", "path", rec.rrd.Path(), "err", err)
		return
	}
	if err := rec.rrd.Update(ctx, Sample{Time: Now(), Values: values}); err != nil {
		rec.failures.Add(1)
		slog.Warn("recorder update failed", "path", rec.rrd.Path(), "err", err)
	}
}
