package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

// Job is one periodic task. Tick must be safe to call again after a failure.
type Job interface {
	Name() string
	Interval() time.Duration
	Tick(ctx context.Context, now time.Time) (Result, error)
}

type Result struct {
	Processed int
	Failed    int
}

var (
	mTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_scheduler_ticks_total", Help: "Job ticks by result",
	}, []string{"job", "result"})
	mItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_scheduler_items_total", Help: "Records handled by job ticks",
	}, []string{"job", "outcome"})
	mTickDur = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "skywatch_scheduler_tick_duration_seconds", Help: "Job tick duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// Runner drives each job on its own ticker. Jobs share no state, so a slow
// or failing job never delays the others.
type Runner struct {
	log        *zap.Logger
	clock      notification.Clock
	jobs       []Job
	runOnStart bool
}

func New(log *zap.Logger, clock notification.Clock, runOnStart bool, jobs ...Job) *Runner {
	if clock == nil {
		clock = notification.SystemClock{}
	}
	return &Runner{
		log:        log.With(zap.String("component", "scheduler")),
		clock:      clock,
		jobs:       jobs,
		runOnStart: runOnStart,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, j := range r.jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			r.loop(ctx, j)
		}(j)
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval())
	defer ticker.Stop()

	r.log.Info("job started", zap.String("job", j.Name()), zap.Duration("interval", j.Interval()))
	if r.runOnStart {
		_, _ = r.tick(ctx, j)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.tick(ctx, j)
		}
	}
}

// RunOnce ticks the named job synchronously.
func (r *Runner) RunOnce(ctx context.Context, name string) (Result, error) {
	for _, j := range r.jobs {
		if j.Name() == name {
			return r.tick(ctx, j)
		}
	}
	return Result{}, fmt.Errorf("unknown job %q", name)
}

func (r *Runner) tick(ctx context.Context, j Job) (res Result, err error) {
	start := time.Now()
	name := j.Name()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
			r.log.Error("job panic", zap.String("job", name), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
		}
		mTickDur.WithLabelValues(name).Observe(time.Since(start).Seconds())
		mItems.WithLabelValues(name, "ok").Add(float64(res.Processed))
		mItems.WithLabelValues(name, "failed").Add(float64(res.Failed))
		if err != nil {
			mTicks.WithLabelValues(name, "error").Inc()
			r.log.Warn("tick error", zap.String("job", name), zap.Error(err))
			return
		}
		mTicks.WithLabelValues(name, "ok").Inc()
		if res.Processed > 0 || res.Failed > 0 {
			r.log.Info("tick", zap.String("job", name), zap.Int("processed", res.Processed), zap.Int("failed", res.Failed))
		}
	}()

	return j.Tick(ctx, r.clock.Now())
}
