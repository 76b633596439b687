package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/obs"
)

const JobDueSweep = "due_sweep"

// DueSweep is the only path from pending to sent. Each record is pushed and
// then marked with its own conditional update, so a failed mark leaves it
// pending for the next sweep.
type DueSweep struct {
	repo     notification.Repo
	disp     notification.Dispatcher
	log      *zap.Logger
	interval time.Duration
	batch    int
}

func NewDueSweep(repo notification.Repo, disp notification.Dispatcher, log *zap.Logger, interval time.Duration, batch int) *DueSweep {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 500
	}
	return &DueSweep{repo: repo, disp: disp, log: log.With(zap.String("job", JobDueSweep)), interval: interval, batch: batch}
}

func (j *DueSweep) Name() string            { return JobDueSweep }
func (j *DueSweep) Interval() time.Duration { return j.interval }

func (j *DueSweep) Tick(ctx context.Context, now time.Time) (Result, error) {
	tr := obs.Tracer()
	ctx, span := tr.Start(ctx, "scheduler.tick", trace.WithAttributes(
		attribute.String("job", JobDueSweep),
		attribute.Int("batch.limit", j.batch),
	))
	defer span.End()

	due, err := j.repo.FetchDue(ctx, now, j.batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch due")
		return Result{}, fmt.Errorf("fetch due: %w", err)
	}
	span.SetAttributes(attribute.Int("batch.fetched", len(due)))

	var res Result
	for _, n := range due {
		if !n.Due(now) {
			continue
		}
		_, sp := tr.Start(ctx, "scheduler.publish", trace.WithAttributes(
			attribute.String("notification.id", n.ID),
			attribute.Int64("user.id", n.UserID),
		))

		j.disp.ToUser(n.UserID, notification.EventScheduled, notification.NewScheduledPayload(n, now))

		marked, err := j.repo.MarkSent(ctx, n.ID, now)
		switch {
		case err != nil:
			res.Failed++
			sp.RecordError(err)
			sp.SetAttributes(attribute.String("publish.status", "error"))
			obs.WithTrace(ctx, j.log).Warn("mark sent", zap.String("notification_id", n.ID), zap.Error(err))
		case !marked:
			sp.SetAttributes(attribute.String("publish.status", "already_sent"))
		default:
			res.Processed++
			sp.SetAttributes(attribute.String("publish.status", "ok"))
		}
		sp.End()
	}

	span.SetAttributes(
		attribute.Int("batch.sent", res.Processed),
		attribute.Int("batch.errors", res.Failed),
	)
	return res, nil
}
