package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/domain/user"
	"github.com/NordCoder/Skywatch/internal/obs"
)

const (
	JobISSAlerts        = "iss_alerts"
	DefaultMinElevation = 30.0
)

// PassPredictor returns the next visible pass, or nil when none is known.
type PassPredictor interface {
	NextPass(ctx context.Context, now time.Time) (*notification.ISSPass, error)
}

type ISSAlerts struct {
	pred         PassPredictor
	users        user.Directory
	repo         notification.Repo
	disp         notification.Dispatcher
	log          *zap.Logger
	interval     time.Duration
	minElevation float64
}

func NewISSAlerts(
	pred PassPredictor,
	users user.Directory,
	repo notification.Repo,
	disp notification.Dispatcher,
	log *zap.Logger,
	interval time.Duration,
	minElevation float64,
) *ISSAlerts {
	if interval <= 0 {
		interval = time.Hour
	}
	if minElevation <= 0 {
		minElevation = DefaultMinElevation
	}
	return &ISSAlerts{
		pred:         pred,
		users:        users,
		repo:         repo,
		disp:         disp,
		log:          log.With(zap.String("job", JobISSAlerts)),
		interval:     interval,
		minElevation: minElevation,
	}
}

func (j *ISSAlerts) Name() string            { return JobISSAlerts }
func (j *ISSAlerts) Interval() time.Duration { return j.interval }

func (j *ISSAlerts) Tick(ctx context.Context, now time.Time) (Result, error) {
	ctx, span := obs.Tracer().Start(ctx, "scheduler.tick")
	span.SetAttributes(attribute.String("job", JobISSAlerts))
	defer span.End()

	pass, err := j.pred.NextPass(ctx, now)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("predict pass: %w", err)
	}
	if pass == nil {
		return Result{}, nil
	}
	span.SetAttributes(attribute.Float64("pass.max_elevation", pass.MaxElevation))
	if pass.MaxElevation <= j.minElevation {
		j.log.Debug("pass below threshold", zap.Float64("elevation", pass.MaxElevation))
		return Result{}, nil
	}

	j.disp.ToGroup(notification.GroupISSAlerts, notification.EventISSPassAlert, pass.Alert(now))

	ids, err := j.users.ListISSAlertSubscribers(ctx)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("list subscribers: %w", err)
	}
	if len(ids) == 0 {
		return Result{}, nil
	}

	// One insert per subscriber: a bad row must not cost the others theirs.
	var res Result
	for _, id := range ids {
		if err := j.repo.Create(ctx, notification.NewISSPass(id, *pass, now)); err != nil {
			res.Failed++
			span.RecordError(err)
			obs.WithTrace(ctx, j.log).Warn("store pass notification", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		res.Processed++
	}

	span.SetAttributes(
		attribute.Int("notifications.created", res.Processed),
		attribute.Int("notifications.failed", res.Failed),
	)
	j.log.Info("pass alert",
		zap.Time("start", pass.StartTime),
		zap.Float64("elevation", pass.MaxElevation),
		zap.Int("recipients", res.Processed),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
