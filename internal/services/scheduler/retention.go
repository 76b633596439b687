package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/obs"
)

const (
	JobRetention         = "retention"
	DefaultRetentionSpan = 30 * 24 * time.Hour
)

// Retention removes read records older than the window. Unread records are
// kept forever unless purgeExpired is set, in which case records past their
// expiry go too.
type Retention struct {
	repo         notification.Repo
	log          *zap.Logger
	interval     time.Duration
	window       time.Duration
	purgeExpired bool
}

func NewRetention(repo notification.Repo, log *zap.Logger, interval, window time.Duration, purgeExpired bool) *Retention {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if window <= 0 {
		window = DefaultRetentionSpan
	}
	return &Retention{
		repo:         repo,
		log:          log.With(zap.String("job", JobRetention)),
		interval:     interval,
		window:       window,
		purgeExpired: purgeExpired,
	}
}

func (j *Retention) Name() string            { return JobRetention }
func (j *Retention) Interval() time.Duration { return j.interval }

func (j *Retention) Tick(ctx context.Context, now time.Time) (Result, error) {
	ctx, span := obs.Tracer().Start(ctx, "scheduler.tick")
	span.SetAttributes(attribute.String("job", JobRetention))
	defer span.End()

	var (
		res  Result
		errs []error
	)

	read, err := j.repo.DeleteReadBefore(ctx, now.Add(-j.window))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete read: %w", err))
	}
	var expired int64
	if j.purgeExpired {
		expired, err = j.repo.DeleteExpired(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete expired: %w", err))
		}
	}

	res.Processed = int(read + expired)
	span.SetAttributes(attribute.Int64("deleted.read", read), attribute.Int64("deleted.expired", expired))
	if read+expired > 0 {
		j.log.Info("purged", zap.Int64("read", read), zap.Int64("expired", expired))
	}
	return res, errors.Join(errs...)
}
