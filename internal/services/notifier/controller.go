package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	kafkax "github.com/NordCoder/Skywatch/internal/repository/kafka"
)

// Controller feeds producer events from kafka into the Handler.
type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, c.Handler())
}

// Handler adapts UC to a kafka handler. Events that fail validation are
// skipped so a bad producer cannot wedge the partition.
func (c *Controller) Handler() kafkax.Handler {
	return kafkax.JSONHandler(func(ctx context.Context, _ []byte, ev Event) error {
		err := c.UC.Handle(ctx, ev)
		if err == nil {
			return nil
		}
		if rejected(err) {
			return fmt.Errorf("%w: %v", kafkax.ErrSkip, err)
		}
		return err
	})
}

func rejected(err error) bool {
	return errors.Is(err, ErrInvalidEvent) || errors.Is(err, notification.ErrInvalid) || errors.Is(err, ErrExpired)
}

// Publisher emits producer events onto the ingest topic, keyed by user so
// one user's events stay ordered.
type Publisher struct {
	P *kafkax.Producer
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	return p.P.PublishJSON(ctx, kafkax.KeyFromInt64(ev.partitionKey()), ev)
}

func (ev Event) partitionKey() int64 {
	switch {
	case ev.UserID > 0:
		return ev.UserID
	case ev.Notification != nil:
		return ev.Notification.UserID
	default:
		return 0
	}
}
