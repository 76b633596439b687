package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/obs/retry"
)

// BootstrapConsumer waits for the topic to exist before returning a consumer.
// A broker that stays unreachable is logged; the reader keeps retrying.
func BootstrapConsumer(ctx context.Context, cfg Config, logger *zap.Logger) *Consumer {
	err := retry.Do(ctx, func() error {
		return EnsureTopic(ctx, cfg, logger)
	}, retry.StartupPolicy("kafka", logger))
	if err != nil {
		logger.Warn("topic bootstrap failed", zap.String("topic", cfg.Topic), zap.Error(err))
	}

	cc := cfg.Consumer()
	cc.Logger = logger
	return NewConsumer(cc)
}
