package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Skywatch/internal/config/notify-hub"
	"github.com/NordCoder/Skywatch/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	otelCfg := cfg.OTEL
	if otelCfg.ServiceName == "" {
		otelCfg.ServiceName = cfg.App.Name
	}
	closer, err := obs.SetupOTel(ctx, &otelCfg)
	if err != nil {
		return nil, err
	}
	if otelCfg.Enable {
		logger.Info("tracing enabled", zap.String("endpoint", otelCfg.Endpoint), zap.Float64("sample_ratio", otelCfg.SampleRatio))
	}
	return closer.Shutdown, nil
}
