package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/Skywatch/internal/config/notify-hub"
	"github.com/NordCoder/Skywatch/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.LoggerConfig())
}
