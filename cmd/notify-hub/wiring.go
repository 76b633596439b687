package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/auth"
	config "github.com/NordCoder/Skywatch/internal/config/notify-hub"
	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/repository/kafka"
	"github.com/NordCoder/Skywatch/internal/services/notifier"
	"github.com/NordCoder/Skywatch/internal/services/realtime"
	"github.com/NordCoder/Skywatch/internal/services/scheduler"
	"github.com/NordCoder/Skywatch/internal/services/scheduler/predictor"
)

type app struct {
	Registry *realtime.Registry
	WS       *realtime.Server
	Producer *notifier.Handler
	Sched    *scheduler.Runner
	// Ingest is nil unless kafka.enable is set.
	Ingest *notifier.Controller
}

func wiring(ctx context.Context, cfg *config.Config, st *storage, logger *zap.Logger) (*app, error) {
	clock := notification.SystemClock{}

	reg := realtime.NewRegistry()
	hub := realtime.NewHub(reg, logger)
	router := realtime.NewRouter(st.Notifications, hub, reg, logger)
	handshake := auth.NewHandshake(cfg.Auth, st.Users, logger)
	ws := realtime.NewServer(cfg.WS, handshake, reg, hub, router, logger)

	producer := notifier.NewHandler(st.Notifications, hub, clock, logger)

	jobs := []scheduler.Job{
		scheduler.NewDueSweep(st.Notifications, hub, logger, cfg.Sched.DueInterval, cfg.Sched.DueBatch),
		scheduler.NewRetention(st.Notifications, logger, cfg.Sched.RetentionInterval, cfg.Sched.RetentionWindow, cfg.Sched.PurgeExpired),
	}
	if cfg.Sched.ISSEnable {
		pred, err := predictor.New(cfg.Predictor, logger)
		if err != nil {
			return nil, fmt.Errorf("predictor: %w", err)
		}
		jobs = append(jobs, scheduler.NewISSAlerts(pred, st.Users, st.Notifications, hub, logger,
			cfg.Sched.ISSInterval, cfg.Sched.ISSMinElevation))
	}
	sched := scheduler.New(logger, clock, cfg.Sched.RunOnStart, jobs...)

	a := &app{Registry: reg, WS: ws, Producer: producer, Sched: sched}

	if cfg.Kafka.Enable {
		cons := kafka.BootstrapConsumer(ctx, cfg.Kafka.Config, logger)
		a.Ingest = &notifier.Controller{Log: logger, Sub: cons, UC: producer}
	}
	return a, nil
}
