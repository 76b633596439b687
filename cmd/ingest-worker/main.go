package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Skywatch/internal/config/ingest-worker"
	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/obs"
	"github.com/NordCoder/Skywatch/internal/obs/retry"
	"github.com/NordCoder/Skywatch/internal/repository/kafka"
	pg "github.com/NordCoder/Skywatch/internal/repository/postgres"
	"github.com/NordCoder/Skywatch/internal/services/notifier"
)

// wiring builds a controller that persists producer events without live
// delivery; notify-hub pushes them on the next count or due sweep.
func wiring(db *pg.DB, cons *kafka.Consumer, l *zap.Logger) *notifier.Controller {
	store := pg.NewNotificationRepo(db, pg.NewTransactor(db, l))
	uc := notifier.NewHandler(store, notifier.NopDispatcher{}, notification.SystemClock{}, l)
	return &notifier.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(os.Getenv("INGEST_WORKER_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "ingest-worker"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting ingest-worker",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("topic", cfg.In.Topic),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, &cfg.OTEL)
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		defer func() { _ = otelCloser.Shutdown(context.Background()) }()
	}

	// db
	var db *pg.DB
	err = retry.Do(rootCtx, func() error {
		var e error
		db, e = pg.NewDB(rootCtx, cfg.DB)
		return e
	}, retry.StartupPolicy("postgres", l))
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, map[string]obs.HealthFunc{
		"postgres": db.Ping,
	}, l)

	// kafka
	cons := kafka.BootstrapConsumer(rootCtx, cfg.In, l)
	defer func() { _ = cons.Close() }()

	// start
	ctrl := wiring(db, cons, l)
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
