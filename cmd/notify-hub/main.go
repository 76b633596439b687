package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Skywatch/internal/config/notify-hub"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := os.Getenv("NOTIFY_HUB_CONFIG")
	if path == "" {
		path = "config/notify-hub.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting notify-hub",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("store", cfg.Store.Driver),
	)

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}
	defer st.Close()

	a, err := wiring(rootCtx, cfg, st, logger)
	if err != nil {
		logger.Fatal("wiring", zap.Error(err))
	}

	workCtx, stopWork := context.WithCancel(rootCtx)
	defer stopWork()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = a.Sched.Run(workCtx)
	}()

	ingestErrCh := make(chan error, 1)
	if a.Ingest != nil {
		go func() {
			logger.Info("kafka ingest starting")
			ingestErrCh <- a.Ingest.Run(workCtx)
		}()
	}

	httpSrv := buildHTTPServer(cfg, a, st)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	case err := <-ingestErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("kafka ingest", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	// hijacked websocket conns are not tracked by http.Server
	a.WS.CloseAll()
	_ = httpSrv.Shutdown(shCtx)

	stopWork()
	select {
	case <-schedDone:
	case <-shCtx.Done():
		logger.Warn("scheduler did not stop in time")
	}
	if a.Ingest != nil {
		_ = a.Ingest.Sub.Close()
	}

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye", zap.Int("connections_left", a.Registry.Count()))
}
