package main

import (
	"net/http"

	"go.uber.org/zap"

	config "github.com/NordCoder/Skywatch/internal/config/notify-hub"
	"github.com/NordCoder/Skywatch/internal/obs"
)

func buildHTTPServer(cfg *config.Config, a *app, st *storage) *http.Server {
	mux := http.NewServeMux()

	// websocket upgrades stay outside otelhttp: a span per connection
	// lifetime is useless
	wsPath := cfg.WS.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	mux.Handle(wsPath, a.WS)

	ops := obs.MetricsHandler(st.Checks)
	mux.Handle("/metrics", ops)
	mux.Handle("/healthz", ops)

	api := http.NewServeMux()
	a.Producer.Routes(api, cfg.Server.InternalToken)
	mux.Handle("/internal/", obs.HTTPHandler(api, "internal-api"))

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(s *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", s.Addr))
	return s.ListenAndServe()
}
