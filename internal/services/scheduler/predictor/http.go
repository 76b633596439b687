package predictor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/obs"
)

// HTTP polls an upstream pass service. 204 means no upcoming pass.
type HTTP struct {
	c   *http.Client
	cfg Config
	log *zap.Logger
}

func NewHTTP(cfg Config, log *zap.Logger) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}
	return &HTTP{
		c:   &http.Client{Timeout: cfg.Timeout, Transport: obs.HTTPTransport(transport)},
		cfg: cfg,
		log: log.With(zap.String("component", "predictor.http")),
	}
}

func (p *HTTP) NextPass(ctx context.Context, now time.Time) (*notification.ISSPass, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictor request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("predictor status %d: %s", resp.StatusCode, body)
	}

	var pass notification.ISSPass
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pass); err != nil {
		return nil, fmt.Errorf("decode pass: %w", err)
	}
	if pass.StartTime.IsZero() || !pass.EndTime.After(pass.StartTime) {
		return nil, fmt.Errorf("predictor returned malformed pass window")
	}
	if pass.EndTime.Before(now) {
		p.log.Debug("stale pass ignored", zap.Time("end", pass.EndTime))
		return nil, nil
	}
	return &pass, nil
}
