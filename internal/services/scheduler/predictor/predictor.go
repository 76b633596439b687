// Package predictor supplies upcoming ISS passes to the alert job.
package predictor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

const (
	KindSimulated = "simulated"
	KindHTTP      = "http"
)

type Config struct {
	Kind      string        `mapstructure:"kind"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	Seed      int64         `mapstructure:"seed"`
}

type Predictor interface {
	NextPass(ctx context.Context, now time.Time) (*notification.ISSPass, error)
}

func New(cfg Config, log *zap.Logger) (Predictor, error) {
	switch cfg.Kind {
	case "", KindSimulated:
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return NewSimulated(seed), nil
	case KindHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("predictor: http kind needs url")
		}
		return NewHTTP(cfg, log), nil
	default:
		return nil, fmt.Errorf("predictor: unknown kind %q", cfg.Kind)
	}
}
