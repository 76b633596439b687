package notify_hub_config

import (
	"time"

	"github.com/NordCoder/Skywatch/internal/auth"
	"github.com/NordCoder/Skywatch/internal/obs"
	kafkax "github.com/NordCoder/Skywatch/internal/repository/kafka"
	pg "github.com/NordCoder/Skywatch/internal/repository/postgres"
	"github.com/NordCoder/Skywatch/internal/services/realtime"
	"github.com/NordCoder/Skywatch/internal/services/scheduler/predictor"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// Server has no write timeout: websocket writes carry their own deadlines.
type Server struct {
	HTTPAddr          string        `mapstructure:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout   time.Duration `mapstructure:"graceful_timeout"`
	InternalToken     string        `mapstructure:"internal_token"`
}

type Store struct {
	Driver string `mapstructure:"driver"`
	// Migrate applies embedded migrations on start.
	Migrate bool `mapstructure:"migrate"`
	// Users seeds the memory user directory.
	Users []DevUser `mapstructure:"users"`
}

type DevUser struct {
	ID        int64  `mapstructure:"id"`
	Username  string `mapstructure:"username"`
	ISSAlerts bool   `mapstructure:"iss_alerts"`
}

type Kafka struct {
	Enable        bool `mapstructure:"enable"`
	kafkax.Config `mapstructure:",squash"`
}

type Sched struct {
	RunOnStart        bool          `mapstructure:"run_on_start"`
	DueInterval       time.Duration `mapstructure:"due_interval"`
	DueBatch          int           `mapstructure:"due_batch"`
	RetentionInterval time.Duration `mapstructure:"retention_interval"`
	RetentionWindow   time.Duration `mapstructure:"retention_window"`
	PurgeExpired      bool          `mapstructure:"purge_expired"`
	ISSEnable         bool          `mapstructure:"iss_enable"`
	ISSInterval       time.Duration `mapstructure:"iss_interval"`
	ISSMinElevation   float64       `mapstructure:"iss_min_elevation"`
}

type Config struct {
	App       App              `mapstructure:"app"`
	Server    Server           `mapstructure:"server"`
	WS        realtime.Config  `mapstructure:"ws"`
	DB        pg.Config        `mapstructure:"db"`
	Store     Store            `mapstructure:"store"`
	OTEL      obs.OTELConfig   `mapstructure:"otel"`
	Log       obs.LogConfig    `mapstructure:"log"`
	Auth      auth.TokenConfig `mapstructure:"auth"`
	Kafka     Kafka            `mapstructure:"kafka"`
	Sched     Sched            `mapstructure:"sched"`
	Predictor predictor.Config `mapstructure:"predictor"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	lc := c.Log
	lc.App = c.App.Name
	lc.Env = c.App.Env
	lc.Ver = c.App.Version
	return lc
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
