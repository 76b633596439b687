package ingest_worker_config

import (
	"github.com/NordCoder/Skywatch/internal/obs"
	kafkax "github.com/NordCoder/Skywatch/internal/repository/kafka"
	pginfra "github.com/NordCoder/Skywatch/internal/repository/postgres"
)

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	DB       pginfra.Config `mapstructure:"db"`
	In       kafkax.Config  `mapstructure:"kafka_in"`
	OTEL     obs.OTELConfig `mapstructure:"otel"`
	Server   Server         `mapstructure:"server"`
	LogLevel string         `mapstructure:"log_level"`
}
