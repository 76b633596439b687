package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Skywatch/internal/config/notify-hub"
	"github.com/NordCoder/Skywatch/internal/domain/notification"
	"github.com/NordCoder/Skywatch/internal/domain/user"
	"github.com/NordCoder/Skywatch/internal/obs"
	"github.com/NordCoder/Skywatch/internal/obs/retry"
	"github.com/NordCoder/Skywatch/internal/repository/memory"
	pg "github.com/NordCoder/Skywatch/internal/repository/postgres"
)

type storage struct {
	Notifications notification.Repo
	Users         user.Directory
	Checks        map[string]obs.HealthFunc
	Close         func()
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.Store.Driver == config.DriverMemory {
		dir := memory.NewUserDirectory()
		for _, u := range cfg.Store.Users {
			dir.Put(user.User{ID: u.ID, Username: u.Username, IsActive: true, ISSAlerts: u.ISSAlerts})
		}
		logger.Warn("using in-memory store; data is lost on restart", zap.Int("users", len(cfg.Store.Users)))
		return &storage{
			Notifications: memory.NewNotificationRepo(),
			Users:         dir,
			Checks:        map[string]obs.HealthFunc{},
			Close:         func() {},
		}, nil
	}

	var db *pg.DB
	err := retry.Do(ctx, func() error {
		var e error
		db, e = pg.NewDB(ctx, cfg.DB)
		return e
	}, retry.StartupPolicy("postgres", logger))
	if err != nil {
		return nil, err
	}
	logger.Info("db connected")

	if cfg.Store.Migrate {
		if err := pg.Migrate(ctx, cfg.DB.DSN); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	return &storage{
		Notifications: pg.NewNotificationRepo(db, pg.NewTransactor(db, logger)),
		Users:         pg.NewUserRepo(db),
		Checks:        map[string]obs.HealthFunc{"postgres": db.Ping},
		Close:         db.Close,
	}, nil
}
