package cmd

import (
	"context"
	"time"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/internal/service"
	"stock-fundamentals/pkg/cache"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/postgres"
	"stock-fundamentals/pkg/ratelimit"

	"go.uber.org/zap"
)

type AppDependency struct {
	db       *postgres.DB
	cfg      *config.Config
	log      *logger.Logger
	cache    cache.Cache
	pacer    *ratelimit.Pacer
	repo     *repository.Repository
	services *service.Service
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	inmemoryCache := cache.NewCache(10*time.Minute, 15*time.Minute)
	pacer := ratelimit.NewPacer(cfg.AlphaVantage.MinInterval, cfg.AlphaVantage.MaxBackoff)
	repo := repository.NewRepository(cfg, db.DB, log, pacer)

	services, err := service.NewService(ctx, cfg, log, db.DB, repo, inmemoryCache, pacer)
	if err != nil {
		log.Error("Failed to create services", zap.Error(err))
		_ = db.Close()
		return nil, err
	}

	return &AppDependency{
		db:       db,
		cfg:      cfg,
		log:      log,
		cache:    inmemoryCache,
		pacer:    pacer,
		repo:     repo,
		services: services,
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	_ = d.log.Sync()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
