package service

import (
	"context"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/pkg/cache"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/ratelimit"

	"gorm.io/gorm"
)

type Service struct {
	SyncService      *SyncService
	SchedulerService SchedulerService
	Freshness        *FreshnessEngine
	Staging          *StagingCache
	Persister        *Persister
}

func NewService(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	db *gorm.DB,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	pacer *ratelimit.Pacer,
) (*Service, error) {
	freshness := NewFreshnessEngine(cfg, repo.RawResponseRepo, inmemoryCache, log)
	extractor := NewExtractor(cfg, log)
	quality := NewQualityGate(cfg, log)
	staging := NewStagingCache(cfg, log)

	persister, err := NewPersister(ctx, db, repo, log)
	if err != nil {
		return nil, err
	}

	syncService := NewSyncService(repo, freshness, extractor, quality, staging, persister, pacer, log)
	schedulerService := NewSchedulerService(cfg, log, syncService, repo)

	return &Service{
		SyncService:      syncService,
		SchedulerService: schedulerService,
		Freshness:        freshness,
		Staging:          staging,
		Persister:        persister,
	}, nil
}
