package repository

import (
	"stock-fundamentals/config"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/ratelimit"

	"gorm.io/gorm"
)

type Repository struct {
	AlphaVantageRepo AlphaVantageRepository
	StockRepo        StockRepository
	FundamentalsRepo FundamentalsRepository
	EpsRepo          EpsRepository
	RawResponseRepo  RawResponseRepository
	SessionLogRepo   SessionLogRepository
	UnitOfWork       UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger, pacer *ratelimit.Pacer) *Repository {
	return &Repository{
		AlphaVantageRepo: NewAlphaVantageRepository(cfg, log, pacer),
		StockRepo:        NewStockRepository(db, log),
		FundamentalsRepo: NewFundamentalsRepository(db),
		EpsRepo:          NewEpsRepository(db),
		RawResponseRepo:  NewRawResponseRepository(db),
		SessionLogRepo:   NewSessionLogRepository(db),
		UnitOfWork:       NewUnitOfWork(db),
	}
}
