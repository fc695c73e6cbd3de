package repository

import (
	"context"
	"errors"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/model"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/utils"

	"gorm.io/gorm"
)

const maxDescriptionLen = 5000

type StockRepository interface {
	GetByTicker(ctx context.Context, ticker string, opts ...utils.DBOption) (*model.Stock, error)
	GetOrCreate(ctx context.Context, ticker string, info dto.CompanyInfo, opts ...utils.DBOption) (*model.Stock, error)
	Enrich(ctx context.Context, stock *model.Stock, info dto.CompanyInfo, opts ...utils.DBOption) error
}

type stockRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStockRepository(db *gorm.DB, log *logger.Logger) StockRepository {
	return &stockRepository{db: db, log: log}
}

func (s *stockRepository) GetByTicker(ctx context.Context, ticker string, opts ...utils.DBOption) (*model.Stock, error) {
	db := utils.ApplyOptions(s.db, opts...)

	var stock model.Stock
	err := db.WithContext(ctx).Where("ticker = ?", ticker).First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

// GetOrCreate resolves the stock identity for a ticker, creating the record
// with placeholder descriptive fields when it does not exist. A duplicate-key
// violation on create means another writer got there first; the existing row
// is re-read instead of failing.
func (s *stockRepository) GetOrCreate(ctx context.Context, ticker string, info dto.CompanyInfo, opts ...utils.DBOption) (*model.Stock, error) {
	if err := model.ValidateTicker(ticker); err != nil {
		return nil, err
	}

	existing, err := s.GetByTicker(ctx, ticker, opts...)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if info.CompanyName != "" && info.CompanyName != ticker {
			if err := s.Enrich(ctx, existing, info, opts...); err != nil {
				// Enrichment is best effort, never worth failing the insert over.
				s.log.Warn("Failed to enrich stock record",
					logger.StringField("ticker", ticker),
					logger.ErrorField(err),
				)
			}
		}
		return existing, nil
	}

	stock := &model.Stock{
		Ticker:      ticker,
		CompanyName: firstNonEmpty(info.CompanyName, ticker),
		Description: clip(info.Description, maxDescriptionLen),
		Industry:    info.Industry,
		Sector:      info.Sector,
		Country:     info.Country,
	}

	db := utils.ApplyOptions(s.db, opts...)
	if err := db.WithContext(ctx).Create(stock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.Warn("Stock creation race, re-reading existing row",
				logger.StringField("ticker", ticker),
			)
			return s.GetByTicker(ctx, ticker, opts...)
		}
		return nil, err
	}

	s.log.Info("Created stock record",
		logger.StringField("ticker", ticker),
		logger.Field("stock_id", stock.ID),
	)
	return stock, nil
}

// Enrich updates descriptive fields, but only where the incoming value is
// real data and the existing value is empty or still the ticker placeholder.
func (s *stockRepository) Enrich(ctx context.Context, stock *model.Stock, info dto.CompanyInfo, opts ...utils.DBOption) error {
	updates := map[string]interface{}{}

	if info.CompanyName != "" && info.CompanyName != stock.Ticker &&
		(stock.CompanyName == "" || stock.CompanyName == stock.Ticker) {
		updates["company_name"] = info.CompanyName
	}
	if info.Description != "" && stock.Description == "" {
		updates["description"] = clip(info.Description, maxDescriptionLen)
	}
	if info.Industry != "" && stock.Industry == "" {
		updates["industry"] = info.Industry
	}
	if info.Sector != "" && stock.Sector == "" {
		updates["sector"] = info.Sector
	}
	if info.Country != "" && stock.Country == "" {
		updates["country"] = info.Country
	}

	if len(updates) == 0 {
		return nil
	}

	db := utils.ApplyOptions(s.db, opts...)
	return db.WithContext(ctx).Model(&model.Stock{}).Where("id = ?", stock.ID).Updates(updates).Error
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
