package repository

import (
	"context"
	"database/sql"
	"time"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/model"
	"stock-fundamentals/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RawResponseRepository interface {
	Upsert(ctx context.Context, rows []model.RawResponse, opts ...utils.DBOption) error
	// LastCompleteFetchDate returns the most recent date on which all four
	// endpoints were fetched successfully for the ticker, or nil when the
	// ticker has never had a complete fetch.
	LastCompleteFetchDate(ctx context.Context, ticker string) (*time.Time, error)
}

type rawResponseRepository struct {
	db *gorm.DB
}

func NewRawResponseRepository(db *gorm.DB) RawResponseRepository {
	return &rawResponseRepository{db: db}
}

func (r *rawResponseRepository) Upsert(ctx context.Context, rows []model.RawResponse, opts ...utils.DBOption) error {
	if len(rows) == 0 {
		return nil
	}
	db := utils.ApplyOptions(r.db, opts...)
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "date_fetched"}, {Name: "endpoint_key"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

func (r *rawResponseRepository) LastCompleteFetchDate(ctx context.Context, ticker string) (*time.Time, error) {
	query := `
		WITH complete_fetches AS (
			SELECT date_fetched
			FROM raw_api_responses
			WHERE ticker = ?
				AND http_status_code = 200
				AND endpoint_key IN (?, ?, ?, ?)
			GROUP BY date_fetched
			HAVING COUNT(DISTINCT endpoint_key) = 4
		)
		SELECT MAX(date_fetched) FROM complete_fetches`

	var last sql.NullTime
	err := r.db.WithContext(ctx).Raw(query,
		ticker,
		dto.EndpointIncomeStatement,
		dto.EndpointBalanceSheet,
		dto.EndpointCashFlow,
		dto.EndpointEarnings,
	).Scan(&last).Error
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
