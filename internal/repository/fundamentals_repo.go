package repository

import (
	"context"

	"stock-fundamentals/internal/model"
	"stock-fundamentals/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FundamentalsRepository interface {
	Upsert(ctx context.Context, row *model.Fundamentals, opts ...utils.DBOption) error
	GetByStockAndFiscalDate(ctx context.Context, stockID uint, fiscalDate string, opts ...utils.DBOption) (*model.Fundamentals, error)
}

type fundamentalsRepository struct {
	db *gorm.DB
}

func NewFundamentalsRepository(db *gorm.DB) FundamentalsRepository {
	return &fundamentalsRepository{db: db}
}

// Upsert replaces any prior row for the same (stock, fiscal date); re-fetching
// the same quarter never creates a duplicate.
func (f *fundamentalsRepository) Upsert(ctx context.Context, row *model.Fundamentals, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(f.db, opts...)
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "fiscal_date_ending"}},
		UpdateAll: true,
	}).Create(row).Error
}

func (f *fundamentalsRepository) GetByStockAndFiscalDate(ctx context.Context, stockID uint, fiscalDate string, opts ...utils.DBOption) (*model.Fundamentals, error) {
	db := utils.ApplyOptions(f.db, opts...)

	var row model.Fundamentals
	err := db.WithContext(ctx).
		Where("stock_id = ? AND fiscal_date_ending = ?", stockID, fiscalDate).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
