package repository

import (
	"context"

	"stock-fundamentals/internal/model"
	"stock-fundamentals/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EpsRepository interface {
	Upsert(ctx context.Context, row *model.EpsReport, opts ...utils.DBOption) error
	ListByStock(ctx context.Context, stockID uint, opts ...utils.DBOption) ([]model.EpsReport, error)
}

type epsRepository struct {
	db *gorm.DB
}

func NewEpsRepository(db *gorm.DB) EpsRepository {
	return &epsRepository{db: db}
}

func (e *epsRepository) Upsert(ctx context.Context, row *model.EpsReport, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(e.db, opts...)
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_id"}, {Name: "fiscal_date_ending"}},
		UpdateAll: true,
	}).Create(row).Error
}

func (e *epsRepository) ListByStock(ctx context.Context, stockID uint, opts ...utils.DBOption) ([]model.EpsReport, error) {
	db := utils.ApplyOptions(e.db, opts...)

	var rows []model.EpsReport
	err := db.WithContext(ctx).
		Where("stock_id = ?", stockID).
		Order("fiscal_date_ending DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
