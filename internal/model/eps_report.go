package model

import "time"

// EpsReport is one reported earnings-per-share value per (stock, fiscal date).
type EpsReport struct {
	ID               uint      `gorm:"primarykey"`
	StockID          uint      `gorm:"not null;uniqueIndex:idx_eps_stock_fiscal"`
	FiscalDateEnding time.Time `gorm:"type:date;not null;uniqueIndex:idx_eps_stock_fiscal"`
	ReportedEPS      float64   `gorm:"column:reported_eps;not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (EpsReport) TableName() string {
	return "eps_reports"
}
