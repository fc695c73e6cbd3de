package model

import "time"

// Fundamentals holds one normalized quarterly snapshot per (stock, fiscal date).
// Missing numerics are nil, never a NaN sentinel. Re-fetching the same fiscal
// date replaces the prior row.
type Fundamentals struct {
	ID               uint      `gorm:"primarykey"`
	StockID          uint      `gorm:"not null;uniqueIndex:idx_fundamentals_stock_fiscal"`
	FiscalDateEnding time.Time `gorm:"type:date;not null;uniqueIndex:idx_fundamentals_stock_fiscal"`

	MarketCap *float64

	// Balance sheet, point in time from the most recent quarter.
	TotalDebt           *float64
	CashEquivalents     *float64
	TotalAssets         *float64
	WorkingCapital      *float64
	LongTermInvestments *float64

	// Trailing twelve months, present only when all 4 quarters contributed.
	EBITDATTM          *float64 `gorm:"column:ebitda_ttm"`
	RevenueTTM         *float64 `gorm:"column:revenue_ttm"`
	InterestExpenseTTM *float64 `gorm:"column:interest_expense_ttm"`
	CashFlowOpsTTM     *float64 `gorm:"column:cash_flow_ops_ttm"`

	// Single-quarter flow figures for rate calculations.
	CashFlowOpsQ           *float64 `gorm:"column:cash_flow_ops_q"`
	InterestExpenseQ       *float64 `gorm:"column:interest_expense_q"`
	ChangeInWorkingCapital *float64

	// Annual fallbacks, populated only when the quarterly-derived value is absent.
	EBITDAAnnual    *float64 `gorm:"column:ebitda_annual"`
	TotalDebtAnnual *float64

	EffectiveTaxRate *float64
	DataSource       string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Fundamentals) TableName() string {
	return "fundamentals"
}
