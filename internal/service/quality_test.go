package service

import (
	"testing"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"

	"github.com/stretchr/testify/assert"
)

func richFundamentals() *dto.ExtractedFundamentals {
	return &dto.ExtractedFundamentals{
		Ticker:           "AAPL",
		FiscalDateEnding: "2026-03-31",

		TotalDebt:           fptr(4000),
		CashEquivalents:     fptr(500),
		TotalAssets:         fptr(10000),
		WorkingCapital:      fptr(2000),
		LongTermInvestments: fptr(200),

		EBITDATTM:      fptr(400),
		RevenueTTM:     fptr(1600),
		CashFlowOpsTTM: fptr(1000),

		CashFlowOpsQ:     fptr(250),
		InterestExpenseQ: fptr(10),

		EffectiveTaxRate: fptr(0.21),

		EPSHistory: []dto.EpsQuarter{
			{FiscalDateEnding: "2026-03-31", ReportedEPS: "1.50", Value: fptr(1.5)},
		},
	}
}

func TestQualityGate_IsAcceptable(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(f *dto.ExtractedFundamentals)
		wantOK     bool
		wantReason string
	}{
		{
			name:   "rich record passes",
			mutate: func(f *dto.ExtractedFundamentals) {},
			wantOK: true,
		},
		{
			name: "sparse record rejected",
			mutate: func(f *dto.ExtractedFundamentals) {
				*f = dto.ExtractedFundamentals{
					Ticker:      "AAPL",
					TotalAssets: fptr(10000),
					EPSHistory:  f.EPSHistory,
				}
			},
			wantOK:     false,
			wantReason: "insufficient data quality: only 2 valid fields (minimum 10)",
		},
		{
			name: "missing total assets rejected",
			mutate: func(f *dto.ExtractedFundamentals) {
				f.TotalAssets = nil
				f.RevenueTTM = fptr(1600)
				f.InterestExpenseTTM = fptr(40)
			},
			wantOK:     false,
			wantReason: "total assets should be positive",
		},
		{
			name: "non-positive total assets rejected",
			mutate: func(f *dto.ExtractedFundamentals) {
				f.TotalAssets = fptr(0)
			},
			wantOK:     false,
			wantReason: "total assets should be positive",
		},
		{
			name: "empty EPS history rejected",
			mutate: func(f *dto.ExtractedFundamentals) {
				f.EPSHistory = nil
				f.MarketCap = fptr(1)
			},
			wantOK:     false,
			wantReason: "need at least 1 quarter of EPS data",
		},
	}

	gate := NewQualityGate(&config.Config{Quality: config.Quality{MinPopulatedFields: 10}}, newTestLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := richFundamentals()
			tt.mutate(f)

			ok, reason := gate.IsAcceptable(f)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}
