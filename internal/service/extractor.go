package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"
	"stock-fundamentals/pkg/logger"
)

// ErrNoReportData signals that none of the four endpoints carried any report
// data for the ticker.
var ErrNoReportData = errors.New("no report data available in any endpoint")

const statutoryTaxRate = 0.21

// Extractor transforms raw endpoint payloads into a normalized fundamentals
// record: point-in-time balance sheet figures from the latest quarter,
// trailing-twelve-month flow sums, quarterly deltas, a derived effective tax
// rate and the recent EPS history.
type Extractor struct {
	cfg *config.Config
	log *logger.Logger
}

func NewExtractor(cfg *config.Config, log *logger.Logger) *Extractor {
	return &Extractor{cfg: cfg, log: log}
}

func (e *Extractor) Extract(ticker string, payloads dto.RawPayloads) (*dto.ExtractedFundamentals, error) {
	var income, balance, cashflow dto.StatementResponse
	var earnings dto.EarningsResponse

	// Bodies were validated structurally at fetch time; a failure here just
	// leaves the corresponding report lists empty.
	_ = json.Unmarshal(payloads[dto.EndpointIncomeStatement], &income)
	_ = json.Unmarshal(payloads[dto.EndpointBalanceSheet], &balance)
	_ = json.Unmarshal(payloads[dto.EndpointCashFlow], &cashflow)
	_ = json.Unmarshal(payloads[dto.EndpointEarnings], &earnings)

	if len(income.QuarterlyReports) == 0 && len(income.AnnualReports) == 0 &&
		len(balance.QuarterlyReports) == 0 && len(balance.AnnualReports) == 0 &&
		len(cashflow.QuarterlyReports) == 0 && len(cashflow.AnnualReports) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoReportData)
	}

	fiscalDate := mostRecentFiscalDate(income.QuarterlyReports, balance.QuarterlyReports, cashflow.QuarterlyReports)

	currentAssets := fieldAt(balance.QuarterlyReports, 0, "totalCurrentAssets")
	currentLiabilities := fieldAt(balance.QuarterlyReports, 0, "totalCurrentLiabilities")
	var workingCapital *float64
	if currentAssets != nil && currentLiabilities != nil {
		wc := *currentAssets - *currentLiabilities
		workingCapital = &wc
	}

	ebitdaTTM := rollingFourQuarterSum(income.QuarterlyReports, "ebitda")
	totalDebt := fieldAt(balance.QuarterlyReports, 0, "totalLiabilities")

	epsCount := e.cfg.AlphaVantage.MinEPSQuarters
	if epsCount <= 0 {
		epsCount = 5
	}

	f := &dto.ExtractedFundamentals{
		Ticker:           ticker,
		FiscalDateEnding: fiscalDate,

		TotalDebt:           totalDebt,
		CashEquivalents:     fieldAt(balance.QuarterlyReports, 0, "cashAndCashEquivalentsAtCarryingValue"),
		TotalAssets:         fieldAt(balance.QuarterlyReports, 0, "totalAssets"),
		WorkingCapital:      workingCapital,
		LongTermInvestments: fieldAt(balance.QuarterlyReports, 0, "longTermInvestments"),

		EBITDATTM:          ebitdaTTM,
		RevenueTTM:         rollingFourQuarterSum(income.QuarterlyReports, "totalRevenue"),
		InterestExpenseTTM: rollingFourQuarterSum(income.QuarterlyReports, "interestExpense"),
		CashFlowOpsTTM:     rollingFourQuarterSum(cashflow.QuarterlyReports, "operatingCashflow"),

		CashFlowOpsQ:           fieldAt(cashflow.QuarterlyReports, 0, "operatingCashflow"),
		InterestExpenseQ:       fieldAt(income.QuarterlyReports, 0, "interestExpense"),
		ChangeInWorkingCapital: fieldAt(cashflow.QuarterlyReports, 0, "changeInWorkingCapital"),

		EffectiveTaxRate: effectiveTaxRate(
			fieldAt(income.QuarterlyReports, 0, "incomeTaxExpense"),
			fieldAt(income.QuarterlyReports, 0, "incomeBeforeTax"),
		),

		EPSHistory: extractEPSHistory(earnings.QuarterlyEarnings, epsCount),
	}

	// Annual figures are fallbacks only: populated when the quarterly-derived
	// value is absent, nil otherwise.
	if ebitdaTTM == nil {
		f.EBITDAAnnual = fieldAt(income.AnnualReports, 0, "ebitda")
	}
	if totalDebt == nil {
		f.TotalDebtAnnual = fieldAt(balance.AnnualReports, 0, "totalLiabilities")
	}

	e.log.Debug("Extracted fundamentals",
		logger.StringField("ticker", ticker),
		logger.StringField("fiscal_date", fiscalDate),
		logger.IntField("populated_fields", f.PopulatedFieldCount()),
	)

	return f, nil
}

// parseNumeric converts an API string figure to a float, treating empty,
// "None" and unparseable values as absent.
func parseNumeric(s string) *float64 {
	if s == "" || s == "None" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func fieldAt(reports []dto.StatementReport, index int, field string) *float64 {
	if index >= len(reports) {
		return nil
	}
	return parseNumeric(reports[index][field])
}

// rollingFourQuarterSum sums the 4 most recent quarterly values of a flow
// metric. Partial data yields no sum at all: the result is present only when
// every one of the 4 quarters contributed a parseable value.
func rollingFourQuarterSum(reports []dto.StatementReport, field string) *float64 {
	total := 0.0
	count := 0
	for i := 0; i < 4 && i < len(reports); i++ {
		if v := fieldAt(reports, i, field); v != nil {
			total += *v
			count++
		}
	}
	if count != 4 {
		return nil
	}
	return &total
}

// mostRecentFiscalDate picks the most frequent fiscalDateEnding across the
// first quarterly report of each statement endpoint, falling back to any
// available date. Statement endpoints occasionally disagree by a day or two;
// the mode is the consensus.
func mostRecentFiscalDate(reportLists ...[]dto.StatementReport) string {
	var dates []string
	for _, reports := range reportLists {
		if len(reports) > 0 {
			if date := reports[0]["fiscalDateEnding"]; date != "" {
				dates = append(dates, date)
			}
		}
	}
	if len(dates) == 0 {
		return ""
	}

	counts := make(map[string]int, len(dates))
	for _, d := range dates {
		counts[d]++
	}
	best := dates[0]
	for _, d := range dates {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// effectiveTaxRate derives the tax rate from the most recent quarter with
// fallback rules: missing inputs or zero pre-tax income default to the
// statutory rate; negative tax on positive income is non-representative and
// also falls back; a loss with a tax benefit is treated as a 0% rate.
func effectiveTaxRate(taxExpense, preTaxIncome *float64) *float64 {
	rate := statutoryTaxRate
	switch {
	case taxExpense == nil || preTaxIncome == nil || *preTaxIncome == 0:
		// statutory
	case *preTaxIncome > 0:
		if *taxExpense >= 0 {
			rate = *taxExpense / *preTaxIncome
		}
	default: // pre-tax income < 0
		if *taxExpense > 0 {
			rate = 0.0
		}
	}
	return &rate
}

// extractEPSHistory keeps up to count of the most recent quarterly earnings,
// carrying the raw string alongside the parsed value so unparseable entries
// can be skipped downstream without losing provenance.
func extractEPSHistory(quarters []dto.QuarterlyEarning, count int) []dto.EpsQuarter {
	if count > len(quarters) {
		count = len(quarters)
	}
	history := make([]dto.EpsQuarter, 0, count)
	for i := 0; i < count; i++ {
		history = append(history, dto.EpsQuarter{
			FiscalDateEnding: quarters[i].FiscalDateEnding,
			ReportedEPS:      quarters[i].ReportedEPS,
			Value:            parseNumeric(quarters[i].ReportedEPS),
		})
	}
	return history
}
