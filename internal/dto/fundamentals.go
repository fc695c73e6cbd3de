package dto

// EpsQuarter carries one quarterly EPS entry: the fiscal date, the raw string
// as reported, and the parsed value (nil when unparseable). Consumers skip
// entries with an absent date or a nil value.
type EpsQuarter struct {
	FiscalDateEnding string
	ReportedEPS      string
	Value            *float64
}

// CompanyInfo is descriptive data used to enrich the stock master record.
// Fields may be empty; empty values never overwrite existing data.
type CompanyInfo struct {
	CompanyName string
	Description string
	Industry    string
	Sector      string
	Country     string
}

// ExtractedFundamentals is the normalized record produced from the four raw
// endpoint payloads. Missing numerics are nil.
type ExtractedFundamentals struct {
	Ticker           string
	FiscalDateEnding string
	Company          CompanyInfo

	MarketCap *float64 // filled later by a price fetcher, always nil here

	// Balance sheet, most recent quarter.
	TotalDebt           *float64
	CashEquivalents     *float64
	TotalAssets         *float64
	WorkingCapital      *float64
	LongTermInvestments *float64

	// Trailing twelve months.
	EBITDATTM          *float64
	RevenueTTM         *float64
	InterestExpenseTTM *float64
	CashFlowOpsTTM     *float64

	// Most recent quarter flows.
	CashFlowOpsQ           *float64
	InterestExpenseQ       *float64
	ChangeInWorkingCapital *float64

	// Annual fallbacks.
	EBITDAAnnual    *float64
	TotalDebtAnnual *float64

	EffectiveTaxRate *float64

	EPSHistory []EpsQuarter
}

// PopulatedFieldCount counts fields carrying data, excluding the identifier
// fields (ticker, fiscal date). List-valued fields count when non-empty.
func (f *ExtractedFundamentals) PopulatedFieldCount() int {
	count := 0
	for _, v := range []*float64{
		f.MarketCap,
		f.TotalDebt, f.CashEquivalents, f.TotalAssets, f.WorkingCapital, f.LongTermInvestments,
		f.EBITDATTM, f.RevenueTTM, f.InterestExpenseTTM, f.CashFlowOpsTTM,
		f.CashFlowOpsQ, f.InterestExpenseQ, f.ChangeInWorkingCapital,
		f.EBITDAAnnual, f.TotalDebtAnnual,
		f.EffectiveTaxRate,
	} {
		if v != nil {
			count++
		}
	}
	if len(f.EPSHistory) > 0 {
		count++
	}
	return count
}
