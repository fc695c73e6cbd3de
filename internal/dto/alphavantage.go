package dto

import "encoding/json"

// Logical endpoint keys for the four fundamentals endpoints fetched per ticker.
const (
	EndpointIncomeStatement = "INCOME_STATEMENT"
	EndpointBalanceSheet    = "BALANCE_SHEET"
	EndpointCashFlow        = "CASH_FLOW"
	EndpointEarnings        = "EARNINGS"
)

// EndpointKeys lists all endpoints in fetch order. A ticker fetch is complete
// only when every one of them succeeded on the same day.
var EndpointKeys = []string{
	EndpointIncomeStatement,
	EndpointBalanceSheet,
	EndpointCashFlow,
	EndpointEarnings,
}

// RawPayloads maps endpoint key to the verbatim response body.
type RawPayloads map[string]json.RawMessage

// StatementReport is a single report from a statement endpoint: a flat
// field-to-string map, values often "None" for absent figures.
type StatementReport map[string]string

// StatementResponse is the shape of the income statement, balance sheet and
// cash flow endpoints. Reports are ordered newest first.
type StatementResponse struct {
	Symbol           string            `json:"symbol"`
	AnnualReports    []StatementReport `json:"annualReports"`
	QuarterlyReports []StatementReport `json:"quarterlyReports"`

	// API-level error signaling inside a 200 response.
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// QuarterlyEarning is one quarterly entry from the earnings endpoint.
// ReportedEPS is a string and may be "None" or otherwise non-numeric.
type QuarterlyEarning struct {
	FiscalDateEnding string `json:"fiscalDateEnding"`
	ReportedEPS      string `json:"reportedEPS"`
}

// EarningsResponse is the shape of the earnings endpoint.
type EarningsResponse struct {
	Symbol            string             `json:"symbol"`
	QuarterlyEarnings []QuarterlyEarning `json:"quarterlyEarnings"`

	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}
