package dto

import "time"

// TransactionMode selects the persister's commit discipline.
type TransactionMode string

const (
	// TransactionModeAllOrNothing commits the whole batch in one transaction;
	// the first failure rolls everything back.
	TransactionModeAllOrNothing TransactionMode = "all-or-nothing"
	// TransactionModeIndividual commits each ticker independently.
	TransactionModeIndividual TransactionMode = "individual"
)

func (m TransactionMode) Valid() bool {
	return m == TransactionModeAllOrNothing || m == TransactionModeIndividual
}

// FetchDecision is the freshness engine's verdict for one ticker.
type FetchDecision struct {
	Ticker string
	Fetch  bool
	Reason string
}

// BatchResult summarizes one fetch pass over a ticker list.
type BatchResult struct {
	Successful     []string
	Failed         []string
	Skipped        []string
	TotalRequested int
	APICallsMade   int
}

// PersistFailure records one ticker that failed to persist and why.
type PersistFailure struct {
	Ticker string
	Error  string
}

// PersistResult summarizes one persistence pass over staged entries.
type PersistResult struct {
	Successes      []string
	Failures       []PersistFailure
	TotalAttempted int
}

// TickerAge pairs a ticker with the age of its last complete fetch in days.
type TickerAge struct {
	Ticker  string
	DaysOld int
}

// FreshnessReport buckets tickers by data age for observability. The buckets
// are independent of the fetch/skip decision.
type FreshnessReport struct {
	TotalTickers int
	NeverFetched []string
	Fresh        []TickerAge // < 30 days
	Stale        []TickerAge // 30-180 days
	VeryOld      []TickerAge // > 180 days
}

// StagingStatus describes the staging cache without forcing a cleanup pass.
type StagingStatus struct {
	Size           int
	OldestEntryAge time.Duration
	NextCleanupIn  time.Duration
}

// SyncSummary is the result of one full sync run.
type SyncSummary struct {
	SessionID         string
	Freshness         *FreshnessReport
	Fetch             BatchResult
	Persist           *PersistResult
	PersistSkipped    bool
	Duration          time.Duration
	FailedTickers     []string
	BackoffMultiplier float64
}
