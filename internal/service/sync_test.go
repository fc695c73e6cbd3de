package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/pkg/ratelimit"
	"stock-fundamentals/pkg/timeout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAlphaVantageRepo serves canned payloads per ticker, four calls each.
type fakeAlphaVantageRepo struct {
	mu       sync.Mutex
	payloads map[string]dto.RawPayloads
	errs     map[string]error
	fetched  []string
	calls    int
}

func (f *fakeAlphaVantageRepo) FetchTickerData(ctx context.Context, ticker string) (dto.RawPayloads, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, ticker)
	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	f.calls += len(dto.EndpointKeys)
	return f.payloads[ticker], nil
}

func (f *fakeAlphaVantageRepo) CallsMade() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func minimalPayloads() dto.RawPayloads {
	balance := statementJSON(dto.StatementResponse{
		QuarterlyReports: []dto.StatementReport{
			{"fiscalDateEnding": "2026-03-31", "totalAssets": "10000"},
		},
	})
	earnings := earningsJSON(dto.EarningsResponse{
		QuarterlyEarnings: []dto.QuarterlyEarning{
			{FiscalDateEnding: "2026-03-31", ReportedEPS: "1.50"},
		},
	})
	return dto.RawPayloads{
		dto.EndpointBalanceSheet: balance,
		dto.EndpointEarnings:     earnings,
	}
}

type syncFixture struct {
	sync    *SyncService
	av      *fakeAlphaVantageRepo
	raw     *fakeRawResponseRepo
	staging *StagingCache
	pacer   *ratelimit.Pacer
	audit   *fakeSessionLogRepo
}

func newSyncFixture() *syncFixture {
	cfg := &config.Config{
		AlphaVantage: config.AlphaVantage{MinEPSQuarters: 5},
		Freshness:    config.Freshness{MinRefreshDays: 90, ForceRefreshDays: 365},
		Staging:      config.Staging{TTL: 24 * time.Hour, CleanupInterval: 5 * time.Minute},
		Quality:      config.Quality{MinPopulatedFields: 1},
	}
	log := newTestLogger()

	av := &fakeAlphaVantageRepo{payloads: map[string]dto.RawPayloads{}, errs: map[string]error{}}
	raw := &fakeRawResponseRepo{lastFetch: map[string]*time.Time{}}
	audit := &fakeSessionLogRepo{}
	uow := &fakeUnitOfWork{}

	repo := &repository.Repository{
		AlphaVantageRepo: av,
		StockRepo:        newFakeStockRepo(),
		FundamentalsRepo: &fakeFundamentalsRepo{},
		EpsRepo:          &fakeEpsRepo{},
		RawResponseRepo:  raw,
		SessionLogRepo:   audit,
		UnitOfWork:       uow,
	}

	freshness := NewFreshnessEngine(cfg, raw, newMapCache(), log)
	staging := NewStagingCache(cfg, log)
	pacer := ratelimit.NewPacer(time.Millisecond, 8.0)
	persister := &Persister{repo: repo, log: log}

	syncService := NewSyncService(repo, freshness, NewExtractor(cfg, log), NewQualityGate(cfg, log), staging, persister, pacer, log)

	return &syncFixture{
		sync:    syncService,
		av:      av,
		raw:     raw,
		staging: staging,
		pacer:   pacer,
		audit:   audit,
	}
}

func TestSyncService_Run(t *testing.T) {
	fx := newSyncFixture()
	fx.av.payloads["AAPL"] = minimalPayloads()
	fx.av.payloads["MSFT"] = minimalPayloads()

	summary, err := fx.sync.Run(context.Background(), []string{"AAPL", "MSFT"}, SyncOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, []string{"AAPL", "MSFT"}, summary.Fetch.Successful)
	assert.Empty(t, summary.FailedTickers)
	assert.Equal(t, 8, summary.Fetch.APICallsMade)

	require.NotNil(t, summary.Persist)
	assert.Equal(t, []string{"AAPL", "MSFT"}, summary.Persist.Successes)
	assert.Equal(t, 0, fx.staging.Status().Size, "persisted tickers are cleared from staging")
	assert.Equal(t, 1.0, summary.BackoffMultiplier)
	assert.NotEmpty(t, fx.audit.messages)
}

func TestSyncService_Run_FailureDoublesBackoff(t *testing.T) {
	fx := newSyncFixture()
	fx.av.payloads["AAPL"] = minimalPayloads()
	fx.av.errs["BAD"] = errors.New("endpoint EARNINGS failed")

	summary, err := fx.sync.Run(context.Background(), []string{"AAPL", "BAD"}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, summary.Fetch.Successful)
	assert.Equal(t, []string{"BAD"}, summary.Fetch.Failed)
	assert.Equal(t, []string{"BAD"}, summary.FailedTickers)
	assert.Equal(t, 2.0, summary.BackoffMultiplier)
}

func TestSyncService_Run_QualityRejectionFailsTicker(t *testing.T) {
	fx := newSyncFixture()

	// Balance sheet with non-positive assets fails the business checks.
	fx.av.payloads["AAPL"] = dto.RawPayloads{
		dto.EndpointBalanceSheet: statementJSON(dto.StatementResponse{
			QuarterlyReports: []dto.StatementReport{
				{"fiscalDateEnding": "2026-03-31", "totalAssets": "-5"},
			},
		}),
	}

	summary, err := fx.sync.Run(context.Background(), []string{"AAPL"}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, summary.Fetch.Failed)
	assert.Equal(t, 0, fx.staging.Status().Size, "rejected data is never staged")
}

func TestSyncService_Run_CredentialRejectionAborts(t *testing.T) {
	fx := newSyncFixture()
	fx.av.errs["AAPL"] = &repository.TerminalError{StatusCode: 401, Endpoint: dto.EndpointIncomeStatement}
	fx.av.payloads["MSFT"] = minimalPayloads()
	fx.av.payloads["GOOGL"] = minimalPayloads()

	summary, err := fx.sync.Run(context.Background(), []string{"AAPL", "MSFT", "GOOGL"}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, summary.Fetch.Failed)
	assert.Equal(t, []string{"AAPL"}, fx.av.fetched, "no further tickers attempted after a credential rejection")
}

func TestSyncService_Run_SkipsFreshTickers(t *testing.T) {
	fx := newSyncFixture()
	recent := time.Now().AddDate(0, 0, -10)
	fx.raw.lastFetch["AAPL"] = &recent
	fx.av.payloads["MSFT"] = minimalPayloads()

	summary, err := fx.sync.Run(context.Background(), []string{"AAPL", "MSFT"}, SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, summary.Fetch.Skipped)
	assert.Equal(t, []string{"MSFT"}, summary.Fetch.Successful)
	assert.Equal(t, []string{"MSFT"}, fx.av.fetched)
}

func TestSyncService_Run_ForceRefreshIgnoresFreshness(t *testing.T) {
	fx := newSyncFixture()
	recent := time.Now().AddDate(0, 0, -10)
	fx.raw.lastFetch["AAPL"] = &recent
	fx.av.payloads["AAPL"] = minimalPayloads()

	summary, err := fx.sync.Run(context.Background(), []string{"AAPL"}, SyncOptions{ForceRefresh: true})
	require.NoError(t, err)

	assert.Empty(t, summary.Fetch.Skipped)
	assert.Equal(t, []string{"AAPL"}, summary.Fetch.Successful)
}

func TestSyncService_Run_InvalidMode(t *testing.T) {
	fx := newSyncFixture()

	_, err := fx.sync.Run(context.Background(), []string{"AAPL"}, SyncOptions{TransactionMode: "bulk"})
	assert.Error(t, err)

	_, err = fx.sync.Run(context.Background(), nil, SyncOptions{})
	assert.Error(t, err)
}

func TestSyncService_PersistBudget(t *testing.T) {
	fx := newSyncFixture()
	log := newTestLogger()

	assert.False(t, fx.sync.persistBudgetExceeded(nil, 100), "no guard means no budget limit")

	guard := timeout.NewGuard(1, log)
	assert.False(t, fx.sync.persistBudgetExceeded(guard, 100), "inactive guard means no budget limit")

	guard.Start()
	defer guard.Stop()
	assert.False(t, fx.sync.persistBudgetExceeded(guard, 5), "5 tickers fit in a minute")
	assert.True(t, fx.sync.persistBudgetExceeded(guard, 100), "100 tickers do not fit in a minute")
}
