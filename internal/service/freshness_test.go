package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-fundamentals/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFreshnessEngine(rawRepo *fakeRawResponseRepo) *FreshnessEngine {
	cfg := &config.Config{Freshness: config.Freshness{MinRefreshDays: 90, ForceRefreshDays: 365}}
	return NewFreshnessEngine(cfg, rawRepo, newMapCache(), newTestLogger())
}

func TestFreshnessEngine_Decide(t *testing.T) {
	now := mustDate("2026-06-30")

	daysAgo := func(d int) *time.Time {
		t := now.AddDate(0, 0, -d)
		return &t
	}

	tests := []struct {
		name       string
		lastFetch  *time.Time
		wantFetch  bool
		wantReason string
	}{
		{
			name:       "never fetched",
			lastFetch:  nil,
			wantFetch:  true,
			wantReason: "never fetched before",
		},
		{
			name:       "very old data forces a refresh",
			lastFetch:  daysAgo(400),
			wantFetch:  true,
			wantReason: "data is 400 days old (force refresh)",
		},
		{
			name:       "recently fetched",
			lastFetch:  daysAgo(89),
			wantFetch:  false,
			wantReason: "recently fetched (89 days ago, minimum is 90)",
		},
		{
			name:       "past minimum and a new quarter started",
			lastFetch:  daysAgo(100), // 2026-03-22, Q1
			wantFetch:  true,
			wantReason: "new quarter: 2026-Q1 -> 2026-Q2",
		},
		{
			name:       "past minimum but still the same quarter",
			lastFetch:  daysAgo(90), // 2026-04-01, Q2
			wantFetch:  false,
			wantReason: "data is current (90 days old)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rawRepo := &fakeRawResponseRepo{lastFetch: map[string]*time.Time{}}
			if tt.lastFetch != nil {
				rawRepo.lastFetch["AAPL"] = tt.lastFetch
			}

			engine := newTestFreshnessEngine(rawRepo)
			engine.now = func() time.Time { return now }

			decision := engine.Decide(context.Background(), "AAPL")
			assert.Equal(t, tt.wantFetch, decision.Fetch)
			assert.Equal(t, tt.wantReason, decision.Reason)
		})
	}
}

func TestFreshnessEngine_Decide_LookupErrorFetches(t *testing.T) {
	rawRepo := &fakeRawResponseRepo{lookupErr: errors.New("connection refused")}
	engine := newTestFreshnessEngine(rawRepo)

	decision := engine.Decide(context.Background(), "AAPL")
	assert.True(t, decision.Fetch)
	assert.Equal(t, "last fetch date unavailable", decision.Reason)
}

func TestFreshnessEngine_Partition(t *testing.T) {
	now := mustDate("2026-06-30")
	recent := now.AddDate(0, 0, -10)

	rawRepo := &fakeRawResponseRepo{lastFetch: map[string]*time.Time{
		"MSFT": &recent,
	}}
	engine := newTestFreshnessEngine(rawRepo)
	engine.now = func() time.Time { return now }

	toFetch, skipped := engine.Partition(context.Background(), []string{"AAPL", "MSFT", "GOOGL"})

	require.Len(t, toFetch, 2)
	assert.Equal(t, "AAPL", toFetch[0].Ticker)
	assert.Equal(t, "GOOGL", toFetch[1].Ticker)
	require.Len(t, skipped, 1)
	assert.Equal(t, "MSFT", skipped[0].Ticker)
}

func TestFreshnessEngine_LookupMemoized(t *testing.T) {
	rawRepo := &fakeRawResponseRepo{lastFetch: map[string]*time.Time{}}
	engine := newTestFreshnessEngine(rawRepo)

	engine.Decide(context.Background(), "AAPL")
	engine.Decide(context.Background(), "AAPL")

	assert.Equal(t, 1, rawRepo.lookups)
}

func TestFreshnessEngine_Report(t *testing.T) {
	now := mustDate("2026-06-30")
	fresh := now.AddDate(0, 0, -10)
	stale := now.AddDate(0, 0, -100)
	veryOld := now.AddDate(0, 0, -400)

	rawRepo := &fakeRawResponseRepo{lastFetch: map[string]*time.Time{
		"AAPL":  &fresh,
		"MSFT":  &stale,
		"GOOGL": &veryOld,
	}}
	engine := newTestFreshnessEngine(rawRepo)
	engine.now = func() time.Time { return now }

	report := engine.Report(context.Background(), []string{"AAPL", "MSFT", "GOOGL", "TSLA"})

	assert.Equal(t, 4, report.TotalTickers)
	assert.Equal(t, []string{"TSLA"}, report.NeverFetched)
	require.Len(t, report.Fresh, 1)
	assert.Equal(t, "AAPL", report.Fresh[0].Ticker)
	assert.Equal(t, 10, report.Fresh[0].DaysOld)
	require.Len(t, report.Stale, 1)
	assert.Equal(t, "MSFT", report.Stale[0].Ticker)
	require.Len(t, report.VeryOld, 1)
	assert.Equal(t, "GOOGL", report.VeryOld[0].Ticker)
}
