package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/pkg/cache"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/utils"
)

const lastFetchCacheTTL = 10 * time.Minute

// lastFetchEntry wraps the lookup result so that "never fetched" (nil date)
// is itself cacheable.
type lastFetchEntry struct {
	date *time.Time
}

// FreshnessEngine decides, per ticker, whether a new fetch is warranted.
// A ticker's reference point is the most recent date on which all four
// endpoints were fetched together (a complete fetch).
type FreshnessEngine struct {
	mu               sync.Mutex
	minRefreshDays   int
	forceRefreshDays int

	rawRepo repository.RawResponseRepository
	cache   cache.Cache
	log     *logger.Logger
	now     func() time.Time
}

func NewFreshnessEngine(cfg *config.Config, rawRepo repository.RawResponseRepository, memo cache.Cache, log *logger.Logger) *FreshnessEngine {
	return &FreshnessEngine{
		minRefreshDays:   cfg.Freshness.MinRefreshDays,
		forceRefreshDays: cfg.Freshness.ForceRefreshDays,
		rawRepo:          rawRepo,
		cache:            memo,
		log:              log,
		now:              time.Now,
	}
}

// SetPolicy adjusts the refresh windows at runtime.
func (e *FreshnessEngine) SetPolicy(minRefreshDays, forceRefreshDays int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minRefreshDays = minRefreshDays
	e.forceRefreshDays = forceRefreshDays
	e.log.Info("Refresh policy updated",
		logger.IntField("min_refresh_days", minRefreshDays),
		logger.IntField("force_refresh_days", forceRefreshDays),
	)
}

// Partition splits a ticker list into those needing a fetch and those to skip,
// in input order. Decisions are made once, up front, from storage state at the
// moment of the call.
func (e *FreshnessEngine) Partition(ctx context.Context, tickers []string) (toFetch, skipped []dto.FetchDecision) {
	for _, ticker := range tickers {
		decision := e.Decide(ctx, ticker)
		if decision.Fetch {
			e.log.Info("Needs update",
				logger.StringField("ticker", ticker),
				logger.StringField("reason", decision.Reason),
			)
			toFetch = append(toFetch, decision)
		} else {
			e.log.Info("Skipping",
				logger.StringField("ticker", ticker),
				logger.StringField("reason", decision.Reason),
			)
			skipped = append(skipped, decision)
		}
	}
	e.log.Info("Freshness analysis complete",
		logger.IntField("to_fetch", len(toFetch)),
		logger.IntField("to_skip", len(skipped)),
	)
	return toFetch, skipped
}

// Decide applies the policy ladder: never fetched, forced staleness, minimum
// refresh window, then the calendar-quarter boundary.
func (e *FreshnessEngine) Decide(ctx context.Context, ticker string) dto.FetchDecision {
	e.mu.Lock()
	minDays, forceDays := e.minRefreshDays, e.forceRefreshDays
	e.mu.Unlock()

	lastFetch, err := e.lastCompleteFetch(ctx, ticker)
	if err != nil {
		// Storage trouble must not stall the pipeline; fetch and let the
		// persister surface the real problem.
		e.log.Error("Could not query last fetch date, fetching anyway",
			logger.StringField("ticker", ticker),
			logger.ErrorField(err),
		)
		return dto.FetchDecision{Ticker: ticker, Fetch: true, Reason: "last fetch date unavailable"}
	}

	if lastFetch == nil {
		return dto.FetchDecision{Ticker: ticker, Fetch: true, Reason: "never fetched before"}
	}

	now := e.now()
	daysSince := utils.DaysBetween(*lastFetch, now)

	if daysSince >= forceDays {
		return dto.FetchDecision{
			Ticker: ticker,
			Fetch:  true,
			Reason: fmt.Sprintf("data is %d days old (force refresh)", daysSince),
		}
	}

	if daysSince < minDays {
		return dto.FetchDecision{
			Ticker: ticker,
			Fetch:  false,
			Reason: fmt.Sprintf("recently fetched (%d days ago, minimum is %d)", daysSince, minDays),
		}
	}

	currentQuarter := utils.QuarterOf(now)
	lastQuarter := utils.QuarterOf(*lastFetch)
	if currentQuarter != lastQuarter {
		return dto.FetchDecision{
			Ticker: ticker,
			Fetch:  true,
			Reason: fmt.Sprintf("new quarter: %s -> %s", lastQuarter, currentQuarter),
		}
	}

	return dto.FetchDecision{
		Ticker: ticker,
		Fetch:  false,
		Reason: fmt.Sprintf("data is current (%d days old)", daysSince),
	}
}

// Report buckets tickers by data age for observability. The buckets do not
// influence fetch/skip decisions.
func (e *FreshnessEngine) Report(ctx context.Context, tickers []string) *dto.FreshnessReport {
	report := &dto.FreshnessReport{TotalTickers: len(tickers)}
	now := e.now()

	for _, ticker := range tickers {
		lastFetch, err := e.lastCompleteFetch(ctx, ticker)
		if err != nil || lastFetch == nil {
			report.NeverFetched = append(report.NeverFetched, ticker)
			continue
		}
		age := dto.TickerAge{Ticker: ticker, DaysOld: utils.DaysBetween(*lastFetch, now)}
		switch {
		case age.DaysOld < 30:
			report.Fresh = append(report.Fresh, age)
		case age.DaysOld < 180:
			report.Stale = append(report.Stale, age)
		default:
			report.VeryOld = append(report.VeryOld, age)
		}
	}

	return report
}

func (e *FreshnessEngine) lastCompleteFetch(ctx context.Context, ticker string) (*time.Time, error) {
	key := "last_complete_fetch:" + ticker
	if cached, found := e.cache.Get(key); found {
		if entry, ok := cached.(lastFetchEntry); ok {
			return entry.date, nil
		}
	}

	date, err := e.rawRepo.LastCompleteFetchDate(ctx, ticker)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, lastFetchEntry{date: date}, lastFetchCacheTTL)
	return date, nil
}
