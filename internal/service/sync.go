package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/ratelimit"
	"stock-fundamentals/pkg/timeout"

	"github.com/google/uuid"
)

// persistCostPerTicker is the budget estimate used to decide whether the
// persistence phase still fits inside the program timeout.
const persistCostPerTicker = 2 * time.Second

// SyncOptions tunes one sync run.
type SyncOptions struct {
	// ForceRefresh fetches every ticker regardless of freshness.
	ForceRefresh bool
	// TransactionMode selects the persister's commit discipline.
	TransactionMode dto.TransactionMode
	// Guard, when non-nil and started, bounds total execution time.
	Guard *timeout.Guard
}

// SyncService orchestrates one full pipeline pass: freshness analysis, paced
// fetching, extraction, the quality gate, staging and persistence. Tickers are
// processed sequentially; a shared pacer spaces API calls and slows down after
// failures.
type SyncService struct {
	repo      *repository.Repository
	freshness *FreshnessEngine
	extractor *Extractor
	quality   *QualityGate
	staging   *StagingCache
	persister *Persister
	pacer     *ratelimit.Pacer
	log       *logger.Logger
}

func NewSyncService(
	repo *repository.Repository,
	freshness *FreshnessEngine,
	extractor *Extractor,
	quality *QualityGate,
	staging *StagingCache,
	persister *Persister,
	pacer *ratelimit.Pacer,
	log *logger.Logger,
) *SyncService {
	return &SyncService{
		repo:      repo,
		freshness: freshness,
		extractor: extractor,
		quality:   quality,
		staging:   staging,
		persister: persister,
		pacer:     pacer,
		log:       log,
	}
}

// Run executes one sync session over the given tickers and returns its
// summary. The error return is reserved for setup problems; per-ticker
// failures are reported in the summary instead.
func (s *SyncService) Run(ctx context.Context, tickers []string, opts SyncOptions) (*dto.SyncSummary, error) {
	if len(tickers) == 0 {
		return nil, errors.New("no tickers given")
	}
	if opts.TransactionMode == "" {
		opts.TransactionMode = dto.TransactionModeIndividual
	}
	if !opts.TransactionMode.Valid() {
		return nil, fmt.Errorf("invalid transaction mode %q", opts.TransactionMode)
	}

	sessionID := uuid.NewString()
	started := time.Now()
	log := s.log.With(logger.StringField("session_id", sessionID))

	log.Info("Sync session starting",
		logger.IntField("tickers", len(tickers)),
		logger.StringField("transaction_mode", string(opts.TransactionMode)),
	)
	s.audit(ctx, sessionID, "sync", "INFO", fmt.Sprintf("session started for %d tickers", len(tickers)))

	summary := &dto.SyncSummary{SessionID: sessionID}
	summary.Freshness = s.freshness.Report(ctx, tickers)

	var toFetch []dto.FetchDecision
	if opts.ForceRefresh {
		log.Info("Force refresh requested, fetching all tickers")
		for _, ticker := range tickers {
			toFetch = append(toFetch, dto.FetchDecision{Ticker: ticker, Fetch: true, Reason: "force refresh requested"})
		}
	} else {
		var skipped []dto.FetchDecision
		toFetch, skipped = s.freshness.Partition(ctx, tickers)
		for _, d := range skipped {
			summary.Fetch.Skipped = append(summary.Fetch.Skipped, d.Ticker)
		}
	}
	summary.Fetch.TotalRequested = len(tickers)

	callsBefore := s.repo.AlphaVantageRepo.CallsMade()
	s.fetchPhase(ctx, log, sessionID, toFetch, &summary.Fetch)
	summary.Fetch.APICallsMade = s.repo.AlphaVantageRepo.CallsMade() - callsBefore
	summary.FailedTickers = summary.Fetch.Failed

	s.audit(ctx, sessionID, "fetch", "INFO", fmt.Sprintf(
		"fetch complete: %d succeeded, %d failed, %d skipped, %d API calls",
		len(summary.Fetch.Successful), len(summary.Fetch.Failed), len(summary.Fetch.Skipped), summary.Fetch.APICallsMade,
	))

	stagingStatus := s.staging.Status()
	log.Info("Staging cache status",
		logger.IntField("size", stagingStatus.Size),
		logger.Field("oldest_entry_age", stagingStatus.OldestEntryAge),
		logger.Field("next_cleanup_in", stagingStatus.NextCleanupIn),
	)

	staged := s.staging.Drain()
	if s.persistBudgetExceeded(opts.Guard, len(staged)) {
		log.Warn("Skipping persistence phase, remaining time budget too small",
			logger.IntField("staged", len(staged)),
		)
		s.audit(ctx, sessionID, "persist", "WARN", "persistence skipped, time budget exhausted; data remains staged")
		summary.PersistSkipped = true
	} else if len(staged) > 0 {
		summary.Persist = s.persister.Persist(ctx, staged, opts.TransactionMode)
		for _, ticker := range summary.Persist.Successes {
			s.staging.Clear(ticker)
		}
		for _, failure := range summary.Persist.Failures {
			summary.FailedTickers = append(summary.FailedTickers, failure.Ticker)
		}
		s.audit(ctx, sessionID, "persist", "INFO", fmt.Sprintf(
			"persistence complete: %d inserted, %d failed",
			len(summary.Persist.Successes), len(summary.Persist.Failures),
		))
	} else {
		summary.Persist = &dto.PersistResult{}
	}

	summary.Duration = time.Since(started)
	summary.BackoffMultiplier = s.pacer.Backoff()

	log.Info("Sync session finished",
		logger.Field("duration", summary.Duration),
		logger.IntField("fetched", len(summary.Fetch.Successful)),
		logger.IntField("failed", len(summary.FailedTickers)),
		logger.IntField("api_calls", summary.Fetch.APICallsMade),
		logger.Field("backoff_multiplier", summary.BackoffMultiplier),
	)
	s.audit(ctx, sessionID, "sync", "INFO", fmt.Sprintf("session finished in %s", summary.Duration.Round(time.Millisecond)))

	return summary, nil
}

// fetchPhase runs fetch, extraction, the quality gate and staging for each
// ticker marked for fetching. A credential rejection aborts the whole phase;
// anything else fails only its own ticker and doubles the pacer backoff.
func (s *SyncService) fetchPhase(ctx context.Context, log *logger.Logger, sessionID string, toFetch []dto.FetchDecision, result *dto.BatchResult) {
	for i, decision := range toFetch {
		if ctx.Err() != nil {
			log.Warn("Fetch phase cancelled", logger.ErrorField(ctx.Err()))
			for _, rest := range toFetch[i:] {
				result.Failed = append(result.Failed, rest.Ticker)
			}
			return
		}

		ticker := decision.Ticker
		if err := s.processTicker(ctx, sessionID, ticker); err != nil {
			result.Failed = append(result.Failed, ticker)
			s.pacer.Failure()
			log.Error("Ticker failed",
				logger.StringField("ticker", ticker),
				logger.Field("backoff_multiplier", s.pacer.Backoff()),
				logger.ErrorField(err),
			)
			s.audit(ctx, sessionID, "fetch", "ERROR", fmt.Sprintf("%s: %v", ticker, err))

			var terminal *repository.TerminalError
			if errors.As(err, &terminal) {
				log.Error("Credential rejected, aborting remaining fetches")
				for _, rest := range toFetch[i+1:] {
					result.Failed = append(result.Failed, rest.Ticker)
				}
				return
			}
			continue
		}

		result.Successful = append(result.Successful, ticker)
		s.pacer.Success()
	}
}

func (s *SyncService) processTicker(ctx context.Context, sessionID, ticker string) error {
	payloads, err := s.repo.AlphaVantageRepo.FetchTickerData(ctx, ticker)
	if err != nil {
		return err
	}

	fundamentals, err := s.extractor.Extract(ticker, payloads)
	if err != nil {
		return err
	}

	if ok, reason := s.quality.IsAcceptable(fundamentals); !ok {
		return fmt.Errorf("quality gate: %s", reason)
	}

	s.staging.Stage(ticker, fundamentals, payloads, sessionID)
	return nil
}

// persistBudgetExceeded estimates whether persisting the staged entries fits
// in the remaining program time budget.
func (s *SyncService) persistBudgetExceeded(guard *timeout.Guard, staged int) bool {
	if guard == nil || staged == 0 {
		return false
	}
	remaining, active := guard.Remaining()
	if !active {
		return false
	}
	return remaining < time.Duration(staged)*persistCostPerTicker
}

// audit mirrors session milestones into the session_logs table. Failures are
// swallowed after a local warning; audit rows never block the pipeline.
func (s *SyncService) audit(ctx context.Context, sessionID, module, level, message string) {
	if err := s.repo.SessionLogRepo.Append(ctx, sessionID, module, level, message); err != nil {
		s.log.Warn("Session log append failed",
			logger.StringField("module", module),
			logger.ErrorField(err),
		)
	}
}
