package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/model"
	"stock-fundamentals/internal/repository"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Persister writes staged entries into storage: stock master, fundamentals,
// EPS history and the raw payload archive. Commit discipline is selectable
// per batch: one transaction for everything, or one per ticker.
type Persister struct {
	repo *repository.Repository
	log  *logger.Logger
}

// NewPersister fails fast when the underlying store cannot answer a trivial
// query.
func NewPersister(ctx context.Context, db *gorm.DB, repo *repository.Repository, log *logger.Logger) (*Persister, error) {
	if err := db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("database connection is not usable: %w", err)
	}
	return &Persister{repo: repo, log: log}, nil
}

// Persist writes all staged entries. In all-or-nothing mode the first failure
// rolls the whole batch back and every ticker in the batch is reported failed
// with the triggering error; in individual mode each ticker commits or rolls
// back on its own.
func (p *Persister) Persist(ctx context.Context, staged map[string]*StagingEntry, mode dto.TransactionMode) *dto.PersistResult {
	result := &dto.PersistResult{TotalAttempted: len(staged)}
	if len(staged) == 0 {
		p.log.Warn("No staged data to persist")
		return result
	}

	tickers := make([]string, 0, len(staged))
	for ticker := range staged {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	if mode == dto.TransactionModeAllOrNothing {
		p.log.Info("Starting transaction for batch insertion", logger.IntField("tickers", len(tickers)))
		err := p.repo.UnitOfWork.Run(func(opts ...utils.DBOption) error {
			for _, ticker := range tickers {
				if err := p.persistOne(ctx, ticker, staged[ticker], opts...); err != nil {
					return fmt.Errorf("%s: %w", ticker, err)
				}
			}
			return nil
		})
		if err != nil {
			p.log.Error("Transaction rolled back", logger.ErrorField(err))
			msg := fmt.Sprintf("transaction rolled back: %v", err)
			for _, ticker := range tickers {
				result.Failures = append(result.Failures, dto.PersistFailure{Ticker: ticker, Error: msg})
			}
			return result
		}
		result.Successes = tickers
		p.log.Info("Transaction committed", logger.IntField("tickers", len(tickers)))
		return result
	}

	for _, ticker := range tickers {
		err := p.repo.UnitOfWork.Run(func(opts ...utils.DBOption) error {
			return p.persistOne(ctx, ticker, staged[ticker], opts...)
		})
		if err != nil {
			p.log.Error("Insertion failed",
				logger.StringField("ticker", ticker),
				logger.ErrorField(err),
			)
			result.Failures = append(result.Failures, dto.PersistFailure{Ticker: ticker, Error: err.Error()})
			continue
		}
		result.Successes = append(result.Successes, ticker)
		p.log.Info("Data inserted", logger.StringField("ticker", ticker))
	}
	return result
}

func (p *Persister) persistOne(ctx context.Context, ticker string, entry *StagingEntry, opts ...utils.DBOption) error {
	if entry == nil || entry.Fundamentals == nil {
		return fmt.Errorf("staged entry is missing fundamentals")
	}
	f := entry.Fundamentals

	stock, err := p.repo.StockRepo.GetOrCreate(ctx, ticker, f.Company, opts...)
	if err != nil {
		return fmt.Errorf("resolve stock: %w", err)
	}

	fetchDate := dateOnly(entry.FetchedAt)

	fiscalDate, ok := utils.ParseFiscalDate(f.FiscalDateEnding)
	if !ok {
		p.log.Warn("No usable fiscal date, falling back to fetch date",
			logger.StringField("ticker", ticker),
			logger.StringField("fiscal_date", f.FiscalDateEnding),
		)
		fiscalDate = fetchDate
	}

	row := &model.Fundamentals{
		StockID:          stock.ID,
		FiscalDateEnding: fiscalDate,

		MarketCap:           f.MarketCap,
		TotalDebt:           f.TotalDebt,
		CashEquivalents:     f.CashEquivalents,
		TotalAssets:         f.TotalAssets,
		WorkingCapital:      f.WorkingCapital,
		LongTermInvestments: f.LongTermInvestments,

		EBITDATTM:          f.EBITDATTM,
		RevenueTTM:         f.RevenueTTM,
		InterestExpenseTTM: f.InterestExpenseTTM,
		CashFlowOpsTTM:     f.CashFlowOpsTTM,

		CashFlowOpsQ:           f.CashFlowOpsQ,
		InterestExpenseQ:       f.InterestExpenseQ,
		ChangeInWorkingCapital: f.ChangeInWorkingCapital,

		EBITDAAnnual:    f.EBITDAAnnual,
		TotalDebtAnnual: f.TotalDebtAnnual,

		EffectiveTaxRate: f.EffectiveTaxRate,
		DataSource:       "AlphaVantage",
	}
	if err := p.repo.FundamentalsRepo.Upsert(ctx, row, opts...); err != nil {
		return fmt.Errorf("upsert fundamentals: %w", err)
	}

	for _, quarter := range f.EPSHistory {
		epsDate, ok := utils.ParseFiscalDate(quarter.FiscalDateEnding)
		if !ok || quarter.Value == nil {
			continue
		}
		epsRow := &model.EpsReport{
			StockID:          stock.ID,
			FiscalDateEnding: epsDate,
			ReportedEPS:      *quarter.Value,
		}
		if err := p.repo.EpsRepo.Upsert(ctx, epsRow, opts...); err != nil {
			return fmt.Errorf("upsert eps %s: %w", quarter.FiscalDateEnding, err)
		}
	}

	// The fetch layer only stages complete tickers, so archive rows are
	// always status 200 / complete.
	rawRows := make([]model.RawResponse, 0, len(entry.RawPayloads))
	for _, endpoint := range dto.EndpointKeys {
		body, found := entry.RawPayloads[endpoint]
		if !found {
			continue
		}
		rawRows = append(rawRows, model.RawResponse{
			StockID:           stock.ID,
			Ticker:            ticker,
			DateFetched:       fetchDate,
			EndpointKey:       endpoint,
			Response:          datatypes.JSON(body),
			HTTPStatusCode:    200,
			IsCompleteSession: true,
		})
	}
	if err := p.repo.RawResponseRepo.Upsert(ctx, rawRows, opts...); err != nil {
		return fmt.Errorf("archive raw responses: %w", err)
	}

	return nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
