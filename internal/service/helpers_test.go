package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/model"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/utils"

	"go.uber.org/zap"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func fptr(v float64) *float64 {
	return &v
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func statementJSON(resp dto.StatementResponse) json.RawMessage {
	b, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return b
}

func earningsJSON(resp dto.EarningsResponse) json.RawMessage {
	b, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return b
}

// fakeRawResponseRepo is an in-memory stand-in for the raw response archive.
type fakeRawResponseRepo struct {
	mu        sync.Mutex
	rows      []model.RawResponse
	lastFetch map[string]*time.Time
	lookupErr error
	lookups   int
	upsertErr error
}

func (f *fakeRawResponseRepo) Upsert(ctx context.Context, rows []model.RawResponse, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeRawResponseRepo) LastCompleteFetchDate(ctx context.Context, ticker string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.lastFetch[ticker], nil
}

// mapCache is a plain map-backed cache with no expiry, enough for tests that
// only care about hit/miss behavior.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]interface{})}
}

func (c *mapCache) Set(key string, value interface{}, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *mapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *mapCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]interface{})
}

// fakeStockRepo hands out stable IDs per ticker and can fail on demand.
type fakeStockRepo struct {
	mu         sync.Mutex
	nextID     uint
	stocks     map[string]*model.Stock
	failTicker string
	failErr    error
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{nextID: 1, stocks: make(map[string]*model.Stock)}
}

func (f *fakeStockRepo) GetByTicker(ctx context.Context, ticker string, opts ...utils.DBOption) (*model.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stocks[ticker], nil
}

func (f *fakeStockRepo) GetOrCreate(ctx context.Context, ticker string, info dto.CompanyInfo, opts ...utils.DBOption) (*model.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticker == f.failTicker {
		return nil, f.failErr
	}
	if stock, ok := f.stocks[ticker]; ok {
		return stock, nil
	}
	stock := &model.Stock{ID: f.nextID, Ticker: ticker, CompanyName: ticker}
	f.nextID++
	f.stocks[ticker] = stock
	return stock, nil
}

func (f *fakeStockRepo) Enrich(ctx context.Context, stock *model.Stock, info dto.CompanyInfo, opts ...utils.DBOption) error {
	return nil
}

type fakeFundamentalsRepo struct {
	mu   sync.Mutex
	rows []*model.Fundamentals
	err  error
}

func (f *fakeFundamentalsRepo) Upsert(ctx context.Context, row *model.Fundamentals, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeFundamentalsRepo) GetByStockAndFiscalDate(ctx context.Context, stockID uint, fiscalDate string, opts ...utils.DBOption) (*model.Fundamentals, error) {
	return nil, nil
}

type fakeEpsRepo struct {
	mu   sync.Mutex
	rows []*model.EpsReport
	err  error
}

func (f *fakeEpsRepo) Upsert(ctx context.Context, row *model.EpsReport, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeEpsRepo) ListByStock(ctx context.Context, stockID uint, opts ...utils.DBOption) ([]model.EpsReport, error) {
	return nil, nil
}

type fakeSessionLogRepo struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSessionLogRepo) Append(ctx context.Context, sessionID, module, level, message string, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSessionLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// fakeUnitOfWork runs the callback without a real transaction and records
// whether it would have rolled back.
type fakeUnitOfWork struct {
	runs      int
	rollbacks int
}

func (f *fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	f.runs++
	if err := fn(); err != nil {
		f.rollbacks++
		return err
	}
	return nil
}
