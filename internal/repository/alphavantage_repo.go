package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"
	"stock-fundamentals/pkg/httpclient"
	"stock-fundamentals/pkg/logger"
	"stock-fundamentals/pkg/ratelimit"
)

// TerminalError marks endpoint failures that must not be retried (bad or
// rejected credential).
type TerminalError struct {
	StatusCode int
	Endpoint   string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: terminal HTTP %d, not retrying", e.Endpoint, e.StatusCode)
}

// AlphaVantageRepository fetches the four fundamentals endpoints for a ticker.
// The fetch is all-or-nothing: any endpoint failing after retries fails the
// whole ticker and nothing is returned.
type AlphaVantageRepository interface {
	FetchTickerData(ctx context.Context, ticker string) (dto.RawPayloads, error)
	CallsMade() int
}

type alphaVantageRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	logger     *logger.Logger
	pacer      *ratelimit.Pacer
	callsMade  int

	// sleep is swapped out in tests; retry backoff otherwise blocks for real.
	sleep func(time.Duration)
}

func NewAlphaVantageRepository(cfg *config.Config, log *logger.Logger, pacer *ratelimit.Pacer) AlphaVantageRepository {
	return &alphaVantageRepository{
		httpClient: httpclient.New(cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.Timeout),
		cfg:        cfg,
		logger:     log,
		pacer:      pacer,
		sleep:      time.Sleep,
	}
}

// FetchTickerData retrieves all four endpoints for the ticker, enforcing the
// shared inter-call interval before every request. All endpoints must succeed;
// the first definitive failure aborts the ticker.
func (r *alphaVantageRepository) FetchTickerData(ctx context.Context, ticker string) (dto.RawPayloads, error) {
	if r.cfg.AlphaVantage.APIKey == "" {
		return nil, fmt.Errorf("%s: no API key configured", ticker)
	}

	payloads := make(dto.RawPayloads, len(dto.EndpointKeys))
	for _, endpoint := range dto.EndpointKeys {
		if err := r.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := r.fetchWithRetry(ctx, ticker, endpoint)
		if err != nil {
			return nil, fmt.Errorf("%s: endpoint %s failed: %w", ticker, endpoint, err)
		}
		payloads[endpoint] = body
		r.callsMade++
	}

	return payloads, nil
}

func (r *alphaVantageRepository) CallsMade() int {
	return r.callsMade
}

// fetchWithRetry runs the per-endpoint retry state machine: up to the
// configured attempts, long sleeps on 429, short sleeps on 5xx and transport
// or structural errors, no retry at all on 401/403.
func (r *alphaVantageRepository) fetchWithRetry(ctx context.Context, ticker, endpoint string) (json.RawMessage, error) {
	maxAttempts := r.cfg.AlphaVantage.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	queryParams := map[string]string{
		"function": endpoint,
		"symbol":   ticker,
		"apikey":   r.cfg.AlphaVantage.APIKey,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := r.httpClient.Get(ctx, "/query", queryParams, nil)
		if err != nil {
			lastErr = err
			r.logger.Warn("Endpoint request failed",
				logger.StringField("ticker", ticker),
				logger.StringField("endpoint", endpoint),
				logger.IntField("attempt", attempt+1),
				logger.ErrorField(err),
			)
			r.sleepBeforeRetry(shortWait(attempt), attempt, maxAttempts)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := r.validatePayload(endpoint, resp.Body); err != nil {
				lastErr = err
				r.logger.Warn("Endpoint returned invalid payload",
					logger.StringField("ticker", ticker),
					logger.StringField("endpoint", endpoint),
					logger.IntField("attempt", attempt+1),
					logger.ErrorField(err),
				)
				r.sleepBeforeRetry(shortWait(attempt), attempt, maxAttempts)
				continue
			}
			return resp.Body, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			r.logger.Error("Endpoint rejected credential",
				logger.StringField("ticker", ticker),
				logger.StringField("endpoint", endpoint),
				logger.IntField("status", resp.StatusCode),
			)
			return nil, &TerminalError{StatusCode: resp.StatusCode, Endpoint: endpoint}

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := longWait(attempt)
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			r.logger.Warn("Rate limit hit",
				logger.StringField("ticker", ticker),
				logger.StringField("endpoint", endpoint),
				logger.Field("wait", wait),
			)
			r.sleep(wait)

		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
			r.logger.Warn("Server error",
				logger.StringField("ticker", ticker),
				logger.StringField("endpoint", endpoint),
				logger.IntField("status", resp.StatusCode),
			)
			r.sleepBeforeRetry(shortWait(attempt), attempt, maxAttempts)

		default:
			lastErr = fmt.Errorf("unexpected HTTP %d: %s", resp.StatusCode, truncate(resp.Body, 100))
			r.logger.Warn("Unexpected response",
				logger.StringField("ticker", ticker),
				logger.StringField("endpoint", endpoint),
				logger.IntField("status", resp.StatusCode),
			)
			r.sleepBeforeRetry(shortWait(attempt), attempt, maxAttempts)
		}
	}

	return nil, fmt.Errorf("exhausted %d attempts: %w", maxAttempts, lastErr)
}

// validatePayload rejects bodies carrying an API-level error or notice and
// enforces the structural minimum per endpoint type.
func (r *alphaVantageRepository) validatePayload(endpoint string, body []byte) error {
	if endpoint == dto.EndpointEarnings {
		var earnings dto.EarningsResponse
		if err := json.Unmarshal(body, &earnings); err != nil {
			return fmt.Errorf("malformed earnings body: %w", err)
		}
		if msg := apiErrorOf(earnings.ErrorMessage, earnings.Note, earnings.Information); msg != "" {
			return fmt.Errorf("API error: %s", msg)
		}
		minQuarters := r.cfg.AlphaVantage.MinEPSQuarters
		if minQuarters <= 0 {
			minQuarters = 5
		}
		if len(earnings.QuarterlyEarnings) < minQuarters {
			return fmt.Errorf("need at least %d quarterly earnings, got %d", minQuarters, len(earnings.QuarterlyEarnings))
		}
		return nil
	}

	var stmt dto.StatementResponse
	if err := json.Unmarshal(body, &stmt); err != nil {
		return fmt.Errorf("malformed statement body: %w", err)
	}
	if msg := apiErrorOf(stmt.ErrorMessage, stmt.Note, stmt.Information); msg != "" {
		return fmt.Errorf("API error: %s", msg)
	}
	if len(stmt.AnnualReports) == 0 || len(stmt.QuarterlyReports) == 0 {
		return fmt.Errorf("missing annualReports or quarterlyReports")
	}
	return nil
}

func (r *alphaVantageRepository) sleepBeforeRetry(wait time.Duration, attempt, maxAttempts int) {
	// No point sleeping after the final attempt.
	if attempt < maxAttempts-1 {
		r.sleep(wait)
	}
}

// shortWait is the transient-error backoff: min(5 * 2^attempt, 30) seconds.
func shortWait(attempt int) time.Duration {
	wait := 5 * (1 << attempt)
	if wait > 30 {
		wait = 30
	}
	return time.Duration(wait) * time.Second
}

// longWait is the rate-limit backoff: min(60 * 2^attempt, 300) seconds.
func longWait(attempt int) time.Duration {
	wait := 60 * (1 << attempt)
	if wait > 300 {
		wait = 300
	}
	return time.Duration(wait) * time.Second
}

func apiErrorOf(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
