// Package quote implements the rate-limited client for the upstream quote
// provider. Fetch enriches a single symbol with live metadata, absorbing
// rate-limit responses with exponential backoff; History returns OHLCV bars
// from the provider's chart endpoint.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/util"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// StatusError is a non-2xx response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// RateLimited reports whether the response was a rate-limit signal.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Options configures a Client. Zero values select the design defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // per-request; default 10s
	MaxRetries int           // rate-limit retry attempts; default 10
	BaseDelay  time.Duration // initial backoff; default 2s
	Smoothing  time.Duration // max random pre-attempt delay; default 1s
	PerMinute  int           // optional request pacing; 0 disables
}

// Client talks to the quote provider. All remote calls honour the configured
// request timeout so a hung upstream never wedges a worker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	smoothing  time.Duration
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 10
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.Smoothing == 0 {
		opts.Smoothing = time.Second
	}

	c := &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		smoothing:  opts.Smoothing,
		log:        slog.Default().With("component", "quote"),
	}
	if opts.PerMinute > 0 {
		c.limiter = util.NewRateLimiter(opts.PerMinute)
	}
	return c
}

// Fetch returns enriched metadata for a single (already market-qualified)
// symbol. It retries rate-limit responses with exponential backoff plus
// jitter and returns (nil, nil) once retries are exhausted, for a symbol the
// provider does not recognise, or for a symbol with no usable price data.
// Any other provider error is fatal for the symbol and returned as-is.
func (c *Client) Fetch(ctx context.Context, symbol string) (*domain.StockMetadata, error) {
	delay := c.baseDelay

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.beforeAttempt(ctx); err != nil {
			return nil, err
		}

		res, err := c.quoteSummary(ctx, symbol)
		if err == nil {
			return c.toMetadata(symbol, res), nil
		}

		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			// Provider does not know this symbol.
			c.log.Debug("invalid symbol", "symbol", symbol)
			return nil, nil
		}
		if !errors.As(err, &se) || !se.RateLimited() {
			return nil, err
		}

		if attempt == c.maxRetries-1 {
			break
		}

		wait := backoffWait(delay)
		c.log.Debug("rate limited, backing off", "symbol", symbol, "attempt", attempt+1, "wait", wait.Round(time.Millisecond))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	c.log.Warn("rate-limit retries exhausted", "symbol", symbol, "attempts", c.maxRetries)
	return nil, nil
}

// toMetadata applies the per-symbol data policy: no identifying data or no
// usable price drops the symbol; a valid price with an unknown sector or
// industry keeps it.
func (c *Client) toMetadata(symbol string, res *summaryResult) *domain.StockMetadata {
	if res == nil {
		return nil
	}

	name := res.Price.LongName
	if name == "" {
		name = res.Price.ShortName
	}

	q := domain.Quote{
		Symbol:        symbol,
		Name:          name,
		Sector:        res.SummaryProfile.Sector,
		Industry:      res.SummaryProfile.Industry,
		MarketCap:     res.Price.MarketCap.Raw,
		CurrentPrice:  res.Price.RegularMarketPrice.Raw,
		PreviousClose: res.Price.RegularMarketPreviousClose.Raw,
	}

	if q.Name == "" && q.CurrentPrice == 0 {
		c.log.Debug("no identifying metadata", "symbol", symbol)
		return nil
	}
	if q.CurrentPrice == 0 && q.PreviousClose == 0 {
		c.log.Debug("no price data", "symbol", symbol)
		return nil
	}
	if q.Sector == "" {
		q.Sector = "Unknown"
	}
	if q.Industry == "" {
		q.Industry = "Unknown"
	}

	return &domain.StockMetadata{
		Ticker:        symbol,
		Name:          q.Name,
		Sector:        q.Sector,
		Industry:      q.Industry,
		MarketCap:     q.MarketCap,
		ChangePercent: q.ChangePercent(),
		CurrentPrice:  q.CurrentPrice,
		AsOfDate:      time.Now().Format("2006-01-02"),
	}
}

// Quote returns the raw point-in-time snapshot for a symbol without the
// drop/keep policy applied. Rate-limit responses surface as *StatusError.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	res, err := c.quoteSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	name := res.Price.LongName
	if name == "" {
		name = res.Price.ShortName
	}
	return &domain.Quote{
		Symbol:        symbol,
		Name:          name,
		Sector:        res.SummaryProfile.Sector,
		Industry:      res.SummaryProfile.Industry,
		MarketCap:     res.Price.MarketCap.Raw,
		CurrentPrice:  res.Price.RegularMarketPrice.Raw,
		PreviousClose: res.Price.RegularMarketPreviousClose.Raw,
	}, nil
}

// History returns daily OHLCV bars for the symbol over the given range.
// Transient provider errors are retried a few times with plain backoff.
func (c *Client) History(ctx context.Context, symbol string, rng HistoryRange) ([]domain.Bar, error) {
	var bars []domain.Bar
	err := util.RetryIf(ctx, 3, c.baseDelay, func() error {
		var err error
		bars, err = c.chart(ctx, symbol, rng)
		return err
	}, func(err error) bool {
		var se *StatusError
		return errors.As(err, &se) && (se.RateLimited() || se.StatusCode >= 500)
	})
	return bars, err
}

func (c *Client) quoteSummary(ctx context.Context, symbol string) (*summaryResult, error) {
	q := url.Values{}
	q.Set("modules", "price,summaryProfile")

	body, err := c.doRequest(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, err
	}

	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal quote summary: %w", err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("provider error for %s: %s", symbol, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, nil
	}
	return &resp.QuoteSummary.Result[0], nil
}

func (c *Client) chart(ctx context.Context, symbol string, rng HistoryRange) ([]domain.Bar, error) {
	q := url.Values{}
	q.Set("range", string(rng))
	q.Set("interval", "1d")

	body, err := c.doRequest(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal chart: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("provider error for %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	res := resp.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	qd := res.Indicators.Quote[0]

	bars := make([]domain.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(qd.Close) {
			break
		}
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      at(qd.Open, i),
			High:      at(qd.High, i),
			Low:       at(qd.Low, i),
			Close:     at(qd.Close, i),
			Volume:    atInt(qd.Volume, i),
		})
	}
	return bars, nil
}

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func atInt(s []int64, i int) int64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// backoffWait returns the sleep before the next retry: the current base
// delay plus jitter in [0,1) seconds. The caller doubles the base after
// each rate-limited attempt, so successive waits never shrink.
func backoffWait(base time.Duration) time.Duration {
	return base + time.Duration(rand.Float64()*float64(time.Second))
}

// beforeAttempt applies pacing and the randomized smoothing delay that
// spreads bursts across concurrent workers.
func (c *Client) beforeAttempt(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.smoothing > 0 {
		wait := time.Duration(rand.Float64() * float64(c.smoothing))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
