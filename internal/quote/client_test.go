package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const summaryBody = `{
	"quoteSummary": {
		"result": [{
			"price": {
				"symbol": "AAPL",
				"shortName": "Apple",
				"longName": "Apple Inc.",
				"regularMarketPrice": {"raw": 212.4},
				"regularMarketPreviousClose": {"raw": 210.0},
				"marketCap": {"raw": 3100000000000}
			},
			"summaryProfile": {
				"sector": "Technology",
				"industry": "Consumer Electronics"
			}
		}],
		"error": null
	}
}`

func newTestClient(t *testing.T, handler http.Handler, maxRetries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:    srv.URL,
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Smoothing:  -1, // disable pre-attempt delay in tests
	})
}

func TestFetch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, summaryBody)
	}), 3)

	md, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if md == nil {
		t.Fatal("Fetch returned nil metadata")
	}
	if md.Ticker != "AAPL" || md.Name != "Apple Inc." {
		t.Errorf("metadata = %+v", md)
	}
	if md.Sector != "Technology" || md.Industry != "Consumer Electronics" {
		t.Errorf("sector/industry = %q/%q", md.Sector, md.Industry)
	}
	if md.CurrentPrice != 212.4 {
		t.Errorf("CurrentPrice = %v, want 212.4", md.CurrentPrice)
	}
	if md.ChangePercent != 1.14 {
		t.Errorf("ChangePercent = %v, want 1.14", md.ChangePercent)
	}
	if md.AsOfDate != time.Now().Format("2006-01-02") {
		t.Errorf("AsOfDate = %q, want today", md.AsOfDate)
	}
}

func TestFetchMissingSectorKept(t *testing.T) {
	body := `{"quoteSummary":{"result":[{"price":{
		"symbol":"XYZ","shortName":"Xyz Corp",
		"regularMarketPrice":{"raw":10},
		"regularMarketPreviousClose":{"raw":9}
	},"summaryProfile":{}}],"error":null}}`

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}), 3)

	md, err := c.Fetch(context.Background(), "XYZ")
	if err != nil {
		t.Fatal(err)
	}
	if md == nil {
		t.Fatal("symbol with valid price but no sector should be kept")
	}
	if md.Sector != "Unknown" || md.Industry != "Unknown" {
		t.Errorf("sector/industry = %q/%q, want Unknown/Unknown", md.Sector, md.Industry)
	}
}

func TestFetchNoPriceDropped(t *testing.T) {
	body := `{"quoteSummary":{"result":[{"price":{
		"symbol":"ZZZ","shortName":"Zzz Corp",
		"regularMarketPrice":{"raw":0},
		"regularMarketPreviousClose":{"raw":0}
	},"summaryProfile":{"sector":"Energy"}}],"error":null}}`

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}), 3)

	md, err := c.Fetch(context.Background(), "ZZZ")
	if err != nil {
		t.Fatal(err)
	}
	if md != nil {
		t.Errorf("zero-price symbol should be dropped, got %+v", md)
	}
}

func TestFetchInvalidSymbol(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}), 3)

	md, err := c.Fetch(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("invalid symbol should not be an error, got %v", err)
	}
	if md != nil {
		t.Errorf("invalid symbol should yield nil metadata, got %+v", md)
	}
}

func TestFetchEmptyResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteSummary":{"result":[],"error":null}}`)
	}), 3)

	md, err := c.Fetch(context.Background(), "EMPTY")
	if err != nil {
		t.Fatal(err)
	}
	if md != nil {
		t.Errorf("empty result should yield nil metadata, got %+v", md)
	}
}

func TestFetchRateLimitExhaustion(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}), 2)

	md, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("exhausted retries should not be an error, got %v", err)
	}
	if md != nil {
		t.Errorf("exhausted retries should yield nil metadata, got %+v", md)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("provider called %d times, want exactly max_retries (2)", got)
	}
}

func TestFetchRecoversAfterRateLimit(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, summaryBody)
	}), 5)

	md, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if md == nil {
		t.Fatal("Fetch should succeed after a transient rate limit")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("provider called %d times, want 2", got)
	}
}

func TestFetchNonRetryableError(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}), 5)

	_, err := c.Fetch(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("5xx should surface as an error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("provider called %d times, want 1 (not retried)", got)
	}
}

func TestBackoffWaitMonotonic(t *testing.T) {
	// The base doubles each attempt and jitter stays under a second, so a
	// base at or above one second guarantees a never-shrinking schedule.
	base := 2 * time.Second
	prev := time.Duration(0)
	for i := 0; i < 6; i++ {
		w := backoffWait(base)
		if w < prev {
			t.Fatalf("attempt %d wait %v < previous %v", i, w, prev)
		}
		if w < base || w >= base+time.Second {
			t.Fatalf("wait %v outside [base, base+1s)", w)
		}
		prev = w
		base *= 2
	}
}

func TestHistory(t *testing.T) {
	body := `{"chart":{"result":[{
		"timestamp": [1755561600, 1755648000],
		"indicators": {"quote": [{
			"open":  [100.5, 102.0],
			"high":  [103.0, 104.0],
			"low":   [ 99.0, 101.0],
			"close": [102.0, 103.5],
			"volume": [1000, 2000]
		}]}
	}],"error":null}}`

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval = %q, want 1d", r.URL.Query().Get("interval"))
		}
		fmt.Fprint(w, body)
	}), 3)

	bars, err := c.History(context.Background(), "AAPL", Range1mo)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if bars[0].Close != 102.0 || bars[1].Close != 103.5 {
		t.Errorf("closes = %v, %v", bars[0].Close, bars[1].Close)
	}
	if bars[0].Volume != 1000 {
		t.Errorf("volume = %d, want 1000", bars[0].Volume)
	}
}
