package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"stockpulse/internal/domain"
)

func TestPoolConcurrencyBound(t *testing.T) {
	const limit = 3
	const total = 10

	var inFlight, peak atomic.Int64
	release := make(chan struct{})

	pool := newWorkerPool(limit, func(ctx context.Context, sym string) (*domain.StockMetadata, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return &domain.StockMetadata{Ticker: sym}, nil
	})

	symbols := make([]string, total)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%02d", i)
	}

	out := pool.Run(context.Background(), symbols)
	close(release)

	count := 0
	for range out {
		count++
	}
	if count != total {
		t.Errorf("got %d results, want %d", count, total)
	}
	if p := peak.Load(); p > limit {
		t.Errorf("peak in-flight = %d, exceeds limit %d", p, limit)
	}
}

func TestPoolReportsEachSymbolOnce(t *testing.T) {
	pool := newWorkerPool(4, func(ctx context.Context, sym string) (*domain.StockMetadata, error) {
		if sym == "BAD" {
			return nil, errors.New("fatal for this symbol")
		}
		if sym == "EMPTY" {
			return nil, nil
		}
		return &domain.StockMetadata{Ticker: sym}, nil
	})

	symbols := []string{"AAA", "BAD", "EMPTY", "BBB"}
	seen := make(map[string]int)
	for res := range pool.Run(context.Background(), symbols) {
		seen[res.symbol]++
		switch res.symbol {
		case "BAD":
			if res.err == nil {
				t.Error("BAD should carry its error")
			}
		case "EMPTY":
			if res.err != nil || res.md != nil {
				t.Error("EMPTY should be a nil result with no error")
			}
		default:
			if res.md == nil || res.md.Ticker != res.symbol {
				t.Errorf("result for %s = %+v", res.symbol, res.md)
			}
		}
	}

	for _, sym := range symbols {
		if seen[sym] != 1 {
			t.Errorf("symbol %s reported %d times, want exactly once", sym, seen[sym])
		}
	}
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	pool := newWorkerPool(2, func(ctx context.Context, sym string) (*domain.StockMetadata, error) {
		calls.Add(1)
		return &domain.StockMetadata{Ticker: sym}, nil
	})

	count := 0
	for res := range pool.Run(ctx, []string{"AAA", "BBB", "CCC"}) {
		count++
		if !errors.Is(res.err, context.Canceled) {
			t.Errorf("result for %s err = %v, want context.Canceled", res.symbol, res.err)
		}
	}
	if count != 3 {
		t.Errorf("got %d results, want 3 (every symbol reported)", count)
	}
	if calls.Load() != 0 {
		t.Errorf("fetch called %d times after cancellation, want 0", calls.Load())
	}
}

func TestPoolSmallBatch(t *testing.T) {
	var mu sync.Mutex
	var got []string

	pool := newWorkerPool(10, func(ctx context.Context, sym string) (*domain.StockMetadata, error) {
		mu.Lock()
		got = append(got, sym)
		mu.Unlock()
		return &domain.StockMetadata{Ticker: sym}, nil
	})

	count := 0
	for range pool.Run(context.Background(), []string{"ONLY"}) {
		count++
	}
	if count != 1 || len(got) != 1 {
		t.Errorf("count=%d fetches=%v", count, got)
	}
}
