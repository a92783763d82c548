package refresh

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stockpulse/internal/domain"
)

// fetchFunc fetches enriched metadata for one market-qualified symbol.
type fetchFunc func(ctx context.Context, symbol string) (*domain.StockMetadata, error)

// fetchResult pairs a completion with its originating symbol so the consumer
// can track completion accurately even when results arrive out of order.
type fetchResult struct {
	symbol string
	md     *domain.StockMetadata
	err    error
}

// workerPool runs fetches for a batch of symbols with bounded concurrency.
type workerPool struct {
	limit int
	fetch fetchFunc
}

func newWorkerPool(limit int, fetch fetchFunc) *workerPool {
	if limit < 1 {
		limit = 1
	}
	return &workerPool{limit: limit, fetch: fetch}
}

// Run submits the batch and returns a channel that yields exactly one result
// per symbol in completion order, then closes. At most limit fetches are in
// flight at once. In-flight fetches are not aborted on cancellation; workers
// stop picking up new symbols once the context is done, and unstarted
// symbols are reported with the context error.
func (p *workerPool) Run(ctx context.Context, symbols []string) <-chan fetchResult {
	jobs := make(chan string, len(symbols))
	for _, sym := range symbols {
		jobs <- sym
	}
	close(jobs)

	out := make(chan fetchResult, len(symbols))

	g := new(errgroup.Group)
	workers := min(p.limit, len(symbols))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for sym := range jobs {
				select {
				case <-ctx.Done():
					out <- fetchResult{symbol: sym, err: ctx.Err()}
					continue
				default:
				}
				md, err := p.fetch(ctx, sym)
				out <- fetchResult{symbol: sym, md: md, err: err}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(out)
	}()

	return out
}
