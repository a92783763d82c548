// Package refresh implements the categorized-stock-list refresh pipeline: a
// resumable, rate-limited batch job that enriches a symbol universe with
// live metadata, checkpointing progress after every fetched symbol so a
// crash or restart never repeats completed work.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"stockpulse/internal/domain"
)

// Fetcher is the rate-limited per-symbol metadata source.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*domain.StockMetadata, error)
}

// Dataset is one refresh unit: a key identifying the logical result set, the
// base tickers of its universe, and the suffix that market-qualifies them
// for the provider (e.g. ".TW").
type Dataset struct {
	Key     string
	Symbols []string
	Suffix  string
}

// Options are the pipeline knobs. Zero values select the design defaults.
type Options struct {
	BatchSize  int           // symbols per batch; default 100
	MaxWorkers int           // concurrent fetches; default 10
	BatchDelay time.Duration // pause between batches; default 10s
}

// Orchestrator drives datasets through the cache → progress → batch → finalize
// state machine. It is the sole owner of the accumulating result and the
// sole writer of progress state; workers only fetch. Concurrent Refresh
// calls for the same dataset key are serialized internally.
type Orchestrator struct {
	client   Fetcher
	progress *ProgressStore
	cache    *FreshnessCache
	opts     Options
	log      *slog.Logger

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

// NewOrchestrator creates an Orchestrator over the given fetcher and stores.
func NewOrchestrator(client Fetcher, progress *ProgressStore, cache *FreshnessCache, opts Options) *Orchestrator {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100
	}
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = 10
	}
	if opts.BatchDelay == 0 {
		opts.BatchDelay = 10 * time.Second
	}
	return &Orchestrator{
		client:   client,
		progress: progress,
		cache:    cache,
		opts:     opts,
		log:      slog.Default().With("component", "refresh"),
		keys:     make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) keyLock(key string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.keys[key]
	if !ok {
		m = &sync.Mutex{}
		o.keys[key] = m
	}
	return m
}

// Refresh returns the dataset's enriched, ticker-sorted result set, serving
// a fresh cache entry when one exists and otherwise running (or resuming)
// the batch pipeline. On error, progress persisted so far stays on disk and
// the next invocation resumes from it.
func (o *Orchestrator) Refresh(ctx context.Context, ds Dataset) ([]domain.StockMetadata, error) {
	lock := o.keyLock(ds.Key)
	lock.Lock()
	defer lock.Unlock()

	log := o.log.With("dataset", ds.Key)

	// CHECKING_CACHE
	if data, ok := o.cache.Get(ds.Key); ok {
		log.Debug("serving cached categories", "symbols", len(data))
		return data, nil
	}

	today := time.Now().Format("2006-01-02")

	// CHECKING_PROGRESS
	state, ok := o.progress.Load(ds.Key, today)
	if ok && state.LastProcessed == "" {
		// Finalized earlier but the cache write never landed.
		log.Info("reusing finalized progress", "symbols", len(state.Data))
		if err := o.cache.Put(ds.Key, state.Data); err != nil {
			log.Warn("caching finalized progress failed", "err", err)
		}
		return state.Data, nil
	}
	if !ok {
		state = &ProgressState{Date: today}
	}

	// RUNNING_BATCHES
	accumulated := append([]domain.StockMetadata(nil), state.Data...)
	done := make(map[string]struct{}, len(accumulated))
	lastProcessed := state.LastProcessed
	for _, md := range accumulated {
		done[md.Ticker] = struct{}{}
	}

	universe := append([]string(nil), ds.Symbols...)
	sort.Strings(universe)

	var remaining []string
	for _, sym := range universe {
		if _, skip := done[sym]; !skip {
			remaining = append(remaining, sym)
		}
	}

	totalBatches := (len(remaining) + o.opts.BatchSize - 1) / o.opts.BatchSize
	log.Info("starting refresh",
		"date", today,
		"universe", len(universe),
		"resumed", len(accumulated),
		"remaining", len(remaining),
		"batches", totalBatches,
	)

	pool := newWorkerPool(o.opts.MaxWorkers, func(ctx context.Context, base string) (*domain.StockMetadata, error) {
		return o.client.Fetch(ctx, base+ds.Suffix)
	})

	runStart := time.Now()
	for i := 0; i < len(remaining); i += o.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch := remaining[i:min(i+o.opts.BatchSize, len(remaining))]
		batchIdx := i/o.opts.BatchSize + 1
		fetched := 0

		for res := range pool.Run(ctx, batch) {
			if res.err != nil {
				log.Warn("fetch failed", "symbol", res.symbol, "err", res.err)
				continue
			}
			if res.md == nil {
				log.Debug("symbol skipped", "symbol", res.symbol)
				continue
			}

			md := *res.md
			md.Ticker = res.symbol // record the base ticker, not the qualified one
			accumulated = append(accumulated, md)
			if res.symbol > lastProcessed {
				lastProcessed = res.symbol
			}

			state.Data = accumulated
			state.LastProcessed = lastProcessed
			if err := o.progress.Save(ds.Key, state); err != nil {
				return nil, fmt.Errorf("checkpointing %s: %w", ds.Key, err)
			}
			fetched++
		}

		log.Info("batch done",
			"batch", fmt.Sprintf("%d/%d", batchIdx, totalBatches),
			"fetched", fetched,
			"skipped", len(batch)-fetched,
			"elapsed", time.Since(runStart).Round(time.Second),
		)

		if i+o.opts.BatchSize < len(remaining) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.opts.BatchDelay):
			}
		}
	}

	// A cancel during the last batch must not finalize a partial result;
	// the checkpoint already on disk carries the next run instead.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// FINALIZING
	sort.Slice(accumulated, func(i, j int) bool {
		return accumulated[i].Ticker < accumulated[j].Ticker
	})
	final := &ProgressState{Date: today, Data: accumulated}
	if err := o.progress.Save(ds.Key, final); err != nil {
		return nil, fmt.Errorf("finalizing %s: %w", ds.Key, err)
	}
	if err := o.cache.Put(ds.Key, accumulated); err != nil {
		return nil, fmt.Errorf("caching %s: %w", ds.Key, err)
	}

	log.Info("refresh complete",
		"symbols", len(accumulated),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return accumulated, nil
}
