package prefetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rohmanhakim/dnd-navigator/internal/fetcher"
	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
)

/*
Prefetcher warms the cache for a fixed set of hot categories without
blocking any caller.

Warm-up guarantees:
 - One detached lane per category; lanes never serialize behind each other.
 - Within a lane, at most maxInFlight item fetches run concurrently, so a
   cold start cannot overwhelm the upstream API.
 - A failed item or a failed category listing is recorded and skipped;
   it never aborts the rest of the warm-up.
 - Re-running a warm-up is idempotent at the upstream: every fetch goes
   through the cache, so unexpired items cost no upstream call.

There is no cancellation contract beyond the context handed to Warm; an
abandoned lane loses nothing, the cache simply stays partially warm.
Drain exists for callers (and tests) that want to wait for lanes to finish.
*/

type Prefetcher struct {
	itemFetcher fetcher.Fetcher
	sink        metadata.MetadataSink
	finalizer   metadata.WarmFinalizer
	maxInFlight int64

	// mu guards lanes so Warm and Drain are safe from different goroutines
	mu    sync.Mutex
	lanes chan struct{}
}

func NewPrefetcher(
	itemFetcher fetcher.Fetcher,
	sink metadata.MetadataSink,
	finalizer metadata.WarmFinalizer,
	maxInFlight int,
) *Prefetcher {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	// Drain before any Warm must not block
	idle := make(chan struct{})
	close(idle)
	return &Prefetcher{
		itemFetcher: itemFetcher,
		sink:        sink,
		finalizer:   finalizer,
		maxInFlight: int64(maxInFlight),
		lanes:       idle,
	}
}

// Warm starts one background lane per category and returns immediately.
func (p *Prefetcher) Warm(ctx context.Context, categories []string) {
	done := make(chan struct{})
	p.mu.Lock()
	p.lanes = done
	p.mu.Unlock()

	remaining := make(chan struct{}, len(categories))
	for _, category := range categories {
		go func(category string) {
			p.warmCategory(ctx, category)
			remaining <- struct{}{}
		}(category)
	}

	go func(laneCount int) {
		for i := 0; i < laneCount; i++ {
			<-remaining
		}
		close(done)
	}(len(categories))
}

// Drain blocks until every lane started by the last Warm call has finished.
// Request-serving code never calls this; it exists for orderly shutdown
// and tests.
func (p *Prefetcher) Drain() {
	p.mu.Lock()
	lanes := p.lanes
	p.mu.Unlock()
	<-lanes
}

func (p *Prefetcher) warmCategory(ctx context.Context, category string) {
	startTime := time.Now()

	items, err := p.itemFetcher.FetchCategoryList(ctx, category)
	if err != nil {
		p.sink.RecordError(
			time.Now(),
			"prefetch",
			"Prefetcher.warmCategory",
			metadata.CauseUnknown,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrCategory, category),
			},
		)
		p.finalizer.RecordWarmStats(category, 0, 0, 1, time.Since(startTime))
		return
	}

	sem := semaphore.NewWeighted(p.maxInFlight)
	results := make(chan bool, len(items))

	for _, item := range items {
		if acquireErr := sem.Acquire(ctx, 1); acquireErr != nil {
			// Context gone; whatever is cached so far stays warm
			results <- false
			continue
		}
		go func(index string) {
			defer sem.Release(1)
			_, fetchErr := p.itemFetcher.FetchItem(ctx, category, index)
			if fetchErr != nil {
				p.sink.RecordError(
					time.Now(),
					"prefetch",
					"Prefetcher.warmCategory",
					metadata.CauseUnknown,
					fetchErr.Error(),
					[]metadata.Attribute{
						metadata.NewAttr(metadata.AttrCategory, category),
						metadata.NewAttr(metadata.AttrIndex, index),
					},
				)
			}
			results <- fetchErr == nil
		}(item.Index)
	}

	fetched := 0
	failed := 0
	for range items {
		if <-results {
			fetched++
		} else {
			failed++
		}
	}

	p.finalizer.RecordWarmStats(category, len(items), fetched, failed, time.Since(startTime))
}
