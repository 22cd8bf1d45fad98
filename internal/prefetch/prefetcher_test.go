package prefetch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/dnd-navigator/internal/cachestore"
	"github.com/rohmanhakim/dnd-navigator/internal/config"
	"github.com/rohmanhakim/dnd-navigator/internal/fetcher"
	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/internal/prefetch"
	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fetcherMock is a testify mock for the Fetcher
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) FetchCategoryList(ctx context.Context, category string) ([]fetcher.CategoryItem, failure.ClassifiedError) {
	args := f.Called(ctx, category)
	var items []fetcher.CategoryItem
	if args.Get(0) != nil {
		items = args.Get(0).([]fetcher.CategoryItem)
	}
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return items, err
}

func (f *fetcherMock) FetchItem(ctx context.Context, category string, index string) (fetcher.ItemDetail, failure.ClassifiedError) {
	args := f.Called(ctx, category, index)
	var detail fetcher.ItemDetail
	if args.Get(0) != nil {
		detail = args.Get(0).(fetcher.ItemDetail)
	}
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return detail, err
}

func summaries(category string, indexes ...string) []fetcher.CategoryItem {
	items := make([]fetcher.CategoryItem, 0, len(indexes))
	for _, index := range indexes {
		items = append(items, fetcher.CategoryItem{
			Name:  index,
			Index: index,
			URI:   fetcher.ItemURI(category, index),
		})
	}
	return items
}

func TestWarm_FetchesEveryListedItem(t *testing.T) {
	m := new(fetcherMock)
	m.On("FetchCategoryList", mock.Anything, "spells").
		Return(summaries("spells", "fireball", "shield", "mage-armor"), nil)
	m.On("FetchItem", mock.Anything, "spells", mock.Anything).
		Return(fetcher.ItemDetail{"name": "x"}, nil)

	p := prefetch.NewPrefetcher(m, &metadata.NoopSink{}, &metadata.NoopSink{}, 2)
	p.Warm(context.Background(), []string{"spells"})
	p.Drain()

	m.AssertNumberOfCalls(t, "FetchItem", 3)
}

func TestWarm_FailedListingSkipsCategoryOnly(t *testing.T) {
	m := new(fetcherMock)
	m.On("FetchCategoryList", mock.Anything, "spells").
		Return(nil, &fetcher.FetchError{Message: "down", Retryable: true, Cause: fetcher.ErrCauseNetworkFailure})
	m.On("FetchCategoryList", mock.Anything, "monsters").
		Return(summaries("monsters", "goblin"), nil)
	m.On("FetchItem", mock.Anything, "monsters", "goblin").
		Return(fetcher.ItemDetail{"name": "Goblin"}, nil)

	p := prefetch.NewPrefetcher(m, &metadata.NoopSink{}, &metadata.NoopSink{}, 2)
	p.Warm(context.Background(), []string{"spells", "monsters"})
	p.Drain()

	// The failed spells lane must not block the monsters lane
	m.AssertCalled(t, "FetchItem", mock.Anything, "monsters", "goblin")
	m.AssertNumberOfCalls(t, "FetchItem", 1)
}

func TestWarm_FailedItemDoesNotAbortLane(t *testing.T) {
	m := new(fetcherMock)
	m.On("FetchCategoryList", mock.Anything, "spells").
		Return(summaries("spells", "fireball", "broken", "shield"), nil)
	m.On("FetchItem", mock.Anything, "spells", "broken").
		Return(nil, &fetcher.FetchError{Message: "404", Retryable: false, Cause: fetcher.ErrCauseNotFound})
	m.On("FetchItem", mock.Anything, "spells", mock.Anything).
		Return(fetcher.ItemDetail{"name": "x"}, nil)

	p := prefetch.NewPrefetcher(m, &metadata.NoopSink{}, &metadata.NoopSink{}, 1)
	p.Warm(context.Background(), []string{"spells"})
	p.Drain()

	m.AssertNumberOfCalls(t, "FetchItem", 3)
}

func TestWarm_BoundsInFlightFetches(t *testing.T) {
	const bound = 2

	var inFlight int64
	var peak int64
	var peakMu sync.Mutex

	m := new(fetcherMock)
	m.On("FetchCategoryList", mock.Anything, "spells").
		Return(summaries("spells", "a", "b", "c", "d", "e", "f"), nil)
	m.On("FetchItem", mock.Anything, "spells", mock.Anything).
		Run(func(args mock.Arguments) {
			current := atomic.AddInt64(&inFlight, 1)
			peakMu.Lock()
			if current > peak {
				peak = current
			}
			peakMu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
		}).
		Return(fetcher.ItemDetail{"name": "x"}, nil)

	p := prefetch.NewPrefetcher(m, &metadata.NoopSink{}, &metadata.NoopSink{}, bound)
	p.Warm(context.Background(), []string{"spells"})
	p.Drain()

	peakMu.Lock()
	defer peakMu.Unlock()
	assert.LessOrEqual(t, peak, int64(bound))
}

func TestWarm_ConcurrentWarmAndDrainIsSafe(t *testing.T) {
	m := new(fetcherMock)
	m.On("FetchCategoryList", mock.Anything, mock.Anything).
		Return([]fetcher.CategoryItem{}, nil)

	p := prefetch.NewPrefetcher(m, &metadata.NoopSink{}, &metadata.NoopSink{}, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Warm(context.Background(), []string{"spells"})
		}()
		go func() {
			defer wg.Done()
			p.Drain()
		}()
	}
	wg.Wait()
	p.Drain()
}

func TestWarm_DrainBeforeWarmReturnsImmediately(t *testing.T) {
	p := prefetch.NewPrefetcher(new(fetcherMock), &metadata.NoopSink{}, &metadata.NoopSink{}, 1)

	done := make(chan struct{})
	go func() {
		p.Drain()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain blocked with no warm-up in flight")
	}
}

// TestWarm_SecondRunIssuesNoUpstreamCalls exercises the real fetch-through
// path: warming twice against a counting fixture upstream must hit each
// detail endpoint at most once.
func TestWarm_SecondRunIssuesNoUpstreamCalls(t *testing.T) {
	var mu sync.Mutex
	hits := make(map[string]int)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		switch r.URL.Path {
		case "/spells":
			fmt.Fprint(w, `{"count":2,"results":[
				{"index":"fireball","name":"Fireball","url":"/api/spells/fireball"},
				{"index":"shield","name":"Shield","url":"/api/spells/shield"}]}`)
		case "/spells/fireball":
			fmt.Fprint(w, `{"index":"fireball","name":"Fireball"}`)
		case "/spells/shield":
			fmt.Fprint(w, `{"index":"shield","name":"Shield"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg, err := config.WithDefault().
		WithBaseURL(server.URL).
		WithMaxAttempt(1).
		Build()
	require.NoError(t, err)

	store := cachestore.NewStore(cfg.TTL(), false, "", &metadata.NoopSink{})
	apiFetcher := fetcher.NewApiFetcher(cfg, store, &metadata.NoopSink{})
	p := prefetch.NewPrefetcher(apiFetcher, &metadata.NoopSink{}, &metadata.NoopSink{}, 2)

	p.Warm(context.Background(), []string{"spells"})
	p.Drain()
	p.Warm(context.Background(), []string{"spells"})
	p.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits["/spells"], "listing fetched once")
	assert.Equal(t, 1, hits["/spells/fireball"], "detail fetched at most once")
	assert.Equal(t, 1, hits["/spells/shield"], "detail fetched at most once")
}
