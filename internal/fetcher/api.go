package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rohmanhakim/dnd-navigator/internal/cachestore"
	"github.com/rohmanhakim/dnd-navigator/internal/catalog"
	"github.com/rohmanhakim/dnd-navigator/internal/config"
	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
	"github.com/rohmanhakim/dnd-navigator/pkg/retry"
	"github.com/rohmanhakim/dnd-navigator/pkg/timeutil"
)

/*
Responsibilities

- Perform upstream HTTP requests with a fixed timeout
- Consult the cache before every upstream call, populate it after
- Follow at most one redirect when the upstream signals a moved resource
- Classify every failure; never surface a raw fault

Fetch Semantics

- A cached, unexpired payload short-circuits the upstream entirely
- A malformed cached payload is treated as a miss and refetched
- Concurrent misses on the same key collapse into one upstream call
- A non-success upstream status becomes a structured not-found error

The fetcher owns cache-key construction; the store never sees domain names.
*/

type ApiFetcher struct {
	store      *cachestore.Store
	sink       metadata.MetadataSink
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retryParam retry.RetryParam
	group      singleflight.Group
}

func NewApiFetcher(
	cfg config.Config,
	store *cachestore.Store,
	sink metadata.MetadataSink,
) *ApiFetcher {
	return &ApiFetcher{
		store: store,
		sink:  sink,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			// Redirects are followed manually, once, by performFetch
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:   cfg.BaseURL(),
		userAgent: cfg.UserAgent(),
		retryParam: retry.NewRetryParam(
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			timeutil.NewBackoffParam(
				cfg.BackoffInitialDuration(),
				cfg.BackoffMultiplier(),
				cfg.BackoffMaxDuration(),
			),
		),
	}
}

// FetchCategoryList returns the listing for category, from cache when
// possible. On a miss it performs the upstream list request, transforms the
// results into CategoryItem summaries, caches them, and returns them.
func (f *ApiFetcher) FetchCategoryList(
	ctx context.Context,
	category string,
) ([]CategoryItem, failure.ClassifiedError) {
	if !catalog.IsKnown(category) {
		return nil, f.unknownCategory("ApiFetcher.FetchCategoryList", category)
	}

	key := CategoryListKey(category)
	if raw, found := f.store.Get(key); found {
		var items []CategoryItem
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
		// Malformed cached payload: fall through and refetch
	}

	result, err := f.collapse(key, func() (any, failure.ClassifiedError) {
		return f.fetchListUpstream(ctx, category, key)
	})
	if err != nil {
		return nil, err
	}
	return result.([]CategoryItem), nil
}

// FetchItem returns the full payload for one entity, from cache when
// possible. On a miss it performs the upstream detail request, following at
// most one redirect, caches the payload, and returns it.
func (f *ApiFetcher) FetchItem(
	ctx context.Context,
	category string,
	index string,
) (ItemDetail, failure.ClassifiedError) {
	if !catalog.IsKnown(category) {
		return nil, f.unknownCategory("ApiFetcher.FetchItem", category)
	}

	key := ItemKey(category, index)
	if raw, found := f.store.Get(key); found {
		var detail ItemDetail
		if err := json.Unmarshal(raw, &detail); err == nil {
			return detail, nil
		}
	}

	result, err := f.collapse(key, func() (any, failure.ClassifiedError) {
		return f.fetchItemUpstream(ctx, category, index, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(ItemDetail), nil
}

// FetchCategories returns the table of categories the upstream API
// advertises at its root, decorated with catalog descriptions.
func (f *ApiFetcher) FetchCategories(ctx context.Context) ([]CategoryRecord, failure.ClassifiedError) {
	key := CategoriesKey()
	if raw, found := f.store.Get(key); found {
		var records []CategoryRecord
		if err := json.Unmarshal(raw, &records); err == nil {
			return records, nil
		}
	}

	result, err := f.collapse(key, func() (any, failure.ClassifiedError) {
		return f.fetchCategoriesUpstream(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.([]CategoryRecord), nil
}

// CheckStatus probes the upstream API root and reports availability. The
// probe bypasses the cache on purpose: a status check that answers from
// cache answers nothing.
func (f *ApiFetcher) CheckStatus(ctx context.Context) StatusReport {
	startTime := time.Now()
	body, statusCode, err := f.performFetch(ctx, f.baseURL, false)
	elapsed := time.Since(startTime)

	report := StatusReport{
		StatusCode:   statusCode,
		ResponseTime: elapsed,
	}
	if err != nil {
		f.recordFetchError("ApiFetcher.CheckStatus", f.baseURL, err)
		return report
	}

	var endpoints map[string]string
	if decodeErr := json.Unmarshal(body, &endpoints); decodeErr != nil {
		return report
	}

	report.Online = true
	for name := range endpoints {
		report.Endpoints = append(report.Endpoints, name)
	}
	sort.Strings(report.Endpoints)
	return report
}

func (f *ApiFetcher) fetchListUpstream(
	ctx context.Context,
	category string,
	key string,
) (any, failure.ClassifiedError) {
	body, err := f.fetchWithRetry(ctx, f.baseURL+"/"+category, false)
	if err != nil {
		f.recordFetchError("ApiFetcher.FetchCategoryList", f.baseURL+"/"+category, err)
		return nil, err
	}

	var dto listResponseDTO
	if decodeErr := json.Unmarshal(body, &dto); decodeErr != nil {
		classified := &FetchError{
			Message:   fmt.Sprintf("failed to decode category listing: %v", decodeErr),
			Retryable: false,
			Cause:     ErrCauseDecodeFailure,
		}
		f.recordFetchError("ApiFetcher.FetchCategoryList", f.baseURL+"/"+category, classified)
		return nil, classified
	}

	items := make([]CategoryItem, 0, len(dto.Results))
	for _, entry := range dto.Results {
		items = append(items, CategoryItem{
			Name:  entry.Name,
			Index: entry.Index,
			URI:   ItemURI(category, entry.Index),
		})
	}

	f.cache(key, items)
	return items, nil
}

func (f *ApiFetcher) fetchItemUpstream(
	ctx context.Context,
	category string,
	index string,
	key string,
) (any, failure.ClassifiedError) {
	fetchURL := f.baseURL + "/" + category + "/" + index
	body, err := f.fetchWithRetry(ctx, fetchURL, true)
	if err != nil {
		f.recordFetchError("ApiFetcher.FetchItem", fetchURL, err)
		return nil, err
	}

	var detail ItemDetail
	decodeErr := json.Unmarshal(body, &detail)
	if decodeErr == nil && detail == nil {
		// A bare JSON null decodes into a nil map without error
		decodeErr = errors.New("payload is not a JSON object")
	}
	if decodeErr != nil {
		classified := &FetchError{
			Message:   fmt.Sprintf("failed to decode item payload: %v", decodeErr),
			Retryable: false,
			Cause:     ErrCauseDecodeFailure,
		}
		f.recordFetchError("ApiFetcher.FetchItem", fetchURL, classified)
		return nil, classified
	}

	detail["source"] = sourceAttribution

	f.cache(key, detail)
	return detail, nil
}

func (f *ApiFetcher) fetchCategoriesUpstream(
	ctx context.Context,
	key string,
) (any, failure.ClassifiedError) {
	body, err := f.fetchWithRetry(ctx, f.baseURL, false)
	if err != nil {
		f.recordFetchError("ApiFetcher.FetchCategories", f.baseURL, err)
		return nil, err
	}

	var endpoints map[string]string
	if decodeErr := json.Unmarshal(body, &endpoints); decodeErr != nil {
		classified := &FetchError{
			Message:   fmt.Sprintf("failed to decode category table: %v", decodeErr),
			Retryable: false,
			Cause:     ErrCauseDecodeFailure,
		}
		f.recordFetchError("ApiFetcher.FetchCategories", f.baseURL, classified)
		return nil, classified
	}

	records := make([]CategoryRecord, 0, len(endpoints))
	for name := range endpoints {
		records = append(records, CategoryRecord{
			Name:        name,
			Description: catalog.Description(name),
			URI:         "resource://dnd/items/" + name,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})

	f.cache(key, records)
	return records, nil
}

// collapse funnels concurrent misses on the same key into one upstream
// call via singleflight.
func (f *ApiFetcher) collapse(
	key string,
	fn func() (any, failure.ClassifiedError),
) (any, failure.ClassifiedError) {
	result, err, _ := f.group.Do(key, func() (any, error) {
		value, fetchErr := fn()
		if fetchErr != nil {
			return nil, fetchErr
		}
		return value, nil
	})
	if err != nil {
		if classified, ok := err.(failure.ClassifiedError); ok {
			return nil, classified
		}
		return nil, &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	return result, nil
}

func (f *ApiFetcher) cache(key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		// Values are built from decoded JSON; this cannot normally happen.
		// Skipping the cache write only costs a refetch next time.
		return
	}
	f.store.Set(key, encoded)
}

func (f *ApiFetcher) fetchWithRetry(
	ctx context.Context,
	fetchURL string,
	followRedirect bool,
) ([]byte, failure.ClassifiedError) {
	startTime := time.Now()

	fetchTask := func() ([]byte, failure.ClassifiedError) {
		body, _, err := f.performFetch(ctx, fetchURL, followRedirect)
		return body, err
	}
	body, err := retry.Retry(f.retryParam, fetchTask)

	duration := time.Since(startTime)

	var statusCode int
	var retryCount int
	if err != nil {
		var retryErr *retry.RetryError
		if errors.As(err, &retryErr) {
			retryCount = f.retryParam.MaxAttempts
		}
	} else {
		statusCode = http.StatusOK
	}
	f.sink.RecordFetch(fetchURL, statusCode, duration, retryCount)

	if err != nil {
		return nil, err
	}
	return body, nil
}

// performFetch executes a single GET and classifies the outcome. When
// followRedirect is set and the upstream answers with a redirect status
// plus a Location header, exactly one extra hop is taken.
func (f *ApiFetcher) performFetch(
	ctx context.Context,
	fetchURL string,
	followRedirect bool,
) ([]byte, int, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, 0, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, 0, &FetchError{
				Message:   fmt.Sprintf("request timed out: %v", err),
				Retryable: true,
				Cause:     ErrCauseTimeout,
			}
		}
		// Network/transport errors are retryable
		return nil, 0, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		// Server errors (5xx) are retryable
		return nil, resp.StatusCode, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if followRedirect && location != "" {
			// The upstream signals a moved resource; follow exactly once
			return f.performFetch(ctx, resolveRedirect(fetchURL, location), false)
		}
		return nil, resp.StatusCode, &FetchError{
			Message:   fmt.Sprintf("redirect without usable target: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectInvalid,
		}

	case resp.StatusCode >= 400:
		// Anything the upstream declines is a structured not-found
		return nil, resp.StatusCode, &FetchError{
			Message:   fmt.Sprintf("upstream declined request: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseNotFound,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	return body, resp.StatusCode, nil
}

// resolveRedirect turns a Location header value into an absolute URL,
// resolving relative targets against the original request URL.
func resolveRedirect(fetchURL string, location string) string {
	base, err := url.Parse(fetchURL)
	if err != nil {
		return location
	}
	target, err := url.Parse(location)
	if err != nil {
		return location
	}
	return base.ResolveReference(target).String()
}

func (f *ApiFetcher) unknownCategory(action string, category string) failure.ClassifiedError {
	classified := &FetchError{
		Message:   fmt.Sprintf("category %q is not part of the upstream API", category),
		Retryable: false,
		Cause:     ErrCauseUnknownCategory,
	}
	f.sink.RecordError(
		time.Now(),
		"fetcher",
		action,
		metadata.CauseInvalidInput,
		classified.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCategory, category),
		},
	)
	return classified
}

func (f *ApiFetcher) recordFetchError(action string, fetchURL string, err failure.ClassifiedError) {
	cause := metadata.ErrorCause(metadata.CauseUnknown)
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToMetadataCause(fetchErr)
	}
	var retryErr *retry.RetryError
	if errors.As(err, &retryErr) {
		cause = metadata.CauseNetworkFailure
	}
	f.sink.RecordError(
		time.Now(),
		"fetcher",
		action,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchURL),
		},
	)
}
