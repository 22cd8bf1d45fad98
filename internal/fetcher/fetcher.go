package fetcher

import (
	"context"

	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
)

// Fetcher is the fetch-through-cache surface the prefetcher and the search
// engine depend on. Both operations consult the cache first and populate it
// transparently on a miss.
type Fetcher interface {
	FetchCategoryList(
		ctx context.Context,
		category string,
	) ([]CategoryItem, failure.ClassifiedError)

	FetchItem(
		ctx context.Context,
		category string,
		index string,
	) (ItemDetail, failure.ClassifiedError)
}
