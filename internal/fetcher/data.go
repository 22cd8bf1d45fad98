package fetcher

import "time"

// HTTP boundary

// sourceAttribution is stamped onto every item payload, as the upstream
// terms of use ask.
const sourceAttribution = "D&D 5e API (www.dnd5eapi.co)"

// CategoryItem is a lightweight listing entry for one entity in a category.
// It is what a category-level cache key stores.
type CategoryItem struct {
	Name  string `json:"name"`
	Index string `json:"index"`
	URI   string `json:"uri"`
}

// ItemDetail is the full payload for a single entity. The shape is
// category-dependent and deliberately left generic; absent fields degrade
// to zero values at the consumer, they never fail the fetch.
type ItemDetail map[string]any

// CategoryRecord describes one category the upstream API advertises.
type CategoryRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URI         string `json:"uri"`
}

// StatusReport summarizes one probe of the upstream API root.
type StatusReport struct {
	Online       bool
	StatusCode   int
	ResponseTime time.Duration
	Endpoints    []string
}

// listResponseDTO mirrors the upstream category-listing shape:
// { "count": n, "results": [ { "name", "index", "url" }, ... ] }
type listResponseDTO struct {
	Count   int            `json:"count"`
	Results []listEntryDTO `json:"results"`
}

type listEntryDTO struct {
	Name  string `json:"name"`
	Index string `json:"index"`
	URL   string `json:"url"`
}

// Cache keys

// The fetcher owns canonical cache-key construction so the store stays free
// of domain knowledge. Category-level and item-level keys are disjoint
// namespaces by construction.

// CategoryListKey returns the cache key holding a category's item listing.
func CategoryListKey(category string) string {
	return "items_" + category
}

// ItemKey returns the cache key holding one entity's full payload.
func ItemKey(category string, index string) string {
	return "item_" + category + "_" + index
}

// CategoriesKey returns the cache key holding the category table itself.
func CategoriesKey() string {
	return "categories_all"
}

// ItemURI derives the retrieval URI advertised alongside a listing entry.
func ItemURI(category string, index string) string {
	return "resource://dnd/item/" + category + "/" + index
}
