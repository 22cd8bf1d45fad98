package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rohmanhakim/dnd-navigator/internal/catalog"
	"github.com/rohmanhakim/dnd-navigator/internal/fetcher"
	"github.com/rohmanhakim/dnd-navigator/internal/metadata"
	"github.com/rohmanhakim/dnd-navigator/pkg/failure"
)

/*
Engine answers free-text queries by fanning out over every searchable
category, scoring candidates with the rule table, and keeping the top
matches per category and overall.

Ranking guarantees:
 - Candidates are ordered by score descending.
 - On equal score, upstream enumeration order within a category is the
   tie-break; categories merge in canonical catalog order.
 - Per-category and overall lists are capped; the total count is not.

Failure semantics: a category whose listing or any candidate detail fetch
fails is dropped from that search entirely. A dropped category never fails
the search and contributes nothing to the counts.
*/

type Engine struct {
	itemFetcher fetcher.Fetcher
	sink        metadata.MetadataSink
}

func NewEngine(itemFetcher fetcher.Fetcher, sink metadata.MetadataSink) *Engine {
	return &Engine{
		itemFetcher: itemFetcher,
		sink:        sink,
	}
}

// Search ranks every known entity against query. An empty or
// whitespace-only query is a caller error.
func (e *Engine) Search(ctx context.Context, query string) (SearchResult, failure.ClassifiedError) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		classified := &SearchError{
			Message: "query must contain at least one token",
			Cause:   ErrCauseEmptyQuery,
		}
		e.sink.RecordError(
			time.Now(),
			"search",
			"Engine.Search",
			metadata.CauseInvalidInput,
			classified.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrQuery, query),
			},
		)
		return SearchResult{}, classified
	}

	boosts := classifyBoosts(tokens)

	result := SearchResult{
		PerCategory: make(map[string][]SearchMatch),
	}
	var merged []SearchMatch

	for _, category := range catalog.Searchable() {
		matches, ok := e.searchCategory(ctx, category, tokens, boosts[category])
		if !ok || len(matches) == 0 {
			continue
		}

		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})

		result.TotalCount += len(matches)
		result.PerCategory[category] = capMatches(matches, maxPerCategory)
		merged = append(merged, matches...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	result.TopOverall = capMatches(merged, maxOverall)

	return result, nil
}

// searchCategory returns the surviving candidates for one category in
// upstream enumeration order. ok is false when any fetch failed and the
// category must be dropped.
func (e *Engine) searchCategory(
	ctx context.Context,
	category string,
	tokens []string,
	boost int,
) ([]SearchMatch, bool) {
	items, err := e.itemFetcher.FetchCategoryList(ctx, category)
	if err != nil {
		e.recordCategorySkip(category, err)
		return nil, false
	}

	var matches []SearchMatch
	for _, item := range items {
		cand := candidate{
			name:  strings.ToLower(item.Name),
			index: strings.ToLower(item.Index),
		}
		// Cheap pre-filter: only fetch detail for summaries that already
		// touch the query
		if !matchesAnyToken(cand, tokens) {
			continue
		}

		detail, fetchErr := e.itemFetcher.FetchItem(ctx, category, item.Index)
		if fetchErr != nil {
			e.recordCategorySkip(category, fetchErr)
			return nil, false
		}
		cand.detail = detail

		score := scoreCandidate(cand, tokens) + boost
		if score <= 0 {
			continue
		}
		matches = append(matches, SearchMatch{
			Category: category,
			Name:     item.Name,
			Index:    item.Index,
			URI:      item.URI,
			Score:    score,
		})
	}
	return matches, true
}

func matchesAnyToken(c candidate, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(c.name, token) || strings.Contains(c.index, token) {
			return true
		}
	}
	return false
}

func capMatches(matches []SearchMatch, limit int) []SearchMatch {
	if len(matches) <= limit {
		return matches
	}
	return matches[:limit]
}

func (e *Engine) recordCategorySkip(category string, err failure.ClassifiedError) {
	cause := metadata.ErrorCause(metadata.CauseNetworkFailure)
	if fetcher.IsNotFound(err) {
		cause = metadata.CauseUpstreamRejection
	}
	e.sink.RecordError(
		time.Now(),
		"search",
		"Engine.searchCategory",
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCategory, category),
		},
	)
}
