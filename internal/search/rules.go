package search

import (
	"strings"

	"github.com/rohmanhakim/dnd-navigator/internal/fetcher"
)

/*
Scoring is an ordered table of independent rules. Each rule inspects one
facet of a candidate and returns a non-negative contribution; the
candidate's score is the sum over the table plus the category priority
boost. Keeping the rules in one table makes each weight auditable and
testable on its own.
*/

// Rule weights.
const (
	weightExactMatch    = 100
	weightAllTokensName = 50
	weightNameToken     = 20
	weightKeyToken      = 15
	weightNamePrefix    = 10
	weightDescToken     = 5
	weightEquipCategory = 10
	weightRarity        = 10
	weightSpellSchool   = 10
	weightSpellClass    = 15
)

// candidate carries the lower-cased text facets scoring operates on.
// detail is nil until (and unless) the full payload has been fetched.
type candidate struct {
	name   string
	index  string
	detail fetcher.ItemDetail
}

type scoringRule struct {
	name  string
	score func(c candidate, tokens []string) int
}

var scoringRules = []scoringRule{
	{name: "exact_match", score: scoreExactMatch},
	{name: "name_tokens", score: scoreNameTokens},
	{name: "key_tokens", score: scoreKeyTokens},
	{name: "all_tokens_in_name", score: scoreAllTokensInName},
	{name: "name_prefix", score: scoreNamePrefix},
	{name: "description_tokens", score: scoreDescriptionTokens},
	{name: "equipment_category", score: scoreEquipmentCategory},
	{name: "rarity", score: scoreRarity},
	{name: "spell_school", score: scoreSpellSchool},
	{name: "spell_classes", score: scoreSpellClasses},
}

// scoreCandidate applies the full rule table. The category boost is added
// by the engine afterwards.
func scoreCandidate(c candidate, tokens []string) int {
	total := 0
	for _, rule := range scoringRules {
		total += rule.score(c, tokens)
	}
	return total
}

func scoreExactMatch(c candidate, tokens []string) int {
	query := strings.Join(tokens, " ")
	if query == c.name || query == c.index {
		return weightExactMatch
	}
	return 0
}

func scoreNameTokens(c candidate, tokens []string) int {
	score := 0
	for _, token := range tokens {
		if strings.Contains(c.name, token) {
			score += weightNameToken
		}
	}
	return score
}

func scoreKeyTokens(c candidate, tokens []string) int {
	score := 0
	for _, token := range tokens {
		if strings.Contains(c.index, token) {
			score += weightKeyToken
		}
	}
	return score
}

func scoreAllTokensInName(c candidate, tokens []string) int {
	for _, token := range tokens {
		if !strings.Contains(c.name, token) {
			return 0
		}
	}
	return weightAllTokensName
}

func scoreNamePrefix(c candidate, tokens []string) int {
	for _, token := range tokens {
		if strings.HasPrefix(c.name, token) {
			return weightNamePrefix
		}
	}
	return 0
}

func scoreDescriptionTokens(c candidate, tokens []string) int {
	text := descriptionText(c.detail)
	if text == "" {
		return 0
	}
	score := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			score += weightDescToken
		}
	}
	return score
}

func scoreEquipmentCategory(c candidate, tokens []string) int {
	return matchNestedName(c.detail, "equipment_category", tokens, weightEquipCategory)
}

func scoreRarity(c candidate, tokens []string) int {
	return matchNestedName(c.detail, "rarity", tokens, weightRarity)
}

func scoreSpellSchool(c candidate, tokens []string) int {
	return matchNestedName(c.detail, "school", tokens, weightSpellSchool)
}

func scoreSpellClasses(c candidate, tokens []string) int {
	for _, className := range nestedNameList(c.detail, "classes") {
		for _, token := range tokens {
			if strings.Contains(className, token) {
				return weightSpellClass
			}
		}
	}
	return 0
}

// Payload facet extraction. Item payloads are dynamically shaped; absent or
// oddly typed fields degrade to zero contributions, never to failures.

// descriptionText flattens the payload's desc field, which the upstream
// serves as either a string or a list of strings.
func descriptionText(detail fetcher.ItemDetail) string {
	if detail == nil {
		return ""
	}
	switch desc := detail["desc"].(type) {
	case string:
		return strings.ToLower(desc)
	case []any:
		var parts []string
		for _, line := range desc {
			if s, ok := line.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.ToLower(strings.Join(parts, " "))
	}
	return ""
}

// nestedName extracts field.name from the payload, lower-cased.
func nestedName(detail fetcher.ItemDetail, field string) string {
	if detail == nil {
		return ""
	}
	nested, ok := detail[field].(map[string]any)
	if !ok {
		return ""
	}
	name, ok := nested["name"].(string)
	if !ok {
		return ""
	}
	return strings.ToLower(name)
}

// nestedNameList extracts every entry's name from a list-valued field.
func nestedNameList(detail fetcher.ItemDetail, field string) []string {
	if detail == nil {
		return nil
	}
	entries, ok := detail[field].([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, entry := range entries {
		nested, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := nested["name"].(string); ok {
			names = append(names, strings.ToLower(name))
		}
	}
	return names
}

func matchNestedName(detail fetcher.ItemDetail, field string, tokens []string, weight int) int {
	value := nestedName(detail, field)
	if value == "" {
		return 0
	}
	for _, token := range tokens {
		if strings.Contains(value, token) {
			return weight
		}
	}
	return 0
}
