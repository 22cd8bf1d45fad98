package search

import "strings"

// Result caps. Per-category lists and the overall list are bounded; the
// total count is not.
const (
	maxPerCategory = 5
	maxOverall     = 5
)

// SearchMatch is one scored candidate surviving a search.
type SearchMatch struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Index    string `json:"index"`
	URI      string `json:"uri"`
	Score    int    `json:"score"`
}

// SearchResult is the full outcome of one query.
//
// PerCategory holds at most maxPerCategory matches per category, ranked.
// TopOverall holds at most maxOverall matches across every category.
// TotalCount counts every surviving candidate, uncapped.
type SearchResult struct {
	PerCategory map[string][]SearchMatch `json:"perCategory"`
	TopOverall  []SearchMatch            `json:"topOverall"`
	TotalCount  int                      `json:"totalCount"`
}

// Query-classification vocabularies. A token overlapping a vocabulary
// raises the priority of the categories that vocabulary points at.

var magicItemVocabulary = wordSet(
	"magic", "magical", "enchanted", "cursed", "wondrous",
	"rarity", "rare", "legendary", "artifact",
	"potion", "scroll", "wand", "ring", "rod", "staff",
)

var spellVocabulary = wordSet(
	"spell", "spells", "cantrip", "cast", "casting", "ritual",
	"abjuration", "conjuration", "divination", "enchantment",
	"evocation", "illusion", "necromancy", "transmutation",
)

var monsterVocabulary = wordSet(
	"monster", "monsters", "creature", "beast", "dragon",
	"undead", "fiend", "aberration", "elemental", "giant",
	"challenge",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// tokenize splits a query on whitespace and lower-cases every token.
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// classifyBoosts maps the query tokens onto per-category priority boosts.
// Categories absent from the map get no boost.
func classifyBoosts(tokens []string) map[string]int {
	boosts := make(map[string]int)
	if overlaps(tokens, magicItemVocabulary) {
		boosts["magic-items"] += 10
		boosts["equipment"] += 5
	}
	if overlaps(tokens, spellVocabulary) {
		boosts["spells"] += 10
	}
	if overlaps(tokens, monsterVocabulary) {
		boosts["monsters"] += 10
	}
	return boosts
}

func overlaps(tokens []string, vocabulary map[string]struct{}) bool {
	for _, token := range tokens {
		if _, ok := vocabulary[token]; ok {
			return true
		}
	}
	return false
}
