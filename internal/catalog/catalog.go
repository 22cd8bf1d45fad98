package catalog

/*
Catalog is the closed table of categories the upstream API exposes.

Rules:
 - The table is data, not behavior: it never performs I/O.
 - Ordering of Categories() is fixed and alphabetical, so every fan-out
   that walks it (search, warm-up defaults) is deterministic.
 - Rule-text categories carry prose fragments of the game rules rather
   than addressable entities; they are excluded from relevance search.
*/

type category struct {
	name        string
	description string
	ruleText    bool
}

// Ordering here is the canonical enumeration order.
var categories = []category{
	{name: "ability-scores", description: "The six abilities that describe a character's physical and mental characteristics"},
	{name: "alignments", description: "The moral and ethical attitudes and behaviors of creatures"},
	{name: "backgrounds", description: "Character backgrounds and their features"},
	{name: "classes", description: "Character classes with features, proficiencies, and subclasses"},
	{name: "conditions", description: "Status conditions that affect creatures"},
	{name: "damage-types", description: "Types of damage that can be dealt"},
	{name: "equipment", description: "Items, weapons, armor, and gear for adventuring"},
	{name: "equipment-categories", description: "Categories of equipment"},
	{name: "feats", description: "Special abilities and features"},
	{name: "features", description: "Class and racial features"},
	{name: "languages", description: "Languages spoken throughout the multiverse"},
	{name: "magic-items", description: "Magical equipment with special properties"},
	{name: "magic-schools", description: "Schools of magic specialization"},
	{name: "monsters", description: "Creatures and foes"},
	{name: "proficiencies", description: "Skills and tools characters can be proficient with"},
	{name: "races", description: "Character races and their traits"},
	{name: "rule-sections", description: "Sections of the game rules", ruleText: true},
	{name: "rules", description: "Game rules", ruleText: true},
	{name: "skills", description: "Character skills tied to ability scores"},
	{name: "spells", description: "Magic spells with effects, components, and descriptions"},
	{name: "subclasses", description: "Specializations within character classes"},
	{name: "subraces", description: "Variants of character races"},
	{name: "traits", description: "Racial traits"},
	{name: "weapon-properties", description: "Special properties of weapons"},
}

var byName = func() map[string]category {
	m := make(map[string]category, len(categories))
	for _, c := range categories {
		m[c.name] = c
	}
	return m
}()

// Categories returns every known category name in canonical order.
func Categories() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.name
	}
	return names
}

// Searchable returns the category names relevance search fans out over,
// in canonical order. Rule-text categories are excluded.
func Searchable() []string {
	var names []string
	for _, c := range categories {
		if !c.ruleText {
			names = append(names, c.name)
		}
	}
	return names
}

// IsKnown reports whether name is a category the upstream API exposes.
func IsKnown(name string) bool {
	_, ok := byName[name]
	return ok
}

// IsRuleText reports whether name holds rule prose rather than entities.
func IsRuleText(name string) bool {
	c, ok := byName[name]
	return ok && c.ruleText
}

// Description returns the human description for a known category, or a
// generic fallback for categories the table does not know.
func Description(name string) string {
	if c, ok := byName[name]; ok {
		return c.description
	}
	return "Collection of D&D 5e " + name
}
