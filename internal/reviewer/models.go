// Package reviewer produces review findings for automation and dashboard
// configurations. Deterministic rule registries run first; an optional
// LLM round-trip contributes additional findings that are deduplicated
// against the deterministic ones.
package reviewer

import "strings"

// FindingSeverity orders findings by how urgently they need attention.
type FindingSeverity string

const (
	SeverityCritical   FindingSeverity = "critical"
	SeverityWarning    FindingSeverity = "warning"
	SeveritySuggestion FindingSeverity = "suggestion"
	SeverityInfo       FindingSeverity = "info"
)

// FindingCategory is the closed set of review categories. Rule functions
// and the LLM response parser both map into this enumeration; anything
// outside it is discarded.
type FindingCategory string

const (
	CategoryTriggerEfficiency      FindingCategory = "trigger_efficiency"
	CategoryMissingGuards          FindingCategory = "missing_guards"
	CategorySecurity               FindingCategory = "security"
	CategoryDeprecatedPatterns     FindingCategory = "deprecated_patterns"
	CategoryErrorResilience        FindingCategory = "error_resilience"
	CategoryUnusedEntities         FindingCategory = "unused_entities"
	CategoryInconsistentCards      FindingCategory = "inconsistent_cards"
	CategoryMissingAreaCoverage    FindingCategory = "missing_area_coverage"
	CategoryCardTypeRecommendation FindingCategory = "card_type_recommendation"
	CategoryLayoutOptimization     FindingCategory = "layout_optimization"
)

var validCategories = map[FindingCategory]struct{}{
	CategoryTriggerEfficiency:      {},
	CategoryMissingGuards:          {},
	CategorySecurity:               {},
	CategoryDeprecatedPatterns:     {},
	CategoryErrorResilience:        {},
	CategoryUnusedEntities:         {},
	CategoryInconsistentCards:      {},
	CategoryMissingAreaCoverage:    {},
	CategoryCardTypeRecommendation: {},
	CategoryLayoutOptimization:     {},
}

var validSeverities = map[FindingSeverity]struct{}{
	SeverityCritical:   {},
	SeverityWarning:    {},
	SeveritySuggestion: {},
	SeverityInfo:       {},
}

// Finding is one review observation. Findings are value objects; two
// findings are the same issue when they share category, automation ID,
// and normalized title (see dedupKey).
type Finding struct {
	Severity        FindingSeverity `json:"severity" yaml:"severity"`
	Category        FindingCategory `json:"category" yaml:"category"`
	AutomationID    string          `json:"automation_id,omitempty" yaml:"automation_id,omitempty"`
	AutomationAlias string          `json:"automation_alias,omitempty" yaml:"automation_alias,omitempty"`
	Title           string          `json:"title" yaml:"title"`
	Description     string          `json:"description" yaml:"description"`
	Suggestion      string          `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// dedupKey identifies a finding for merge purposes. Title comparison is
// normalized so the LLM restating a rule finding with different casing
// or spacing still collides with it.
func (f Finding) dedupKey() string {
	return string(f.Category) + "\x00" + f.AutomationID + "\x00" + normalizeTitle(f.Title)
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
