package reviewer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haforge/autogen/internal/extract"
)

// DashboardContext is the caller-supplied registry snapshot the
// dashboard rules check against. Either field may be empty; rules that
// need missing context find nothing.
type DashboardContext struct {
	// KnownEntities is the full set of entity identifiers.
	KnownEntities map[string]struct{}
	// AreaNames maps area IDs to display names.
	AreaNames map[string]string
}

// DashboardRule is a pure check over one dashboard tree.
type DashboardRule func(dashboard map[string]any, ctx DashboardContext) []Finding

// dashboardRules is the ordered registry; declaration order is finding
// order.
var dashboardRules = []DashboardRule{
	checkUnusedEntities,
	checkInconsistentCards,
	checkMissingAreaCoverage,
	checkCardTypeRecommendations,
	checkLayoutOptimization,
}

// RunDashboardRules runs every registered dashboard rule.
func RunDashboardRules(dashboard map[string]any, ctx DashboardContext) []Finding {
	var findings []Finding
	for _, rule := range dashboardRules {
		findings = append(findings, rule(dashboard, ctx)...)
	}
	return findings
}

// maxCardsPerView is the threshold beyond which an ungrouped view is
// flagged by the layout rule.
const maxCardsPerView = 8

// nonDisplayableDomains never belong on a dashboard, so their absence is
// not "unused".
var nonDisplayableDomains = map[string]struct{}{
	"automation":              {},
	"scene":                   {},
	"script":                  {},
	"sun":                     {},
	"zone":                    {},
	"persistent_notification": {},
}

// cardRecommendations maps entity domains to the dedicated card type
// that renders them better than a generic entities row.
var cardRecommendations = map[string]string{
	"sensor":       "gauge",
	"climate":      "thermostat",
	"light":        "light",
	"media_player": "media-control",
	"camera":       "picture-entity",
}

// checkUnusedEntities reports known displayable entities that no card
// references, as a single aggregated finding.
func checkUnusedEntities(dashboard map[string]any, ctx DashboardContext) []Finding {
	if len(ctx.KnownEntities) == 0 {
		return nil
	}

	referenced := extract.EntityIDs(dashboard)
	var unused []string
	for id := range ctx.KnownEntities {
		if _, shown := referenced[id]; shown {
			continue
		}
		if _, skip := nonDisplayableDomains[extract.Domain(id)]; skip {
			continue
		}
		unused = append(unused, id)
	}
	if len(unused) == 0 {
		return nil
	}
	sort.Strings(unused)

	return []Finding{{
		Severity:    SeverityInfo,
		Category:    CategoryUnusedEntities,
		Title:       fmt.Sprintf("%d entities not shown on the dashboard", len(unused)),
		Description: "Not referenced by any card: " + strings.Join(unused, ", "),
		Suggestion:  "Add cards for these entities or hide them in the registry if they are not interesting.",
	}}
}

// checkInconsistentCards flags entity domains rendered by more than one
// card type across the dashboard.
func checkInconsistentCards(dashboard map[string]any, _ DashboardContext) []Finding {
	domainCards := make(map[string]map[string]struct{})
	forEachCard(dashboard, func(card map[string]any, cardType string) {
		for id := range cardEntityIDs(card) {
			domain := extract.Domain(id)
			if domain == "" {
				continue
			}
			if domainCards[domain] == nil {
				domainCards[domain] = make(map[string]struct{})
			}
			domainCards[domain][cardType] = struct{}{}
		}
	})

	domains := make([]string, 0, len(domainCards))
	for d, types := range domainCards {
		if len(types) > 1 {
			domains = append(domains, d)
		}
	}
	sort.Strings(domains)

	var findings []Finding
	for _, domain := range domains {
		types := make([]string, 0, len(domainCards[domain]))
		for t := range domainCards[domain] {
			types = append(types, t)
		}
		sort.Strings(types)
		findings = append(findings, Finding{
			Severity:    SeverityWarning,
			Category:    CategoryInconsistentCards,
			Title:       fmt.Sprintf("Inconsistent card types for %s entities", domain),
			Description: fmt.Sprintf("%s entities appear on %s cards. Pick one presentation per domain.", domain, strings.Join(types, " and ")),
		})
	}
	return findings
}

// checkMissingAreaCoverage flags areas with no corresponding view,
// matched by case-insensitive name substring against view titles.
func checkMissingAreaCoverage(dashboard map[string]any, ctx DashboardContext) []Finding {
	if len(ctx.AreaNames) == 0 {
		return nil
	}

	var titles []string
	for _, v := range dashboardViews(dashboard) {
		if title, ok := v["title"].(string); ok {
			titles = append(titles, strings.ToLower(title))
		}
	}

	names := make([]string, 0, len(ctx.AreaNames))
	for _, name := range ctx.AreaNames {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []Finding
	for _, name := range names {
		covered := false
		for _, title := range titles {
			if strings.Contains(title, strings.ToLower(name)) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		findings = append(findings, Finding{
			Severity:    SeveritySuggestion,
			Category:    CategoryMissingAreaCoverage,
			Title:       fmt.Sprintf("No dashboard view for area: %s", name),
			Description: fmt.Sprintf("No view title mentions %q. Entities in that area have no obvious home.", name),
			Suggestion:  fmt.Sprintf("Add a %q view.", name),
		})
	}
	return findings
}

// checkCardTypeRecommendations suggests dedicated cards for entities
// parked on generic entities cards.
func checkCardTypeRecommendations(dashboard map[string]any, _ DashboardContext) []Finding {
	seen := make(map[string]struct{})
	var entities []string
	forEachCard(dashboard, func(card map[string]any, cardType string) {
		if cardType != "entities" {
			return
		}
		for id := range cardEntityIDs(card) {
			if _, dup := seen[id]; dup {
				continue
			}
			if _, ok := cardRecommendations[extract.Domain(id)]; ok {
				seen[id] = struct{}{}
				entities = append(entities, id)
			}
		}
	})
	sort.Strings(entities)

	var findings []Finding
	for _, id := range entities {
		recommended := cardRecommendations[extract.Domain(id)]
		findings = append(findings, Finding{
			Severity:    SeveritySuggestion,
			Category:    CategoryCardTypeRecommendation,
			Title:       fmt.Sprintf("Consider a %s card for %s", recommended, id),
			Description: fmt.Sprintf("%s sits on a generic entities card; a %s card would render it better.", id, recommended),
		})
	}
	return findings
}

// checkLayoutOptimization flags views with too many ungrouped cards.
// A single stack card is taken as evidence the view is being organized.
func checkLayoutOptimization(dashboard map[string]any, _ DashboardContext) []Finding {
	var findings []Finding
	for _, view := range dashboardViews(dashboard) {
		cards, ok := view["cards"].([]any)
		if !ok || len(cards) <= maxCardsPerView {
			continue
		}

		grouped := false
		for _, c := range cards {
			card, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := card["type"].(string); strings.HasSuffix(t, "-stack") || t == "grid" {
				grouped = true
				break
			}
		}
		if grouped {
			continue
		}

		title, _ := view["title"].(string)
		findings = append(findings, Finding{
			Severity:    SeveritySuggestion,
			Category:    CategoryLayoutOptimization,
			Title:       fmt.Sprintf("View %q has %d ungrouped cards", title, len(cards)),
			Description: "Long flat card lists are hard to scan. Group related cards under horizontal-stack, vertical-stack, or grid cards.",
		})
	}
	return findings
}

// dashboardViews returns the views list, tolerating any malformed shape.
func dashboardViews(dashboard map[string]any) []map[string]any {
	raw, ok := dashboard["views"].([]any)
	if !ok {
		return nil
	}
	views := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if view, ok := v.(map[string]any); ok {
			views = append(views, view)
		}
	}
	return views
}

// forEachCard visits every card in every view, including cards nested
// under stacks, with its card type.
func forEachCard(dashboard map[string]any, fn func(card map[string]any, cardType string)) {
	var walk func(cards []any)
	walk = func(cards []any) {
		for _, c := range cards {
			card, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if cardType, _ := card["type"].(string); cardType != "" {
				fn(card, cardType)
			}
			if nested, ok := card["cards"].([]any); ok {
				walk(nested)
			}
		}
	}
	for _, view := range dashboardViews(dashboard) {
		if cards, ok := view["cards"].([]any); ok {
			walk(cards)
		}
	}
}

// cardEntityIDs extracts the entities a single card displays, without
// descending into nested cards (those attribute to their own type).
func cardEntityIDs(card map[string]any) map[string]struct{} {
	shallow := make(map[string]any, len(card))
	for k, v := range card {
		if k == "cards" {
			continue
		}
		shallow[k] = v
	}
	return extract.EntityIDs(shallow)
}
