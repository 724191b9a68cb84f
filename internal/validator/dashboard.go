package validator

import "fmt"

const (
	checkNameSchema    = "dashboard_schema"
	checkNameCardTypes = "card_types"
)

// validCardTypes is the allow-list of built-in Lovelace card types.
// Custom cards ("custom:foo") are not in scope for the allow-list and
// will be flagged, which is the conservative choice for review.
var validCardTypes = map[string]struct{}{
	"alarm-panel":      {},
	"area":             {},
	"button":           {},
	"calendar":         {},
	"conditional":      {},
	"entities":         {},
	"entity":           {},
	"gauge":            {},
	"glance":           {},
	"grid":             {},
	"history-graph":    {},
	"horizontal-stack": {},
	"humidifier":       {},
	"iframe":           {},
	"light":            {},
	"logbook":          {},
	"map":              {},
	"markdown":         {},
	"media-control":    {},
	"picture":          {},
	"picture-elements": {},
	"picture-entity":   {},
	"picture-glance":   {},
	"plant-status":     {},
	"sensor":           {},
	"statistics-graph": {},
	"thermostat":       {},
	"tile":             {},
	"vertical-stack":   {},
	"weather-forecast": {},
}

// requiredCardKeys maps card types to a companion key they cannot work
// without.
var requiredCardKeys = map[string]string{
	"button":           "entity",
	"entity":           "entity",
	"gauge":            "entity",
	"humidifier":       "entity",
	"light":            "entity",
	"media-control":    "entity",
	"picture-entity":   "entity",
	"plant-status":     "entity",
	"sensor":           "entity",
	"thermostat":       "entity",
	"weather-forecast": "entity",
}

// checkDashboardSchema requires a top-level non-empty views list.
// Views without cards are fine; the cards key is optional in Lovelace.
func checkDashboardSchema(tree any) []Issue {
	doc, ok := tree.(map[string]any)
	if !ok {
		return []Issue{schemaError("Dashboard is not a mapping with a 'views' key")}
	}

	views, present := doc["views"]
	if !present {
		return []Issue{schemaError("Dashboard has no 'views' key")}
	}

	list, ok := views.([]any)
	if !ok {
		return []Issue{schemaError("'views' must be a list of views")}
	}
	if len(list) == 0 {
		return []Issue{schemaError("Dashboard has no views")}
	}

	return nil
}

func schemaError(msg string) Issue {
	return Issue{CheckName: checkNameSchema, Severity: SeverityError, Message: msg}
}

// checkCardTypes validates card types across all views, descending into
// stack cards. Unknown types and missing companion keys are warnings.
func checkCardTypes(tree any) []Issue {
	doc, ok := tree.(map[string]any)
	if !ok {
		return nil
	}
	views, ok := doc["views"].([]any)
	if !ok {
		return nil
	}

	var issues []Issue
	for _, v := range views {
		view, ok := v.(map[string]any)
		if !ok {
			continue
		}
		cards, ok := view["cards"].([]any)
		if !ok {
			continue
		}
		issues = append(issues, checkCards(cards)...)
	}
	return issues
}

func checkCards(cards []any) []Issue {
	var issues []Issue
	for _, c := range cards {
		card, ok := c.(map[string]any)
		if !ok {
			continue
		}

		cardType, _ := card["type"].(string)
		if cardType == "" {
			continue
		}

		if _, known := validCardTypes[cardType]; !known {
			issues = append(issues, Issue{
				CheckName: checkNameCardTypes,
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("Unknown card type: %q", cardType),
			})
		} else if key, needs := requiredCardKeys[cardType]; needs {
			if _, has := card[key]; !has {
				issues = append(issues, Issue{
					CheckName: checkNameCardTypes,
					Severity:  SeverityWarning,
					Message:   fmt.Sprintf("Card type %q is missing required key %q", cardType, key),
				})
			}
		}

		if nested, ok := card["cards"].([]any); ok {
			issues = append(issues, checkCards(nested)...)
		}
	}
	return issues
}
