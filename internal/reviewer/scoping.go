package reviewer

import (
	"strconv"
	"strings"

	"github.com/haforge/autogen/internal/extract"
)

// Scoping helpers narrow automation and dashboard collections to one
// area or view, so a review or regeneration can target a slice of the
// home instead of the whole configuration.

// FilterAutomationsByArea keeps automations that reference at least one
// entity assigned to areaID. entityAreaMap maps entity IDs to area IDs.
func FilterAutomationsByArea(automations []map[string]any, areaID string, entityAreaMap map[string]string) []map[string]any {
	var matched []map[string]any
	for _, automation := range automations {
		for id := range extract.EntityIDs(automation) {
			if entityAreaMap[id] == areaID {
				matched = append(matched, automation)
				break
			}
		}
	}
	return matched
}

// FilterDashboardViewsByArea keeps views whose title contains the area
// name (case-insensitive) or whose cards reference an entity in the
// area. The result is a dashboard-shaped map with only the matching
// views.
func FilterDashboardViewsByArea(dashboard map[string]any, areaID string, entityAreaMap map[string]string, areaNames map[string]string) map[string]any {
	areaName := strings.ToLower(areaNames[areaID])

	var matched []any
	for _, view := range dashboardViews(dashboard) {
		title, _ := view["title"].(string)
		if areaName != "" && strings.Contains(strings.ToLower(title), areaName) {
			matched = append(matched, view)
			continue
		}

		for id := range extract.EntityIDs(view) {
			if entityAreaMap[id] == areaID {
				matched = append(matched, view)
				break
			}
		}
	}

	if matched == nil {
		matched = []any{}
	}
	return map[string]any{"views": matched}
}

// FilterDashboardViewByPath selects a single view by its path key. When
// no path matches, "view-N" falls back to the view at index N. Anything
// else yields an empty views list.
func FilterDashboardViewByPath(dashboard map[string]any, path string) map[string]any {
	views := dashboardViews(dashboard)

	for _, view := range views {
		if p, _ := view["path"].(string); p == path {
			return map[string]any{"views": []any{view}}
		}
	}

	if idx, ok := strings.CutPrefix(path, "view-"); ok {
		if n, err := strconv.Atoi(idx); err == nil && n >= 0 && n < len(views) {
			return map[string]any{"views": []any{views[n]}}
		}
	}

	return map[string]any{"views": []any{}}
}
