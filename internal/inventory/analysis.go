// Package inventory correlates entity, area, and automation snapshots
// to compute automation coverage and to surface un-automated
// opportunity patterns per area.
package inventory

import (
	"sort"

	"github.com/haforge/autogen/internal/extract"
	"github.com/haforge/autogen/internal/homeassistant"
)

// Pattern describes an automation opportunity detected in one area:
// trigger-capable and target-capable entities that are present but not
// yet linked by any automation.
type Pattern struct {
	Title           string
	AreaID          string
	AreaName        string
	TriggerEntities []string
	TargetEntities  []string
}

// AreaProfile summarizes one area's active entities and how many
// unexploited patterns were found there.
type AreaProfile struct {
	AreaID        string
	AreaName      string
	EntityCount   int
	Domains       map[string][]string
	Opportunities int
}

// Analysis is the full inventory report. It is constructed fresh per
// call and never persisted.
type Analysis struct {
	TotalEntities        int
	TotalAreas           int
	TotalAutomations     int
	AutomatedEntityIDs   map[string]struct{}
	UnautomatedEntityIDs map[string]struct{}
	AreaProfiles         []AreaProfile
	MatchedPatterns      []Pattern
	CoveragePercent      float64
}

// Analyze computes the inventory report. Disabled and hidden entities
// are excluded from every count, set, and pattern computation.
func Analyze(entities []homeassistant.EntityRegistryEntry, areas []homeassistant.Area, automations []map[string]any) *Analysis {
	active := make([]homeassistant.EntityRegistryEntry, 0, len(entities))
	for _, e := range entities {
		if e.IsActive() {
			active = append(active, e)
		}
	}

	automated := extract.FromAutomations(automations)

	analysis := &Analysis{
		TotalEntities:        len(active),
		TotalAreas:           len(areas),
		TotalAutomations:     len(automations),
		AutomatedEntityIDs:   make(map[string]struct{}),
		UnautomatedEntityIDs: make(map[string]struct{}),
		AreaProfiles:         []AreaProfile{},
		MatchedPatterns:      []Pattern{},
	}

	for _, e := range active {
		if _, ok := automated[e.EntityID]; ok {
			analysis.AutomatedEntityIDs[e.EntityID] = struct{}{}
		} else {
			analysis.UnautomatedEntityIDs[e.EntityID] = struct{}{}
		}
	}

	if len(active) > 0 {
		analysis.CoveragePercent = 100 * float64(len(analysis.AutomatedEntityIDs)) / float64(len(active))
	}

	// Group active entities by area, then by domain within each area.
	byArea := make(map[string][]homeassistant.EntityRegistryEntry)
	for _, e := range active {
		if e.AreaID != "" {
			byArea[e.AreaID] = append(byArea[e.AreaID], e)
		}
	}

	for _, area := range areas {
		areaEntities := byArea[area.AreaID]
		if len(areaEntities) == 0 {
			continue
		}

		domains := make(map[string][]string)
		for _, e := range areaEntities {
			d := homeassistant.Domain(e.EntityID)
			if d == "" {
				continue
			}
			domains[d] = append(domains[d], e.EntityID)
		}

		patterns := matchPatterns(area, domains, automated)
		analysis.MatchedPatterns = append(analysis.MatchedPatterns, patterns...)

		analysis.AreaProfiles = append(analysis.AreaProfiles, AreaProfile{
			AreaID:        area.AreaID,
			AreaName:      area.Name,
			EntityCount:   len(areaEntities),
			Domains:       domains,
			Opportunities: len(patterns),
		})
	}

	// Rank areas by opportunity count. Stable sort keeps input order
	// for ties.
	sort.SliceStable(analysis.AreaProfiles, func(i, j int) bool {
		return analysis.AreaProfiles[i].Opportunities > analysis.AreaProfiles[j].Opportunities
	})

	return analysis
}

// matchPatterns applies the domain-pair table to one area. A pattern
// is emitted when both domains are present and at least one entity on
// either side is not yet automated. If every entity in the pair is
// already automated, the opportunity is considered taken.
func matchPatterns(area homeassistant.Area, domains map[string][]string, automated map[string]struct{}) []Pattern {
	var patterns []Pattern

	for _, rule := range patternRules {
		triggers := domains[rule.TriggerDomain]
		targets := domains[rule.TargetDomain]
		if len(triggers) == 0 || len(targets) == 0 {
			continue
		}

		allAutomated := true
		for _, id := range triggers {
			if _, ok := automated[id]; !ok {
				allAutomated = false
				break
			}
		}
		if allAutomated {
			for _, id := range targets {
				if _, ok := automated[id]; !ok {
					allAutomated = false
					break
				}
			}
		}
		if allAutomated {
			continue
		}

		patterns = append(patterns, Pattern{
			Title:           rule.Title,
			AreaID:          area.AreaID,
			AreaName:        area.Name,
			TriggerEntities: append([]string(nil), triggers...),
			TargetEntities:  append([]string(nil), targets...),
		})
	}

	return patterns
}
