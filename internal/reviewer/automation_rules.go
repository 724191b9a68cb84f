package reviewer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/haforge/autogen/internal/extract"
)

// AutomationRule is a pure check over one automation tree. Rules never
// fail on malformed input; they simply return no findings.
type AutomationRule func(automation map[string]any) []Finding

// automationRules is the ordered registry. Declaration order is the
// finding order, which keeps review output deterministic.
var automationRules = []AutomationRule{
	checkTriggerEfficiency,
	checkMissingGuards,
	checkSecurityConcerns,
	checkDeprecatedPatterns,
}

// RunAutomationRules runs every registered rule over the automation.
func RunAutomationRules(automation map[string]any) []Finding {
	var findings []Finding
	for _, rule := range automationRules {
		findings = append(findings, rule(automation)...)
	}
	return findings
}

// sensitiveDomains are domains whose actuation has physical-security
// consequences. cover is included because garage doors and gates are
// modeled as covers.
var sensitiveDomains = map[string]struct{}{
	"lock":                {},
	"alarm_control_panel": {},
	"cover":               {},
}

// checkTriggerEfficiency flags time_pattern triggers firing on a
// sub-minute cadence. "/5" in the seconds field means every 5 seconds,
// which is polling, not automation.
func checkTriggerEfficiency(automation map[string]any) []Finding {
	var findings []Finding
	for _, t := range listSection(automation, "trigger") {
		trigger, ok := t.(map[string]any)
		if !ok {
			continue
		}
		platform, _ := trigger["platform"].(string)
		if platform != "time_pattern" {
			continue
		}
		seconds, ok := trigger["seconds"].(string)
		if !ok || !strings.HasPrefix(seconds, "/") {
			continue
		}
		divisor, err := strconv.Atoi(seconds[1:])
		if err != nil || divisor <= 0 || divisor >= 60 {
			continue
		}
		findings = append(findings, Finding{
			Severity:        SeverityWarning,
			Category:        CategoryTriggerEfficiency,
			AutomationID:    automationID(automation),
			AutomationAlias: automationAlias(automation),
			Title:           "Inefficient time_pattern trigger",
			Description: fmt.Sprintf(
				"Trigger fires every %d seconds, which polls continuously instead of reacting to changes.",
				divisor),
			Suggestion: "Use a state or numeric_state trigger on the entities you are watching.",
		})
	}
	return findings
}

// checkMissingGuards flags automations that act on every trigger with no
// conditions at all. Not necessarily wrong, hence suggestion severity.
func checkMissingGuards(automation map[string]any) []Finding {
	triggers := listSection(automation, "trigger")
	actions := listSection(automation, "action")
	conditions := listSection(automation, "condition")

	if len(triggers) == 0 || len(actions) == 0 || len(conditions) > 0 {
		return nil
	}

	return []Finding{{
		Severity:        SeveritySuggestion,
		Category:        CategoryMissingGuards,
		AutomationID:    automationID(automation),
		AutomationAlias: automationAlias(automation),
		Title:           "Automation has no conditions",
		Description:     "Every trigger firing runs the actions unconditionally. Consider whether a time, presence, or state guard is appropriate.",
		Suggestion:      "Add a condition block if the actions should not always run.",
	}}
}

// checkSecurityConcerns flags actions that touch sensitive domains.
// No conditions at all is critical; conditions that do not obviously
// constrain access (presence, zone) downgrade to warning.
func checkSecurityConcerns(automation map[string]any) []Finding {
	actions := automation["action"]
	touched := make(map[string]struct{})

	for svc := range extract.Services(actions) {
		if d := extract.Domain(svc); d != "" {
			if _, sensitive := sensitiveDomains[d]; sensitive {
				touched[d] = struct{}{}
			}
		}
	}
	for id := range extract.EntityIDs(actions) {
		if d := extract.Domain(id); d != "" {
			if _, sensitive := sensitiveDomains[d]; sensitive {
				touched[d] = struct{}{}
			}
		}
	}
	if len(touched) == 0 {
		return nil
	}

	conditions := listSection(automation, "condition")
	if hasAccessGuard(conditions) {
		return nil
	}

	domains := make([]string, 0, len(touched))
	for d := range touched {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var findings []Finding
	for _, domain := range domains {
		f := Finding{
			Category:        CategorySecurity,
			AutomationID:    automationID(automation),
			AutomationAlias: automationAlias(automation),
		}
		if len(conditions) == 0 {
			f.Severity = SeverityCritical
			f.Title = fmt.Sprintf("Sensitive domain without adequate guards: %s", domain)
			f.Description = fmt.Sprintf(
				"This automation controls %s entities with no conditions. Anything that fires the trigger actuates them.",
				domain)
			f.Suggestion = "Add presence or zone conditions so the action only runs for authorized situations."
		} else {
			f.Severity = SeverityWarning
			f.Title = fmt.Sprintf("Sensitive domain with weak guards: %s", domain)
			f.Description = fmt.Sprintf(
				"This automation controls %s entities, but none of its conditions obviously constrains who or where.",
				domain)
			f.Suggestion = "Consider a person, device_tracker, or zone condition."
		}
		findings = append(findings, f)
	}
	return findings
}

// hasAccessGuard reports whether any condition plausibly constrains
// access: a zone condition, or a state condition on a person or
// device_tracker entity.
func hasAccessGuard(conditions []any) bool {
	for _, c := range conditions {
		cond, ok := c.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := cond["condition"].(string)
		switch kind {
		case "zone":
			return true
		case "state":
			for id := range extract.EntityIDs(cond) {
				switch extract.Domain(id) {
				case "person", "device_tracker":
					return true
				}
			}
		}
	}
	return false
}

// genericServices maps the platform-level homeassistant.* services to
// the verb used to build the domain-specific replacement.
var genericServices = map[string]string{
	"homeassistant.turn_on":  "turn_on",
	"homeassistant.turn_off": "turn_off",
	"homeassistant.toggle":   "toggle",
}

// checkDeprecatedPatterns flags generic homeassistant.* service calls
// and names the domain-specific replacement for the targeted entity.
func checkDeprecatedPatterns(automation map[string]any) []Finding {
	var findings []Finding
	walkServiceSteps(automation["action"], func(step map[string]any) {
		service, _ := step["service"].(string)
		verb, generic := genericServices[service]
		if !generic {
			return
		}

		replacement := "the domain-specific service (for example light." + verb + ")"
		targets := make([]string, 0, 4)
		for id := range extract.EntityIDs(step) {
			targets = append(targets, id)
		}
		sort.Strings(targets)
		if len(targets) > 0 {
			if d := extract.Domain(targets[0]); d != "" {
				replacement = d + "." + verb
			}
		}

		findings = append(findings, Finding{
			Severity:        SeverityWarning,
			Category:        CategoryDeprecatedPatterns,
			AutomationID:    automationID(automation),
			AutomationAlias: automationAlias(automation),
			Title:           fmt.Sprintf("Generic service call: %s", service),
			Description: fmt.Sprintf(
				"%s dispatches through the platform instead of the entity's own domain. Use %s.",
				service, replacement),
			Suggestion: fmt.Sprintf("Replace %s with %s.", service, replacement),
		})
	})
	return findings
}

// walkServiceSteps applies fn to every mapping carrying a service key,
// descending through choose/sequence and any other nesting.
func walkServiceSteps(node any, fn func(step map[string]any)) {
	switch v := node.(type) {
	case map[string]any:
		if _, ok := v["service"]; ok {
			fn(v)
		}
		for _, value := range v {
			walkServiceSteps(value, fn)
		}
	case []any:
		for _, item := range v {
			walkServiceSteps(item, fn)
		}
	}
}

// listSection returns the named top-level section as a list. Home
// Assistant accepts both a single mapping and a list of mappings.
func listSection(automation map[string]any, key string) []any {
	switch v := automation[key].(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	default:
		return nil
	}
}

func automationID(automation map[string]any) string {
	id, _ := automation["id"].(string)
	return id
}

func automationAlias(automation map[string]any) string {
	alias, _ := automation["alias"].(string)
	return alias
}
