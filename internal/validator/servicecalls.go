package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/haforge/autogen/internal/extract"
	"github.com/haforge/autogen/internal/fuzzy"
)

const checkNameServiceCalls = "service_calls"

// knownServiceDomains are the Home Assistant domains that expose
// services. Entity domains without services (binary_sensor, sun, ...)
// are deliberately absent: a service call into them is a mistake.
var knownServiceDomains = []string{
	"alarm_control_panel",
	"automation",
	"button",
	"camera",
	"climate",
	"counter",
	"cover",
	"fan",
	"homeassistant",
	"humidifier",
	"input_boolean",
	"input_datetime",
	"input_number",
	"input_select",
	"input_text",
	"light",
	"lock",
	"media_player",
	"notify",
	"number",
	"persistent_notification",
	"remote",
	"scene",
	"script",
	"select",
	"siren",
	"switch",
	"timer",
	"vacuum",
	"water_heater",
}

// checkServiceCalls validates every domain.service string in the tree.
// Malformed calls (no domain separator) and unknown domains are warnings;
// the suggestion is always populated so the caller has something to show.
func checkServiceCalls(tree any) []Issue {
	services := extract.Services(tree)

	sorted := make([]string, 0, len(services))
	for s := range services {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	var issues []Issue
	for _, svc := range sorted {
		domain, _, found := strings.Cut(svc, ".")
		if !found || domain == "" {
			issues = append(issues, Issue{
				CheckName:  checkNameServiceCalls,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("Malformed service call: %q (expected domain.service)", svc),
				Suggestion: "Use the full service name, e.g. light.turn_on",
			})
			continue
		}

		if isKnownServiceDomain(domain) {
			continue
		}

		issue := Issue{
			CheckName: checkNameServiceCalls,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Unknown service domain %q in %s", domain, svc),
		}
		if match, ok := fuzzy.ClosestMatch(domain, knownServiceDomains); ok {
			issue.Suggestion = fmt.Sprintf("Did you mean %s.%s?", match, svc[len(domain)+1:])
		} else {
			issue.Suggestion = "Known domains include light, switch, sensor, climate, notify"
		}
		issues = append(issues, issue)
	}
	return issues
}

func isKnownServiceDomain(domain string) bool {
	for _, d := range knownServiceDomains {
		if d == domain {
			return true
		}
	}
	return false
}
