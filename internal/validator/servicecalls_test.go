package validator

import (
	"fmt"
	"strings"
	"testing"
)

func TestCheckServiceCallsValid(t *testing.T) {
	parsed := map[string]any{
		"action": []any{
			map[string]any{"service": "light.turn_on", "target": map[string]any{"entity_id": "light.kitchen"}},
			map[string]any{"service": "switch.turn_off", "target": map[string]any{"entity_id": "switch.fan"}},
		},
	}
	if issues := checkServiceCalls(parsed); len(issues) != 0 {
		t.Errorf("got %d issues, want 0: %v", len(issues), issues)
	}
}

func TestCheckServiceCallsUnknownDomain(t *testing.T) {
	parsed := map[string]any{
		"action": []any{map[string]any{"service": "foobar.do_thing"}},
	}
	issues := checkServiceCalls(parsed)
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].CheckName != "service_calls" {
		t.Errorf("check name = %s", issues[0].CheckName)
	}
	if issues[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", issues[0].Severity)
	}
	if !strings.Contains(issues[0].Message, "foobar") {
		t.Errorf("message %q should name the domain", issues[0].Message)
	}
	if issues[0].Suggestion == "" {
		t.Error("suggestion should always be populated for unknown domains")
	}
}

func TestCheckServiceCallsMalformed(t *testing.T) {
	parsed := map[string]any{
		"action": []any{map[string]any{"service": "turn_on"}},
	}
	issues := checkServiceCalls(parsed)
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if !strings.Contains(issues[0].Message, "Malformed") {
		t.Errorf("message %q should say Malformed", issues[0].Message)
	}
}

func TestCheckServiceCallsMixed(t *testing.T) {
	parsed := map[string]any{
		"action": []any{
			map[string]any{"service": "light.turn_on"},
			map[string]any{"service": "badformat"},
			map[string]any{"service": "unknown_domain.something"},
			map[string]any{"service": "climate.set_temperature"},
		},
	}
	issues := checkServiceCalls(parsed)
	if len(issues) != 2 {
		t.Errorf("got %d issues, want 2 (malformed + unknown domain): %v", len(issues), issues)
	}
}

func TestCheckServiceCallsNested(t *testing.T) {
	parsed := map[string]any{
		"action": []any{
			map[string]any{
				"choose": []any{
					map[string]any{
						"sequence": []any{
							map[string]any{"service": "light.turn_on"},
							map[string]any{"service": "notify.mobile_app"},
						},
					},
				},
			},
		},
	}
	if issues := checkServiceCalls(parsed); len(issues) != 0 {
		t.Errorf("got %d issues, want 0: %v", len(issues), issues)
	}
}

func TestCheckServiceCallsNone(t *testing.T) {
	parsed := map[string]any{
		"alias":   "Test",
		"trigger": map[string]any{"platform": "time", "at": "07:00:00"},
	}
	if issues := checkServiceCalls(parsed); len(issues) != 0 {
		t.Errorf("got %d issues, want 0: %v", len(issues), issues)
	}
}

func TestCheckServiceCallsCommonDomains(t *testing.T) {
	domains := []string{
		"light", "switch", "automation", "climate", "cover",
		"media_player", "notify", "script", "scene", "vacuum",
		"lock", "fan", "camera", "input_boolean", "input_number",
	}
	for _, domain := range domains {
		parsed := map[string]any{
			"action": []any{map[string]any{"service": fmt.Sprintf("%s.test_action", domain)}},
		}
		if issues := checkServiceCalls(parsed); len(issues) != 0 {
			t.Errorf("domain %q should be recognized: %v", domain, issues)
		}
	}
}
