package reviewer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/haforge/autogen/internal/llm"
)

// fakeBackend returns canned content or an error.
type fakeBackend struct {
	content string
	err     error
}

func (f *fakeBackend) Generate(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{
		Content:          f.content,
		Model:            "test-model",
		PromptTokens:     100,
		CompletionTokens: 50,
	}, nil
}

func (f *fakeBackend) HealthCheck(ctx context.Context) bool { return f.err == nil }

func fencedFindings(t *testing.T, findings []map[string]any) string {
	t.Helper()
	if findings == nil {
		findings = []map[string]any{}
	}
	data, err := json.Marshal(findings)
	if err != nil {
		t.Fatal(err)
	}
	return "```json\n" + string(data) + "\n```"
}

func sampleAutomations() []map[string]any {
	return []map[string]any{
		{
			"id":        "auto_1",
			"alias":     "Motion Light",
			"trigger":   []any{map[string]any{"platform": "state", "entity_id": "binary_sensor.motion"}},
			"condition": []any{map[string]any{"condition": "sun", "after": "sunset"}},
			"action": []any{map[string]any{
				"service": "light.turn_on",
				"target":  map[string]any{"entity_id": "light.hall"},
			}},
		},
		{
			"id":      "auto_2",
			"alias":   "Lock Door at Night",
			"trigger": []any{map[string]any{"platform": "time", "at": "23:00:00"}},
			"action": []any{map[string]any{
				"service": "lock.lock",
				"target":  map[string]any{"entity_id": "lock.front"},
			}},
		},
	}
}

func TestReview_RunsBothRulesAndLLM(t *testing.T) {
	backend := &fakeBackend{content: fencedFindings(t, []map[string]any{
		{
			"severity":         "info",
			"category":         "error_resilience",
			"automation_id":    "auto_1",
			"automation_alias": "Motion Light",
			"title":            "No timeout on action",
			"description":      "Consider adding a timeout.",
		},
	})}
	engine := NewEngine(backend, nil)

	result := engine.ReviewAutomations(context.Background(), sampleAutomations())

	if result.AutomationsReviewed != 2 {
		t.Errorf("AutomationsReviewed = %d, want 2", result.AutomationsReviewed)
	}
	if len(result.Findings) == 0 {
		t.Fatal("expected findings")
	}

	categories := make(map[FindingCategory]bool)
	for _, f := range result.Findings {
		categories[f.Category] = true
	}
	if !categories[CategorySecurity] {
		t.Error("expected security finding from deterministic rules")
	}
	if !categories[CategoryErrorResilience] {
		t.Error("expected error_resilience finding from the model")
	}
	if result.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", result.Model)
	}
}

func TestReview_LLMFailureFallsBackToRules(t *testing.T) {
	backend := &fakeBackend{err: errors.New("LLM offline")}
	engine := NewEngine(backend, nil)

	result := engine.ReviewAutomations(context.Background(), sampleAutomations())

	if len(result.Findings) == 0 {
		t.Error("deterministic findings should survive an LLM failure")
	}
	if result.Model != "" {
		t.Errorf("Model = %q, want empty on failure", result.Model)
	}
}

func TestReview_DeduplicatesFindings(t *testing.T) {
	// The model repeats a finding the rules already produced for auto_2.
	backend := &fakeBackend{content: fencedFindings(t, []map[string]any{
		{
			"severity":         "critical",
			"category":         "security",
			"automation_id":    "auto_2",
			"automation_alias": "Lock Door at Night",
			"title":            "Sensitive domain without adequate guards: lock",
			"description":      "Lock without conditions",
		},
	})}
	engine := NewEngine(backend, nil)

	result := engine.ReviewAutomations(context.Background(), sampleAutomations())

	count := 0
	for _, f := range result.Findings {
		if f.Category == CategorySecurity && f.AutomationID == "auto_2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 security finding for auto_2, got %d", count)
	}
}

func TestReview_SummaryFormat(t *testing.T) {
	backend := &fakeBackend{content: fencedFindings(t, nil)}
	engine := NewEngine(backend, nil)

	result := engine.ReviewAutomations(context.Background(), sampleAutomations())

	if !strings.Contains(result.Summary, "2 automation(s)") {
		t.Errorf("summary should mention the count: %q", result.Summary)
	}
	if !strings.Contains(result.Summary, "issue(s)") && !strings.Contains(strings.ToLower(result.Summary), "no issues") {
		t.Errorf("summary should mention issues: %q", result.Summary)
	}
}

func TestReview_CleanAutomationNoFindings(t *testing.T) {
	cleanAutos := []map[string]any{
		{
			"id":        "clean_1",
			"alias":     "Clean Automation",
			"trigger":   []any{map[string]any{"platform": "state", "entity_id": "binary_sensor.door"}},
			"condition": []any{map[string]any{"condition": "time", "after": "08:00", "before": "22:00"}},
			"action": []any{map[string]any{
				"service": "light.turn_on",
				"target":  map[string]any{"entity_id": "light.hall"},
			}},
		},
	}
	backend := &fakeBackend{content: fencedFindings(t, nil)}
	engine := NewEngine(backend, nil)

	result := engine.ReviewAutomations(context.Background(), cleanAutos)

	if len(result.Findings) != 0 {
		t.Errorf("expected no findings, got %d: %v", len(result.Findings), result.Findings)
	}
	if !strings.Contains(strings.ToLower(result.Summary), "no issues") {
		t.Errorf("summary should say no issues: %q", result.Summary)
	}
}

func TestReview_NilBackendIsRuleOnly(t *testing.T) {
	engine := NewEngine(nil, nil)

	result := engine.ReviewAutomations(context.Background(), sampleAutomations())

	if len(result.Findings) == 0 {
		t.Error("expected deterministic findings with nil backend")
	}
	if result.Model != "" {
		t.Errorf("Model = %q, want empty for rule-only review", result.Model)
	}
}

func TestReview_TimePatternLockEndToEnd(t *testing.T) {
	auto := []map[string]any{
		{
			"id":      "poll_lock",
			"alias":   "Poll and Lock",
			"trigger": []any{map[string]any{"platform": "time_pattern", "seconds": "/5"}},
			"action": []any{map[string]any{
				"service": "homeassistant.turn_on",
				"target":  map[string]any{"entity_id": "lock.front_door"},
			}},
		},
	}
	engine := NewEngine(nil, nil)
	result := engine.ReviewAutomations(context.Background(), auto)

	categories := make(map[FindingCategory]FindingSeverity)
	for _, f := range result.Findings {
		categories[f.Category] = f.Severity
	}
	if _, ok := categories[CategoryTriggerEfficiency]; !ok {
		t.Error("expected trigger_efficiency finding")
	}
	if _, ok := categories[CategoryMissingGuards]; !ok {
		t.Error("expected missing_guards finding")
	}
	if sev, ok := categories[CategorySecurity]; !ok || sev != SeverityCritical {
		t.Errorf("expected critical security finding, got %v (present=%v)", sev, ok)
	}
	if _, ok := categories[CategoryDeprecatedPatterns]; !ok {
		t.Error("expected deprecated_patterns finding")
	}
}

func TestFormatFindings(t *testing.T) {
	if got := FormatFindings(nil); got != "No findings." {
		t.Errorf("FormatFindings(nil) = %q", got)
	}

	findings := []Finding{{
		Severity:        SeverityCritical,
		Category:        CategorySecurity,
		AutomationID:    "auto_2",
		AutomationAlias: "Lock Door",
		Title:           "Sensitive domain without adequate guards: lock",
		Suggestion:      "Add presence conditions.",
	}}
	out := FormatFindings(findings)
	for _, want := range []string{"CRITICAL", "security", "Lock Door", "auto_2", "Add presence conditions."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
