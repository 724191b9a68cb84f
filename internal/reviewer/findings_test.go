package reviewer

import "testing"

func TestParseLLMFindings_FencedBlock(t *testing.T) {
	content := "Here is my review.\n\n```json\n" +
		`[{"severity": "warning", "category": "error_resilience", "automation_id": "auto_1", "title": "No fallback", "description": "d"}]` +
		"\n```\n\nLet me know if you need more detail."

	findings := parseLLMFindings(content)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Severity != SeverityWarning || f.Category != CategoryErrorResilience {
		t.Errorf("unexpected finding: %+v", f)
	}
	if f.AutomationID != "auto_1" || f.Title != "No fallback" {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestParseLLMFindings_BareJSON(t *testing.T) {
	content := `[{"severity": "info", "category": "security", "title": "Check token scope"}]`
	findings := parseLLMFindings(content)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
}

func TestParseLLMFindings_EmptyArray(t *testing.T) {
	findings := parseLLMFindings("```json\n[]\n```")
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %d", len(findings))
	}
}

func TestParseLLMFindings_Garbage(t *testing.T) {
	for _, content := range []string{
		"",
		"The automations look fine to me!",
		"```json\nnot json at all\n```",
		"```json\n{\"not\": \"an array\"}\n```",
	} {
		if findings := parseLLMFindings(content); len(findings) != 0 {
			t.Errorf("parseLLMFindings(%q) = %d findings, want 0", content, len(findings))
		}
	}
}

func TestParseLLMFindings_DropsInvalidRecords(t *testing.T) {
	content := "```json\n" + `[
		{"severity": "warning", "category": "made_up_category", "title": "Dropped"},
		{"severity": "warning", "category": "security", "title": ""},
		{"severity": "unheard-of", "category": "security", "title": "Kept with info severity"}
	]` + "\n```"

	findings := parseLLMFindings(content)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Severity != SeverityInfo {
		t.Errorf("unknown severity should default to info, got %s", findings[0].Severity)
	}
	if findings[0].Title != "Kept with info severity" {
		t.Errorf("wrong record survived: %+v", findings[0])
	}
}

func TestParseLLMFindings_SkipsNonFindingBlocks(t *testing.T) {
	content := "First some YAML:\n\n```yaml\nalias: test\n```\n\nThen findings:\n\n```json\n" +
		`[{"severity": "suggestion", "category": "missing_guards", "title": "Add a guard"}]` +
		"\n```"

	findings := parseLLMFindings(content)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Title != "Add a guard" {
		t.Errorf("unexpected finding: %+v", findings[0])
	}
}

func TestDedupKey_NormalizesTitle(t *testing.T) {
	a := Finding{Category: CategorySecurity, AutomationID: "auto_2", Title: "Sensitive domain without adequate guards: lock"}
	b := Finding{Category: CategorySecurity, AutomationID: "auto_2", Title: "  Sensitive   Domain WITHOUT adequate guards: LOCK "}
	if a.dedupKey() != b.dedupKey() {
		t.Error("titles differing only in case and spacing should collide")
	}

	c := Finding{Category: CategorySecurity, AutomationID: "auto_3", Title: a.Title}
	if a.dedupKey() == c.dedupKey() {
		t.Error("different automation IDs must not collide")
	}
}

func TestMergeFindings(t *testing.T) {
	existing := []Finding{
		{Category: CategorySecurity, AutomationID: "auto_2", Title: "Sensitive domain without adequate guards: lock", Severity: SeverityCritical},
	}
	incoming := []Finding{
		{Category: CategorySecurity, AutomationID: "auto_2", Title: "sensitive domain without adequate guards: lock", Severity: SeverityWarning},
		{Category: CategoryErrorResilience, AutomationID: "auto_1", Title: "No timeout", Severity: SeverityInfo},
	}

	merged := mergeFindings(existing, incoming)
	if len(merged) != 2 {
		t.Fatalf("expected 2 findings after merge, got %d", len(merged))
	}
	// The deterministic finding wins the collision.
	if merged[0].Severity != SeverityCritical {
		t.Errorf("existing finding should be kept, got %+v", merged[0])
	}
	if merged[1].Category != CategoryErrorResilience {
		t.Errorf("novel finding should be appended, got %+v", merged[1])
	}
}
