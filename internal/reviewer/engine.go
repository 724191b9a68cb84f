package reviewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haforge/autogen/internal/llm"
)

// reviewSystemPrompt instructs the model to return findings in the wire
// shape parseLLMFindings understands.
const reviewSystemPrompt = `You are reviewing Home Assistant automation configurations.
Look for problems a deterministic linter would miss: fragile assumptions,
missing error handling, race-prone trigger combinations, redundant
automations, and logic that will surprise the household.

Respond with a fenced json block containing an array of findings:

` + "```json" + `
[
  {
    "severity": "critical|warning|suggestion|info",
    "category": "trigger_efficiency|missing_guards|security|deprecated_patterns|error_resilience",
    "automation_id": "...",
    "automation_alias": "...",
    "title": "short summary",
    "description": "what is wrong and why it matters",
    "suggestion": "how to fix it"
  }
]
` + "```" + `

Return an empty array if the automations look fine. Do not repeat issues
a linter would already flag.`

// Result is the outcome of one review run. Model is empty when the LLM
// round-trip failed and only deterministic findings are present.
type Result struct {
	Findings            []Finding `json:"findings" yaml:"findings"`
	Model               string    `json:"model" yaml:"model"`
	Summary             string    `json:"summary" yaml:"summary"`
	AutomationsReviewed int       `json:"automations_reviewed" yaml:"automations_reviewed"`
}

// Engine orchestrates the deterministic rules and one LLM round-trip.
type Engine struct {
	backend llm.Backend
	logger  *slog.Logger
}

// NewEngine creates a review engine. backend may be nil, in which case
// reviews are rule-only.
func NewEngine(backend llm.Backend, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{backend: backend, logger: logger}
}

// ReviewAutomations reviews the whole automation collection. It always
// returns a usable result: LLM transport failures and unparseable model
// output are logged and degrade to deterministic-only findings.
func (e *Engine) ReviewAutomations(ctx context.Context, automations []map[string]any) *Result {
	var findings []Finding
	for _, automation := range automations {
		findings = append(findings, RunAutomationRules(automation)...)
	}

	result := &Result{
		AutomationsReviewed: len(automations),
	}

	if e.backend != nil && len(automations) > 0 {
		llmFindings, model := e.askReviewer(ctx, automations)
		result.Model = model
		findings = mergeFindings(findings, llmFindings)
	}

	result.Findings = findings
	result.Summary = summarize(len(automations), len(findings))
	return result
}

// askReviewer performs the single LLM round-trip. Any failure returns
// no findings and an empty model marker.
func (e *Engine) askReviewer(ctx context.Context, automations []map[string]any) ([]Finding, string) {
	dump, err := yaml.Marshal(automations)
	if err != nil {
		e.logger.Warn("could not serialize automations for review", "error", err)
		return nil, ""
	}

	userPrompt := fmt.Sprintf(
		"Review these %d automation(s):\n\n```yaml\n%s```",
		len(automations), string(dump))

	resp, err := e.backend.Generate(ctx, reviewSystemPrompt, userPrompt)
	if err != nil {
		e.logger.Warn("LLM review failed, continuing with rule findings only", "error", err)
		return nil, ""
	}

	findings := parseLLMFindings(resp.Content)
	e.logger.Debug("LLM review complete",
		"model", resp.Model,
		"findings", len(findings),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)
	return findings, resp.Model
}

// mergeFindings appends LLM findings that do not duplicate an existing
// finding's (category, automation id, normalized title) triple.
func mergeFindings(existing, incoming []Finding) []Finding {
	seen := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		seen[f.dedupKey()] = struct{}{}
	}
	for _, f := range incoming {
		key := f.dedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, f)
	}
	return existing
}

func summarize(automations, issues int) string {
	if issues == 0 {
		return fmt.Sprintf("Reviewed %d automation(s): no issues found", automations)
	}
	return fmt.Sprintf("Reviewed %d automation(s): %d issue(s) found", automations, issues)
}

// FormatFindings renders findings as a human-readable report block.
func FormatFindings(findings []Finding) string {
	if len(findings) == 0 {
		return "No findings."
	}
	var b strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(string(f.Severity)), f.Category, f.Title)
		if f.AutomationAlias != "" || f.AutomationID != "" {
			fmt.Fprintf(&b, "  automation: %s (%s)\n", f.AutomationAlias, f.AutomationID)
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "  %s\n", f.Description)
		}
		if f.Suggestion != "" {
			fmt.Fprintf(&b, "  suggestion: %s\n", f.Suggestion)
		}
	}
	return b.String()
}
