// Package validator runs the staged validation pipeline over automation
// and dashboard YAML documents: syntax, then (for dashboards) schema and
// card types, then entity reference and service call checks. Only syntax
// failures abort the pipeline; everything later accumulates warnings.
package validator

// Severity classifies a validation issue. Errors flip the overall
// verdict to invalid; warnings never do.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single defect found by one pipeline stage.
type Issue struct {
	CheckName  string   `json:"check_name" yaml:"check_name"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Message    string   `json:"message" yaml:"message"`
	Line       int      `json:"line,omitempty" yaml:"line,omitempty"`
	Suggestion string   `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Result is the outcome of a full pipeline run. Parsed holds the decoded
// document when the syntax stage succeeded, nil otherwise.
type Result struct {
	Valid  bool    `json:"valid" yaml:"valid"`
	Issues []Issue `json:"issues" yaml:"issues"`
	Parsed any     `json:"-" yaml:"-"`
}

// Validate runs the automation pipeline: syntax, entity references,
// service calls. knownEntities is the caller-supplied registry snapshot.
func Validate(text string, knownEntities map[string]struct{}) Result {
	issues, parsed := checkSyntax(text)
	if len(issues) > 0 {
		return Result{Valid: false, Issues: issues}
	}

	issues = append(issues, checkEntityRefs(parsed, knownEntities)...)
	issues = append(issues, checkServiceCalls(parsed)...)

	return Result{Valid: countErrors(issues) == 0, Issues: issues, Parsed: parsed}
}

// ValidateDashboard runs the dashboard pipeline: syntax, views schema,
// card types, entity references, service calls.
func ValidateDashboard(text string, knownEntities map[string]struct{}) Result {
	issues, parsed := checkSyntax(text)
	if len(issues) > 0 {
		return Result{Valid: false, Issues: issues}
	}

	issues = append(issues, checkDashboardSchema(parsed)...)
	issues = append(issues, checkCardTypes(parsed)...)
	issues = append(issues, checkEntityRefs(parsed, knownEntities)...)
	issues = append(issues, checkServiceCalls(parsed)...)

	return Result{Valid: countErrors(issues) == 0, Issues: issues, Parsed: parsed}
}

func countErrors(issues []Issue) int {
	n := 0
	for _, i := range issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}
