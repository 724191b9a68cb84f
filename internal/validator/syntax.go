package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const checkYAMLSyntax = "yaml_syntax"

// yaml.v3 reports positions inside its error strings ("yaml: line 3: ...").
var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// checkSyntax parses text as a YAML document. On success it returns the
// decoded tree and no issues; on failure it returns the error-severity
// issue(s) that abort the pipeline.
func checkSyntax(text string) ([]Issue, any) {
	if strings.TrimSpace(text) == "" {
		return []Issue{{
			CheckName: checkYAMLSyntax,
			Severity:  SeverityError,
			Message:   "Empty YAML document",
		}}, nil
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(text), &parsed); err != nil {
		return []Issue{{
			CheckName: checkYAMLSyntax,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("YAML parse error: %v", err),
			Line:      errorLine(err),
		}}, nil
	}

	if parsed == nil {
		return []Issue{{
			CheckName: checkYAMLSyntax,
			Severity:  SeverityError,
			Message:   "YAML parsed to null (empty document)",
		}}, nil
	}

	return nil, parsed
}

// errorLine extracts a best-effort line number from a yaml.v3 error.
func errorLine(err error) int {
	m := yamlLineRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0
	}
	return n
}
