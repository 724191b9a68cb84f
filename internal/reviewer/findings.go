package reviewer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// llmFinding is the wire shape the reviewer prompt asks the model to
// emit inside a fenced block.
type llmFinding struct {
	Severity        string `json:"severity"`
	Category        string `json:"category"`
	AutomationID    string `json:"automation_id"`
	AutomationAlias string `json:"automation_alias"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Suggestion      string `json:"suggestion"`
}

// parseLLMFindings decodes review findings from free-text model output.
// The content is parsed as markdown and every fenced code block is tried
// as a JSON array of findings; the first block that decodes wins. Prose
// around the fence, a missing fence (bare JSON), or undecodable content
// all degrade to zero findings rather than an error.
func parseLLMFindings(content string) []Finding {
	for _, block := range fencedBlocks(content) {
		if findings := decodeFindings(block); findings != nil {
			return findings
		}
	}
	// Some models skip the fence entirely.
	return decodeFindings(content)
}

// fencedBlocks returns the body of every fenced code block in the
// markdown document, by walking the goldmark AST.
func fencedBlocks(content string) []string {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(source))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for i := 0; i < fence.Lines().Len(); i++ {
			seg := fence.Lines().At(i)
			buf.Write(seg.Value(source))
		}
		blocks = append(blocks, buf.String())
		return ast.WalkContinue, nil
	})
	return blocks
}

// decodeFindings tries to decode a JSON array of findings, dropping
// records with categories outside the closed enumeration and defaulting
// unrecognized severities to info.
func decodeFindings(s string) []Finding {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil
	}

	var raw []llmFinding
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}

	findings := make([]Finding, 0, len(raw))
	for _, r := range raw {
		category := FindingCategory(strings.ToLower(strings.TrimSpace(r.Category)))
		if _, ok := validCategories[category]; !ok {
			continue
		}
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		severity := FindingSeverity(strings.ToLower(strings.TrimSpace(r.Severity)))
		if _, ok := validSeverities[severity]; !ok {
			severity = SeverityInfo
		}
		findings = append(findings, Finding{
			Severity:        severity,
			Category:        category,
			AutomationID:    r.AutomationID,
			AutomationAlias: r.AutomationAlias,
			Title:           r.Title,
			Description:     r.Description,
			Suggestion:      r.Suggestion,
		})
	}
	return findings
}
