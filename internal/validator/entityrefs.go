package validator

import (
	"fmt"
	"sort"

	"github.com/haforge/autogen/internal/extract"
	"github.com/haforge/autogen/internal/fuzzy"
)

const checkNameEntityRefs = "entity_refs"

// checkEntityRefs flags every referenced entity identifier that is not
// in the known set. One warning per unknown identifier, with a typo
// suggestion when a known identifier is close enough.
func checkEntityRefs(tree any, known map[string]struct{}) []Issue {
	referenced := extract.EntityIDs(tree)

	unknown := make([]string, 0, len(referenced))
	for id := range referenced {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)

	issues := make([]Issue, 0, len(unknown))
	for _, id := range unknown {
		issue := Issue{
			CheckName: checkNameEntityRefs,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Unknown entity: %s", id),
		}
		if match, ok := fuzzy.ClosestMatchSet(id, known); ok {
			issue.Suggestion = fmt.Sprintf("Did you mean %s?", match)
		}
		issues = append(issues, issue)
	}
	return issues
}
