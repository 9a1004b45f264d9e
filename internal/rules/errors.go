package rules

import "fmt"

// DefectError describes a malformed rule definition. It is a configuration
// defect for the catalog owner, not a failure of any single evaluation.
type DefectError struct {
	RuleID  int
	Field   string
	Message string
}

func (e *DefectError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("rule %d: %s: %s", e.RuleID, e.Field, e.Message)
	}
	return fmt.Sprintf("rule %d: %s", e.RuleID, e.Message)
}
