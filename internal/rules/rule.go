// internal/rules/rule.go

package rules

import (
	"fmt"

	"rgehrsitz/draftcheck/internal/facts"
)

// Category classifies a terminal outcome.
type Category string

const (
	CategoryExempt        Category = "exempt"
	CategoryDeferred      Category = "deferred"
	CategoryEligible      Category = "eligible"
	CategoryInformational Category = "informational"
)

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryExempt, CategoryDeferred, CategoryEligible, CategoryInformational:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Stage selects when a rule is considered.
type Stage string

const (
	// StageChain rules take part in forward chaining, in catalog order.
	StageChain Stage = "chain"
	// StageFinal rules are considered once after health classification,
	// by descending priority, first match wins.
	StageFinal Stage = "final"
)

type Rule struct {
	ID          int
	Description string
	Condition   Condition
	Result      Result
	Source      string
	Stage       Stage
	Priority    int
	// DeferTo stops final-stage evaluation when an earlier outcome already
	// carries one of these categories.
	DeferTo []Category
	// Unless must not match for a final-stage rule to fire.
	Unless Condition
	// Defect is set when the rule definition is malformed. Defective rules
	// never match.
	Defect *DefectError
}

// Result is either a derivation (Derive) or a terminal outcome.
type Result struct {
	Derive   []Assignment
	Outcome  string
	Category Category
}

// Assignment is a single derived fact.
type Assignment struct {
	Fact  string
	Value facts.Value
}

// IsTerminal reports whether the result records an outcome instead of
// writing facts.
func (r Result) IsTerminal() bool {
	return r.Derive == nil
}

// ProducedFacts returns the fact names a derivation writes.
func (r *Rule) ProducedFacts() []string {
	names := make([]string, 0, len(r.Result.Derive))
	for _, a := range r.Result.Derive {
		names = append(names, a.Fact)
	}
	return names
}

// ConsumedFacts returns the fact names read by the condition and by Unless.
func (r *Rule) ConsumedFacts() []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range append(r.Condition.Facts(), r.Unless.Facts()...) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Usable reports whether the rule can ever fire.
func (r *Rule) Usable() bool {
	return r != nil && r.Defect == nil
}
