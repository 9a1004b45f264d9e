// internal/rules/condition.go

package rules

import "rgehrsitz/draftcheck/internal/facts"

// Operator keys accepted inside an operator object.
const (
	OperatorGreaterThan        = "gt"
	OperatorLessThan           = "lt"
	OperatorGreaterThanOrEqual = "gte"
	OperatorLessThanOrEqual    = "lte"
	OperatorEqual              = "eq"
	OperatorBetween            = "between"
	OperatorOr                 = "or"
)

var SupportedOperators = []string{
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorGreaterThanOrEqual,
	OperatorLessThanOrEqual,
	OperatorEqual,
	OperatorBetween,
	OperatorOr,
}

// IsSupportedOperator reports whether op is a known operator key.
func IsSupportedOperator(op string) bool {
	for _, supported := range SupportedOperators {
		if op == supported {
			return true
		}
	}
	return false
}

// Condition is a predicate tree: a conjunction of clauses, one per fact name.
// An empty Condition always matches.
type Condition []Clause

// Clause constrains a single fact.
type Clause struct {
	Fact       string
	Constraint Constraint
}

// Constraint is one of Literal, OneOf, Compare, Range, AnyOf or AllOf.
type Constraint interface {
	constraint()
}

// Literal requires exact equality with Value.
type Literal struct {
	Value facts.Value
}

// OneOf requires the fact to be a member of Values. A sequence-valued fact
// matches when any of its elements is a member.
type OneOf struct {
	Values []facts.Value
}

// Compare is a numeric comparison against Bound.
type Compare struct {
	Operator string
	Bound    float64
}

// Range is an inclusive numeric range.
type Range struct {
	Low  float64
	High float64
}

// AnyOf holds if any alternative holds for the same fact.
type AnyOf struct {
	Alternatives []Constraint
}

// AllOf holds if every part holds. It is produced by operator objects that
// carry more than one key.
type AllOf struct {
	Parts []Constraint
}

func (Literal) constraint() {}
func (OneOf) constraint()   {}
func (Compare) constraint() {}
func (Range) constraint()   {}
func (AnyOf) constraint()   {}
func (AllOf) constraint()   {}

// Facts returns the fact names the condition consumes.
func (c Condition) Facts() []string {
	names := make([]string, 0, len(c))
	for _, clause := range c {
		names = append(names, clause.Fact)
	}
	return names
}
