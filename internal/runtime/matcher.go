// runtime/matcher.go

package runtime

import (
	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"

	"github.com/rs/zerolog/log"
)

// Matches reports whether every clause of cond holds against the facts.
// An empty condition always matches. A clause on an absent fact never does.
func Matches(cond rules.Condition, f facts.Reader) bool {
	for _, clause := range cond {
		if !matchClause(clause.Fact, clause.Constraint, f) {
			return false
		}
	}
	return true
}

func matchClause(name string, c rules.Constraint, f facts.Reader) bool {
	v, ok := f.Get(name)
	if !ok {
		return false
	}

	switch con := c.(type) {
	case rules.Literal:
		return facts.Equal(v, con.Value)
	case rules.OneOf:
		return memberOf(v, con.Values)
	case rules.Compare:
		n, ok := facts.Number(v)
		if !ok {
			log.Debug().Str("fact", name).Str("operator", con.Operator).Msg("Non-numeric fact in numeric comparison")
			return false
		}
		return compare(con.Operator, n, con.Bound)
	case rules.Range:
		n, ok := facts.Number(v)
		if !ok {
			log.Debug().Str("fact", name).Msg("Non-numeric fact in range")
			return false
		}
		return con.Low <= n && n <= con.High
	case rules.AnyOf:
		// Each alternative is re-applied as its own single-fact predicate.
		for _, alt := range con.Alternatives {
			if matchClause(name, alt, f) {
				return true
			}
		}
		return false
	case rules.AllOf:
		for _, part := range con.Parts {
			if !matchClause(name, part, f) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func memberOf(v facts.Value, set []facts.Value) bool {
	if seq, ok := v.([]string); ok {
		for _, item := range seq {
			if memberOf(item, set) {
				return true
			}
		}
		return false
	}
	for _, candidate := range set {
		if facts.Equal(v, candidate) {
			return true
		}
	}
	return false
}

func compare(op string, a, b float64) bool {
	switch op {
	case rules.OperatorGreaterThan:
		return a > b
	case rules.OperatorLessThan:
		return a < b
	case rules.OperatorGreaterThanOrEqual:
		return a >= b
	case rules.OperatorLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}
