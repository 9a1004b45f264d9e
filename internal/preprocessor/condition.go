package preprocessor

import (
	"errors"
	"fmt"
	"sort"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"
)

func parseCondition(raw map[string]interface{}) (rules.Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	cond := make(rules.Condition, 0, len(names))
	for _, name := range names {
		c, err := parseConstraint(raw[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cond = append(cond, rules.Clause{Fact: name, Constraint: c})
	}
	return cond, nil
}

func parseConstraint(raw interface{}) (rules.Constraint, error) {
	switch val := raw.(type) {
	case nil:
		return nil, errors.New("constraint is null")
	case map[string]interface{}:
		return parseOperatorObject(val)
	case []interface{}:
		if len(val) == 0 {
			return nil, errors.New("empty value list")
		}
		values := make([]facts.Value, 0, len(val))
		for i, item := range val {
			v, err := parseLiteral(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			values = append(values, v)
		}
		return rules.OneOf{Values: values}, nil
	default:
		v, err := parseLiteral(val)
		if err != nil {
			return nil, err
		}
		return rules.Literal{Value: v}, nil
	}
}

func parseOperatorObject(obj map[string]interface{}) (rules.Constraint, error) {
	if len(obj) == 0 {
		return nil, errors.New("empty operator object")
	}
	ops := make([]string, 0, len(obj))
	for op := range obj {
		if !rules.IsSupportedOperator(op) {
			return nil, fmt.Errorf("unknown operator %q", op)
		}
		ops = append(ops, op)
	}
	sort.Strings(ops)

	parts := make([]rules.Constraint, 0, len(ops))
	for _, op := range ops {
		arg := obj[op]
		switch op {
		case rules.OperatorGreaterThan, rules.OperatorLessThan,
			rules.OperatorGreaterThanOrEqual, rules.OperatorLessThanOrEqual:
			bound, err := parseNumber(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			parts = append(parts, rules.Compare{Operator: op, Bound: bound})
		case rules.OperatorEqual:
			v, err := parseLiteral(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			parts = append(parts, rules.Literal{Value: v})
		case rules.OperatorBetween:
			r, err := parseRange(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			parts = append(parts, r)
		case rules.OperatorOr:
			alts, ok := arg.([]interface{})
			if !ok || len(alts) == 0 {
				return nil, fmt.Errorf("%s: expected a non-empty list of alternatives", op)
			}
			anyOf := rules.AnyOf{Alternatives: make([]rules.Constraint, 0, len(alts))}
			for i, alt := range alts {
				c, err := parseConstraint(alt)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
				}
				anyOf.Alternatives = append(anyOf.Alternatives, c)
			}
			parts = append(parts, anyOf)
		}
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return rules.AllOf{Parts: parts}, nil
}

func parseRange(arg interface{}) (rules.Range, error) {
	bounds, ok := arg.([]interface{})
	if !ok || len(bounds) != 2 {
		return rules.Range{}, errors.New("expected [low, high]")
	}
	low, err := parseNumber(bounds[0])
	if err != nil {
		return rules.Range{}, fmt.Errorf("low: %w", err)
	}
	high, err := parseNumber(bounds[1])
	if err != nil {
		return rules.Range{}, fmt.Errorf("high: %w", err)
	}
	if low > high {
		return rules.Range{}, fmt.Errorf("low %v is greater than high %v", low, high)
	}
	return rules.Range{Low: low, High: high}, nil
}

func parseLiteral(raw interface{}) (facts.Value, error) {
	v, err := facts.Normalize(raw)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case bool, float64, string:
		return v, nil
	case nil:
		return nil, errors.New("literal is null")
	default:
		return nil, fmt.Errorf("expected a scalar literal, got %T", raw)
	}
}

func parseNumber(raw interface{}) (float64, error) {
	v, err := facts.Normalize(raw)
	if err != nil {
		return 0, err
	}
	n, ok := facts.Number(v)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
	return n, nil
}
