package preprocessor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Format is the serialisation of a catalog document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ruleDoc is the wire form of a rule record.
type ruleDoc struct {
	RuleID      *int                   `json:"ruleId" yaml:"ruleId"`
	Description string                 `json:"description" yaml:"description"`
	Condition   map[string]interface{} `json:"condition" yaml:"condition"`
	Result      interface{}            `json:"result" yaml:"result"`
	Category    string                 `json:"category" yaml:"category"`
	Source      string                 `json:"source" yaml:"source"`
	Stage       string                 `json:"stage,omitempty" yaml:"stage,omitempty"`
	Priority    int                    `json:"priority,omitempty" yaml:"priority,omitempty"`
	DeferTo     []string               `json:"deferTo,omitempty" yaml:"deferTo,omitempty"`
	Unless      map[string]interface{} `json:"unless,omitempty" yaml:"unless,omitempty"`
}

// ParseRules decodes a catalog document. Malformed rules are returned with
// their Defect set; only document-level problems produce an error.
func ParseRules(data []byte, format Format) ([]*rules.Rule, error) {
	log.Info().Str("format", string(format)).Msg("Started parsing rules...")

	var docs []ruleDoc
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, &CatalogError{Kind: KindParse, Message: "failed to unmarshal rules JSON", Cause: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, &CatalogError{Kind: KindParse, Message: "failed to unmarshal rules YAML", Cause: err}
		}
	default:
		return nil, &CatalogError{Kind: KindParse, Message: fmt.Sprintf("unsupported catalog format %q", format)}
	}

	parsed := make([]*rules.Rule, 0, len(docs))
	for i, doc := range docs {
		rule, err := parseRule(doc, i)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, rule)
	}
	return parsed, nil
}

func parseRule(doc ruleDoc, index int) (*rules.Rule, error) {
	if doc.RuleID == nil {
		return nil, &CatalogError{Kind: KindMissingID, Message: fmt.Sprintf("rule at position %d has no ruleId", index)}
	}
	rule := &rules.Rule{
		ID:          *doc.RuleID,
		Description: doc.Description,
		Source:      doc.Source,
		Priority:    doc.Priority,
		Stage:       rules.StageChain,
	}
	defect := func(field, format string, args ...interface{}) {
		if rule.Defect == nil {
			rule.Defect = &rules.DefectError{RuleID: rule.ID, Field: field, Message: fmt.Sprintf(format, args...)}
		}
	}

	if doc.Description == "" {
		defect("description", "missing")
	}
	if doc.Source == "" {
		defect("source", "missing")
	}

	switch doc.Stage {
	case "", string(rules.StageChain):
	case string(rules.StageFinal):
		rule.Stage = rules.StageFinal
	default:
		defect("stage", "unknown stage %q", doc.Stage)
	}

	cond, err := parseCondition(doc.Condition)
	if err != nil {
		defect("condition", "%v", err)
	}
	rule.Condition = cond

	unless, err := parseCondition(doc.Unless)
	if err != nil {
		defect("unless", "%v", err)
	}
	rule.Unless = unless

	for _, name := range doc.DeferTo {
		c, err := rules.ParseCategory(name)
		if err != nil {
			defect("deferTo", "%v", err)
			continue
		}
		rule.DeferTo = append(rule.DeferTo, c)
	}

	result, err := parseResult(doc.Result, doc.Category)
	if err != nil {
		defect("result", "%v", err)
	}
	rule.Result = result

	if rule.Stage == rules.StageFinal && !rule.Result.IsTerminal() {
		defect("result", "final-stage rules must produce an outcome")
	}
	if rule.Stage == rules.StageChain && (len(doc.DeferTo) > 0 || len(doc.Unless) > 0) {
		defect("stage", "deferTo and unless apply only to final-stage rules")
	}

	return rule, nil
}

func parseResult(raw interface{}, category string) (rules.Result, error) {
	switch val := raw.(type) {
	case nil:
		return rules.Result{}, errors.New("missing")
	case string:
		if val == "" {
			return rules.Result{}, errors.New("empty outcome")
		}
		if category == "" {
			return rules.Result{}, errors.New("terminal result needs a category")
		}
		c, err := rules.ParseCategory(category)
		if err != nil {
			return rules.Result{}, err
		}
		outcome, _ := facts.Normalize(val)
		return rules.Result{Outcome: outcome.(string), Category: c}, nil
	case map[string]interface{}:
		if category != "" {
			return rules.Result{}, errors.New("category applies only to terminal results")
		}
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)

		derive := make([]rules.Assignment, 0, len(names))
		for _, name := range names {
			v, err := facts.Normalize(val[name])
			if err != nil {
				return rules.Result{}, fmt.Errorf("fact %q: %w", name, err)
			}
			if v == nil {
				continue
			}
			derive = append(derive, rules.Assignment{Fact: name, Value: v})
		}
		return rules.Result{Derive: derive}, nil
	default:
		return rules.Result{}, fmt.Errorf("unsupported result type %T", raw)
	}
}

// ValidateRules rejects structurally invalid catalogs and reports defects.
func ValidateRules(parsed []*rules.Rule) error {
	log.Info().Msg("Started validating rules...")
	seen := make(map[int]bool, len(parsed))
	for _, rule := range parsed {
		if seen[rule.ID] {
			return &CatalogError{Kind: KindDuplicateID, RuleID: rule.ID, Message: fmt.Sprintf("duplicate ruleId %d", rule.ID)}
		}
		seen[rule.ID] = true

		if rule.Defect != nil {
			log.Warn().Int("rule_id", rule.ID).Str("field", rule.Defect.Field).Msg(rule.Defect.Message)
		}
	}
	return nil
}
