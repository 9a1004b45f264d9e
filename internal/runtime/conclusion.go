package runtime

import (
	"strconv"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"
)

// Final is the categorical verdict.
type Final string

const (
	FinalExempt       Final = "EXEMPT"
	FinalDeferred     Final = "DEFERRED"
	FinalEligible     Final = "ELIGIBLE"
	FinalInconclusive Final = "INCONCLUSIVE"
)

// UndeterminedHealthType is reported for eligible verdicts without a
// health classification.
const UndeterminedHealthType = "Chưa xác định"

// Outcome is a terminal rule firing with its citation.
type Outcome struct {
	RuleID      int            `json:"ruleId"`
	Description string         `json:"description"`
	Result      string         `json:"result"`
	Category    rules.Category `json:"category"`
	Source      string         `json:"source"`
}

func newOutcome(rule *rules.Rule) Outcome {
	return Outcome{
		RuleID:      rule.ID,
		Description: rule.Description,
		Result:      rule.Result.Outcome,
		Category:    rule.Result.Category,
		Source:      rule.Source,
	}
}

// Verdict is the result of one evaluation.
type Verdict struct {
	RunID          string                 `json:"runId"`
	Final          Final                  `json:"final"`
	HealthType     string                 `json:"healthType,omitempty"`
	Classification int                    `json:"classification,omitempty"`
	Reasons        []Outcome              `json:"reasons"`
	Outcomes       []Outcome              `json:"outcomes"`
	Rounds         int                    `json:"rounds"`
	Converged      bool                   `json:"converged"`
	Catalog        string                 `json:"catalog"`
	Facts          map[string]facts.Value `json:"facts"`
}

// verdictOrder lists the categories that decide a verdict, strongest first.
var verdictOrder = []struct {
	category rules.Category
	final    Final
}{
	{rules.CategoryExempt, FinalExempt},
	{rules.CategoryDeferred, FinalDeferred},
	{rules.CategoryEligible, FinalEligible},
}

// Conclude reduces the outcomes of a run to a single verdict: exempt beats
// deferred beats eligible. Without any of those the verdict is inconclusive.
func Conclude(store *facts.Store, outcomes []Outcome) *Verdict {
	v := &Verdict{
		Final:    FinalInconclusive,
		Reasons:  []Outcome{},
		Outcomes: append([]Outcome{}, outcomes...),
		Facts:    store.Snapshot(),
	}
	if c, ok := classification(store); ok {
		v.Classification = c
	}

	for _, step := range verdictOrder {
		reasons := filterOutcomes(outcomes, step.category)
		if len(reasons) == 0 {
			continue
		}
		v.Final = step.final
		v.Reasons = reasons
		if step.final == FinalEligible {
			v.HealthType = UndeterminedHealthType
			if display, ok := store.Get(FactHealthTypeDisplay); ok {
				if s, ok := display.(string); ok {
					v.HealthType = s
				}
			}
		}
		break
	}
	return v
}

func filterOutcomes(outcomes []Outcome, category rules.Category) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Category == category {
			out = append(out, o)
		}
	}
	return out
}

func classification(store *facts.Store) (int, bool) {
	v, ok := store.Get(FactHealthClassification)
	if !ok {
		return 0, false
	}
	seq, ok := v.([]string)
	if !ok || len(seq) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(seq[0])
	if err != nil {
		return 0, false
	}
	return n, true
}
