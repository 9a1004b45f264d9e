package runtime

import "rgehrsitz/draftcheck/internal/rules"

// Determine considers final-stage rules in the given order and appends the
// outcome of the first one that matches. A rule that defers to categories
// already present among the outcomes ends the pass without firing. Existing
// outcomes are never removed.
func (r *Run) Determine(final []*rules.Rule) {
	for _, rule := range final {
		if !rule.Usable() || r.fired[rule.ID] {
			continue
		}
		if r.hasCategory(rule.DeferTo...) {
			r.log.Debug().Int("rule_id", rule.ID).Msg("Deferring to earlier determination")
			return
		}
		if !Matches(rule.Condition, r.Facts) {
			continue
		}
		if len(rule.Unless) > 0 && Matches(rule.Unless, r.Facts) {
			continue
		}
		r.fire(rule)
		return
	}
}

func (r *Run) hasCategory(categories ...rules.Category) bool {
	for _, o := range r.Outcomes {
		for _, c := range categories {
			if o.Category == c {
				return true
			}
		}
	}
	return false
}
