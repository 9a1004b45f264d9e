package rules

// Catalog is a validated, read-only rule set. It is safe to share between
// concurrent evaluations as long as nobody mutates it.
type Catalog struct {
	// Rules holds every rule in declared order, including defective ones.
	Rules []*Rule
	// Fingerprint identifies the catalog document that produced Rules.
	Fingerprint string

	chain []*Rule
	final []*Rule
}

// NewCatalog builds a catalog. chain must be in declared order and final in
// evaluation order.
func NewCatalog(all, chain, final []*Rule, fingerprint string) *Catalog {
	return &Catalog{
		Rules:       all,
		Fingerprint: fingerprint,
		chain:       chain,
		final:       final,
	}
}

// Chain returns the usable chain-stage rules in declared order.
func (c *Catalog) Chain() []*Rule {
	return c.chain
}

// Final returns the usable final-stage rules in evaluation order.
func (c *Catalog) Final() []*Rule {
	return c.final
}

// Defects returns the defects of all malformed rules.
func (c *Catalog) Defects() []*DefectError {
	var defects []*DefectError
	for _, r := range c.Rules {
		if r.Defect != nil {
			defects = append(defects, r.Defect)
		}
	}
	return defects
}

// Rule looks up a rule by id.
func (c *Catalog) Rule(id int) (*Rule, bool) {
	for _, r := range c.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}
