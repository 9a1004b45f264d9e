package api

import "rgehrsitz/draftcheck/internal/rules"

// CatalogSummary describes a loaded catalog.
type CatalogSummary struct {
	Fingerprint string        `json:"fingerprint"`
	Rules       int           `json:"rules"`
	Chain       int           `json:"chain"`
	Final       int           `json:"final"`
	Defects     []string      `json:"defects"`
	Entries     []RuleSummary `json:"entries"`
}

// RuleSummary describes one rule.
type RuleSummary struct {
	RuleID      int            `json:"ruleId"`
	Description string         `json:"description"`
	Stage       rules.Stage    `json:"stage"`
	Priority    int            `json:"priority,omitempty"`
	Category    rules.Category `json:"category,omitempty"`
	Consumes    []string       `json:"consumes,omitempty"`
	Produces    []string       `json:"produces,omitempty"`
	Source      string         `json:"source"`
	Defective   bool           `json:"defective,omitempty"`
}

// SummarizeCatalog builds the catalog description served by GET /v1/catalog.
func SummarizeCatalog(c *rules.Catalog) CatalogSummary {
	s := CatalogSummary{
		Fingerprint: c.Fingerprint,
		Rules:       len(c.Rules),
		Chain:       len(c.Chain()),
		Final:       len(c.Final()),
		Defects:     []string{},
		Entries:     make([]RuleSummary, 0, len(c.Rules)),
	}
	for _, d := range c.Defects() {
		s.Defects = append(s.Defects, d.Error())
	}
	for _, r := range c.Rules {
		s.Entries = append(s.Entries, RuleSummary{
			RuleID:      r.ID,
			Description: r.Description,
			Stage:       r.Stage,
			Priority:    r.Priority,
			Category:    r.Result.Category,
			Consumes:    r.ConsumedFacts(),
			Produces:    r.ProducedFacts(),
			Source:      r.Source,
			Defective:   r.Defect != nil,
		})
	}
	return s
}
