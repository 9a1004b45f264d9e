// runtime/engine.go

package runtime

import (
	"time"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/rules"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxRounds bounds the chaining loop.
const DefaultMaxRounds = 10

// Recorder observes finished evaluations.
type Recorder interface {
	ObserveEvaluation(v *Verdict, d time.Duration)
}

// Engine evaluates subjects against a shared, read-only catalog.
type Engine struct {
	catalog   *rules.Catalog
	maxRounds int
	workers   int
	recorder  Recorder
	newRunID  func() string
}

type Option func(*Engine)

// WithMaxRounds overrides the chaining round cap.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithWorkers bounds the number of concurrent evaluations in a batch.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// New creates an engine for catalog.
func New(catalog *rules.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		maxRounds: DefaultMaxRounds,
		workers:   4,
		newRunID:  newRunID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *rules.Catalog {
	return e.catalog
}

// Evaluate runs a full evaluation over caller-supplied facts. The only error
// is an input value that cannot be represented as a fact.
func (e *Engine) Evaluate(input map[string]interface{}) (*Verdict, error) {
	store, err := facts.FromMap(input)
	if err != nil {
		return nil, err
	}
	return e.EvaluateStore(store), nil
}

// EvaluateStore runs a full evaluation. The store becomes owned by the run.
func (e *Engine) EvaluateStore(store *facts.Store) *Verdict {
	start := time.Now()
	r := NewRun(e.newRunID(), store)

	report := r.Chain(e.catalog.Chain(), e.maxRounds)
	if !report.Converged {
		r.log.Warn().
			Int("rounds", report.Rounds).
			Int("fired", r.FiredCount()).
			Msg("Chaining stopped at round cap without reaching fixpoint")
	}

	Classify(r.Facts)
	r.Determine(e.catalog.Final())

	v := Conclude(r.Facts, r.Outcomes)
	v.RunID = r.ID
	v.Rounds = report.Rounds
	v.Converged = report.Converged
	v.Catalog = e.catalog.Fingerprint

	r.log.Info().
		Str("final", string(v.Final)).
		Int("rounds", v.Rounds).
		Int("outcomes", len(v.Outcomes)).
		Msg("Evaluation completed")

	if e.recorder != nil {
		e.recorder.ObserveEvaluation(v, time.Since(start))
	}
	return v
}

// Run is the state of one evaluation. It is never shared between evaluations.
type Run struct {
	ID       string
	Facts    *facts.Store
	Outcomes []Outcome

	fired map[int]bool
	log   zerolog.Logger
}

// NewRun creates run state around store.
func NewRun(id string, store *facts.Store) *Run {
	if store == nil {
		store = facts.NewStore()
	}
	return &Run{
		ID:    id,
		Facts: store,
		fired: make(map[int]bool),
		log:   log.With().Str("run_id", id).Logger(),
	}
}

// Fired reports whether the rule has fired in this run.
func (r *Run) Fired(ruleID int) bool {
	return r.fired[ruleID]
}

// FiredCount returns the number of rules fired so far.
func (r *Run) FiredCount() int {
	return len(r.fired)
}

// ChainReport summarises a chaining loop.
type ChainReport struct {
	Rounds    int
	Fired     []int
	Converged bool
}

// Chain forward-chains over chain-stage rules in the given order. Each
// unfired rule whose condition holds fires once; facts it derives are visible
// to later rules in the same pass. The loop stops after a pass that fires
// nothing, or after maxRounds passes.
func (r *Run) Chain(rs []*rules.Rule, maxRounds int) ChainReport {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	var report ChainReport
	for round := 1; round <= maxRounds; round++ {
		before := len(r.fired)
		for _, rule := range rs {
			if !rule.Usable() || rule.Stage == rules.StageFinal || r.fired[rule.ID] {
				continue
			}
			if !Matches(rule.Condition, r.Facts) {
				continue
			}
			r.fire(rule)
			report.Fired = append(report.Fired, rule.ID)
		}
		report.Rounds = round

		if len(r.fired) == before {
			report.Converged = true
			break
		}
	}
	return report
}

func (r *Run) fire(rule *rules.Rule) {
	r.fired[rule.ID] = true

	if rule.Result.IsTerminal() {
		r.Outcomes = append(r.Outcomes, newOutcome(rule))
		r.log.Debug().Int("rule_id", rule.ID).Str("category", string(rule.Result.Category)).Msg("Rule fired")
		return
	}

	for _, a := range rule.Result.Derive {
		if r.Facts.Set(a.Fact, a.Value) {
			r.log.Debug().Int("rule_id", rule.ID).Str("fact", a.Fact).Interface("value", a.Value).Msg("Fact derived")
		}
	}
}
