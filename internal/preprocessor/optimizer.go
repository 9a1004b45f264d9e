package preprocessor

import (
	"fmt"
	"sort"

	"rgehrsitz/draftcheck/internal/rules"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/rs/zerolog/log"
)

// OptimizeRules splits validated rules into the chain stage, kept in declared
// order, and the final stage, ordered by priority. Defective rules are left
// out of both.
func OptimizeRules(validatedRules []*rules.Rule) (chain, final []*rules.Rule) {
	for _, rule := range validatedRules {
		if !rule.Usable() {
			continue
		}
		switch rule.Stage {
		case rules.StageFinal:
			final = append(final, rule)
		default:
			chain = append(chain, rule)
		}
	}
	final = prioritizeRules(final)

	log.Debug().
		Int("chain", len(chain)).
		Int("final", len(final)).
		Msg("Optimized rules")
	return chain, final
}

func prioritizeRules(rulesToPrioritize []*rules.Rule) []*rules.Rule {
	// Copy so the caller's slice keeps catalog order.
	prioritizedRules := make([]*rules.Rule, len(rulesToPrioritize))
	copy(prioritizedRules, rulesToPrioritize)

	// Higher priority first; equal priorities keep catalog order.
	sort.SliceStable(prioritizedRules, func(i, j int) bool {
		return getRulePriority(prioritizedRules[i]) > getRulePriority(prioritizedRules[j])
	})

	return prioritizedRules
}

// getRulePriority returns the priority of a rule, defaulting to 0 if not set.
func getRulePriority(r *rules.Rule) int {
	if r != nil {
		return r.Priority
	}
	return 0
}

// Fingerprint returns a CIDv1 (raw codec, sha2-256) identifying a catalog
// document byte for byte.
func Fingerprint(document []byte) (string, error) {
	sum, err := multihash.Sum(document, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("error hashing catalog: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
