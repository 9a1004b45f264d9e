package runtime

import (
	"fmt"
	"strconv"

	"rgehrsitz/draftcheck/internal/facts"
)

// Fact names read and written by the health classifier.
const (
	FactEyeScore             = "eyeScore"
	FactEyeScoreAdjusted     = "eyeScoreAdjusted"
	FactRefractiveSurgery    = "hasRefractiveSurgeryHistory"
	FactCorrectionGlasses    = "hasCorrectionGlasses"
	FactHealthClassification = "healthClassification"
	FactHealthTypeDisplay    = "health_type_display"
)

// MaxHealthScore caps the adjusted eye score.
const MaxHealthScore = 6

var subScores = []string{
	"heightScore",
	"weightScore",
	"chestScore",
	"bmiScore",
	FactEyeScore,
	"astigmatismEyeScore",
}

// Classify derives the overall health classification as the worst of the
// whole-number sub-scores present. The eye sub-score is raised by one for a
// refractive-surgery history and by one for corrective glasses, capped at
// MaxHealthScore. Nothing is written when no sub-score is present.
func Classify(store *facts.Store) (float64, bool) {
	var scores []float64
	for _, name := range subScores {
		v, ok := store.Get(name)
		if !ok {
			continue
		}
		score, ok := facts.Whole(v)
		if !ok {
			continue
		}
		if name == FactEyeScore {
			score = adjustEyeScore(store, score)
		}
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return 0, false
	}

	worst := scores[0]
	for _, s := range scores[1:] {
		if s > worst {
			worst = s
		}
	}
	grade := strconv.FormatFloat(worst, 'f', -1, 64)
	store.Set(FactHealthClassification, []string{grade})
	store.Set(FactHealthTypeDisplay, fmt.Sprintf("Loại %s", grade))
	return worst, true
}

func adjustEyeScore(store *facts.Store, score float64) float64 {
	adjusted := score
	if v, ok := store.Get(FactRefractiveSurgery); ok && facts.IsTrue(v) {
		adjusted++
	}
	if v, ok := store.Get(FactCorrectionGlasses); ok && facts.IsTrue(v) {
		adjusted++
	}
	if adjusted > MaxHealthScore {
		adjusted = MaxHealthScore
	}
	if adjusted != score {
		store.Set(FactEyeScoreAdjusted, adjusted)
	}
	return adjusted
}
