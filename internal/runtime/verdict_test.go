package runtime

import (
	"testing"

	"rgehrsitz/draftcheck/internal/facts"
	"rgehrsitz/draftcheck/internal/preprocessor"
	"rgehrsitz/draftcheck/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studentStatus = "Đang học đại học/cao đẳng chính quy"

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	catalog, err := preprocessor.DefaultCatalog(preprocessor.Options{Strict: true})
	require.NoError(t, err)
	return New(catalog, WithRunIDs(fixedRunID))
}

// healthyAdult scores 1 on every measured band.
func healthyAdult() map[string]interface{} {
	return map[string]interface{}{
		"age":                   20,
		"academicStandard":      9,
		"height_cm":             170,
		"weight_kg":             60,
		"chest_cm":              85,
		"bmi":                   21,
		"total_eyes_no_glasses": 20,
	}
}

func ruleIDs(outcomes []Outcome) []int {
	out := make([]int, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.RuleID)
	}
	return out
}

func TestVerdict_Eligible(t *testing.T) {
	v, err := defaultEngine(t).Evaluate(healthyAdult())
	require.NoError(t, err)

	assert.Equal(t, FinalEligible, v.Final)
	assert.Equal(t, "Loại 1", v.HealthType)
	assert.Equal(t, 1, v.Classification)
	assert.Equal(t, []int{1}, ruleIDs(v.Reasons))
	assert.Equal(t, "Thông tư 148/2018/TT-BQP, Chương 2, Điều 4", v.Reasons[0].Source)
}

func TestVerdict_ExemptBeatsEligible(t *testing.T) {
	input := healthyAdult()
	input["diseaseCodeInExclusionList"] = true

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalExempt, v.Final)
	assert.Empty(t, v.HealthType)
	assert.Equal(t, []int{201}, ruleIDs(v.Reasons))
	assert.NotContains(t, ruleIDs(v.Outcomes), 1, "Eligibility defers to an exemption")
}

func TestVerdict_StudentDeferral(t *testing.T) {
	input := healthyAdult()
	input["educationStatus"] = studentStatus
	delete(input, "academicStandard")

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalDeferred, v.Final)
	assert.Equal(t, []int{41}, ruleIDs(v.Reasons))
	assert.Equal(t, "Tạm hoãn nghĩa vụ quân sự", v.Reasons[0].Result)
	assert.Equal(t, "Luật Nghĩa vụ quân sự 2015, Điều 41", v.Reasons[0].Source)
}

func TestVerdict_StudentDeferralOverridesEarlierOutcomes(t *testing.T) {
	input := healthyAdult()
	input["educationStatus"] = studentStatus
	input["isResettlementCase"] = true

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalDeferred, v.Final)
	assert.Equal(t, []int{207, 41}, ruleIDs(v.Reasons))
}

func TestVerdict_StudentWithPoorHealthIsNotDeferredAsStudent(t *testing.T) {
	input := healthyAdult()
	input["educationStatus"] = studentStatus
	input["total_eyes_no_glasses"] = 12

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalInconclusive, v.Final)
	assert.Equal(t, 6, v.Classification)
	assert.Empty(t, v.Reasons)
}

func TestVerdict_ExemptAndDeferredBothRecorded(t *testing.T) {
	input := healthyAdult()
	input["isResettlementCase"] = true
	input["familyRelation"] = "Con thương binh/liệt sĩ hạng 1"

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalExempt, v.Final)
	assert.Equal(t, []int{203, 207}, ruleIDs(v.Outcomes))
}

func TestVerdict_DeferralBlocksEligibility(t *testing.T) {
	input := healthyAdult()
	input["isSoleBreadwinner"] = true
	input["dependentsUnableToWork"] = true

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalDeferred, v.Final)
	assert.Equal(t, []int{205}, ruleIDs(v.Outcomes))
}

func TestVerdict_InconclusiveWithoutFacts(t *testing.T) {
	v, err := defaultEngine(t).Evaluate(map[string]interface{}{})
	require.NoError(t, err)

	assert.Equal(t, FinalInconclusive, v.Final)
	assert.NotNil(t, v.Reasons)
	assert.Empty(t, v.Reasons)
	assert.Empty(t, v.Outcomes)
	assert.Zero(t, v.Classification)
}

func TestVerdict_InformationalDoesNotDecide(t *testing.T) {
	input := healthyAdult()
	input["height_cm"] = 150
	input["weight_kg"] = 39
	input["relatedToHeroinAndHIV"] = true

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalInconclusive, v.Final, "Classification 6 is not eligible")
	assert.Equal(t, []int{301, 310}, ruleIDs(v.Outcomes))
	physique, ok := v.Facts["physiqueBelowStandard"]
	require.True(t, ok)
	assert.Equal(t, true, physique)
}

func TestVerdict_BelowAcademicStandard(t *testing.T) {
	input := healthyAdult()
	input["academicStandard"] = 7

	v, err := defaultEngine(t).Evaluate(input)
	require.NoError(t, err)

	assert.Equal(t, FinalInconclusive, v.Final)
}

func TestDetermine_FirstMatchWins(t *testing.T) {
	a := outcomeRule(1, nil, rules.CategoryEligible)
	a.Stage = rules.StageFinal
	b := outcomeRule(2, nil, rules.CategoryDeferred)
	b.Stage = rules.StageFinal

	r := NewRun("run", nil)
	r.Determine([]*rules.Rule{a, b})

	assert.Equal(t, []int{1}, ruleIDs(r.Outcomes))
}

func TestDetermine_DeferToStopsThePass(t *testing.T) {
	blocked := outcomeRule(1, is("never", true), rules.CategoryEligible)
	blocked.Stage = rules.StageFinal
	blocked.DeferTo = []rules.Category{rules.CategoryExempt}
	next := outcomeRule(2, nil, rules.CategoryInformational)
	next.Stage = rules.StageFinal

	r := NewRun("run", nil)
	r.Outcomes = []Outcome{{RuleID: 9, Category: rules.CategoryExempt}}
	r.Determine([]*rules.Rule{blocked, next})

	assert.Equal(t, []int{9}, ruleIDs(r.Outcomes), "Existing outcomes are kept and nothing is added")
}

func TestDetermine_Unless(t *testing.T) {
	rule := outcomeRule(1, nil, rules.CategoryEligible)
	rule.Stage = rules.StageFinal
	rule.Unless = is("student", true)

	r := NewRun("run", storeOf(t, map[string]interface{}{"student": true}))
	r.Determine([]*rules.Rule{rule})
	assert.Empty(t, r.Outcomes)

	r = NewRun("run", storeOf(t, map[string]interface{}{"student": false}))
	r.Determine([]*rules.Rule{rule})
	assert.Equal(t, []int{1}, ruleIDs(r.Outcomes))
}

func TestConclude_Precedence(t *testing.T) {
	outcomes := []Outcome{
		{RuleID: 1, Category: rules.CategoryEligible},
		{RuleID: 2, Category: rules.CategoryDeferred},
		{RuleID: 3, Category: rules.CategoryInformational},
	}

	v := Conclude(facts.NewStore(), outcomes)
	assert.Equal(t, FinalDeferred, v.Final)
	assert.Equal(t, []int{2}, ruleIDs(v.Reasons))
	assert.Len(t, v.Outcomes, 3)

	v = Conclude(facts.NewStore(), outcomes[:1])
	assert.Equal(t, FinalEligible, v.Final)
	assert.Equal(t, UndeterminedHealthType, v.HealthType)
}

func TestVerdict_HugeSubScoreIsNotEligible(t *testing.T) {
	v, err := defaultEngine(t).Evaluate(map[string]interface{}{
		"heightScore":      1e19,
		"weightScore":      2,
		"age":              20,
		"academicStandard": 9,
	})
	require.NoError(t, err)

	assert.Equal(t, FinalInconclusive, v.Final)
	assert.Equal(t, []string{"10000000000000000000"}, v.Facts[FactHealthClassification])
}
