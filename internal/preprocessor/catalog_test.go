package preprocessor

import (
	"os"
	"path/filepath"
	"testing"

	"rgehrsitz/draftcheck/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defectiveCatalog = `[
    {"ruleId": 1, "description": "ok", "source": "s", "condition": {"a": true}, "result": "r", "category": "exempt"},
    {"ruleId": 2, "description": "bad", "source": "s", "condition": {"a": {"gt": "x"}}, "result": "r", "category": "exempt"}
]`

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog(Options{Strict: true})
	require.NoError(t, err, "Built-in catalog must load in strict mode")

	assert.Empty(t, catalog.Defects())
	assert.NotEmpty(t, catalog.Fingerprint)
	assert.Equal(t, []int{41, 1}, ids(catalog.Final()))
	assert.Len(t, catalog.Chain(), len(catalog.Rules)-2)

	rule, ok := catalog.Rule(1)
	require.True(t, ok)
	assert.Equal(t, rules.CategoryEligible, rule.Result.Category)
	assert.Equal(t, []rules.Category{rules.CategoryExempt, rules.CategoryDeferred}, rule.DeferTo)
	assert.NotEmpty(t, rule.Unless)

	for _, r := range catalog.Rules {
		assert.NotEmpty(t, r.Source, "rule %d needs a citation", r.ID)
	}
}

func TestBuildCatalog_LenientKeepsDefects(t *testing.T) {
	catalog, err := BuildCatalog([]byte(defectiveCatalog), FormatJSON, Options{})
	require.NoError(t, err)

	require.Len(t, catalog.Defects(), 1)
	assert.Equal(t, 2, catalog.Defects()[0].RuleID)
	assert.Len(t, catalog.Rules, 2)
	assert.Equal(t, []int{1}, ids(catalog.Chain()), "Defective rules are never evaluated")
}

func TestBuildCatalog_StrictRejectsDefects(t *testing.T) {
	_, err := BuildCatalog([]byte(defectiveCatalog), FormatJSON, Options{Strict: true})
	require.Error(t, err)

	var catErr *CatalogError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, KindDefect, catErr.Kind)
	assert.Equal(t, 2, catErr.RuleID)

	var defect *rules.DefectError
	assert.ErrorAs(t, err, &defect)
}

func TestBuildCatalog_DuplicateIDRejected(t *testing.T) {
	doc := `[
        {"ruleId": 1, "description": "a", "source": "s", "condition": {}, "result": {"x": 1}},
        {"ruleId": 1, "description": "b", "source": "s", "condition": {}, "result": {"y": 1}}
    ]`
	_, err := BuildCatalog([]byte(doc), FormatJSON, Options{})
	require.Error(t, err)

	var catErr *CatalogError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, KindDuplicateID, catErr.Kind)
}

func TestLoadFile_FormatsAgree(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "rules.json")
	yamlPath := filepath.Join(dir, "rules.yml")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`[
        {"ruleId": 7, "description": "d", "source": "s", "condition": {"age": {"between": [18, 25]}, "tags": ["1", "2"]}, "result": "r", "category": "eligible", "stage": "final", "priority": 3}
    ]`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- ruleId: 7
  description: d
  source: s
  condition:
    age: { between: [18, 25] }
    tags: ["1", "2"]
  result: r
  category: eligible
  stage: final
  priority: 3
`), 0o644))

	fromJSON, err := LoadFile(jsonPath, Options{Strict: true})
	require.NoError(t, err)
	fromYAML, err := LoadFile(yamlPath, Options{Strict: true})
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Rules, fromYAML.Rules)
	assert.NotEqual(t, fromJSON.Fingerprint, fromYAML.Fingerprint, "Fingerprint follows the document bytes")
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile("rules.toml", Options{})
	var catErr *CatalogError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, KindIO, catErr.Kind)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"), Options{})
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, KindIO, catErr.Kind)
}

func TestLoadFile_EmptyPathUsesDefault(t *testing.T) {
	fromFile, err := LoadFile("", Options{})
	require.NoError(t, err)
	builtIn, err := DefaultCatalog(Options{})
	require.NoError(t, err)
	assert.Equal(t, builtIn.Fingerprint, fromFile.Fingerprint)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("a/b/catalog.YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatFromPath("catalog.json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = FormatFromPath("catalog")
	assert.Error(t, err)
}
