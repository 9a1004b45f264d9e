package preprocessor

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rgehrsitz/draftcheck/internal/rules"

	"github.com/rs/zerolog/log"
)

//go:embed catalog/default.yaml
var defaultCatalog []byte

// Options controls catalog loading.
type Options struct {
	// Strict turns rule defects into a load failure.
	Strict bool
}

// Kind categorises catalog errors.
type Kind string

const (
	KindParse       Kind = "parse"
	KindMissingID   Kind = "missing-id"
	KindDuplicateID Kind = "duplicate-id"
	KindDefect      Kind = "defect"
	KindIO          Kind = "io"
)

// CatalogError is a structural catalog problem. Catalogs that produce one are
// rejected before any evaluation starts.
type CatalogError struct {
	Kind    Kind
	RuleID  int
	Message string
	Cause   error
}

func (e *CatalogError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog %s: %s", e.Kind, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// BuildCatalog parses, validates and orders a catalog document.
func BuildCatalog(document []byte, format Format, opts Options) (*rules.Catalog, error) {
	parsed, err := ParseRules(document, format)
	if err != nil {
		return nil, err
	}
	if err := ValidateRules(parsed); err != nil {
		return nil, err
	}
	if opts.Strict {
		for _, rule := range parsed {
			if rule.Defect != nil {
				return nil, &CatalogError{Kind: KindDefect, RuleID: rule.ID, Message: "malformed rule", Cause: rule.Defect}
			}
		}
	}

	fingerprint, err := Fingerprint(document)
	if err != nil {
		return nil, err
	}
	chain, final := OptimizeRules(parsed)

	log.Info().
		Int("rules", len(parsed)).
		Str("fingerprint", fingerprint).
		Msg("Catalog loaded")
	return rules.NewCatalog(parsed, chain, final, fingerprint), nil
}

// FormatFromPath picks the catalog format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot infer catalog format from %q", path)
	}
}

// LoadFile builds a catalog from a file. An empty path loads the default
// catalog.
func LoadFile(path string, opts Options) (*rules.Catalog, error) {
	if path == "" {
		return DefaultCatalog(opts)
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &CatalogError{Kind: KindIO, Message: "unknown catalog format", Cause: err}
	}
	document, err := os.ReadFile(path)
	if err != nil {
		return nil, &CatalogError{Kind: KindIO, Message: "failed to read catalog", Cause: err}
	}
	return BuildCatalog(document, format, opts)
}

// DefaultCatalog builds the catalog embedded in the binary.
func DefaultCatalog(opts Options) (*rules.Catalog, error) {
	return BuildCatalog(defaultCatalog, FormatYAML, opts)
}
