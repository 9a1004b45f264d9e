package cli

import (
	"fmt"

	"rgehrsitz/draftcheck/internal/api"
	"rgehrsitz/draftcheck/internal/config"
	"rgehrsitz/draftcheck/internal/preprocessor"

	"github.com/spf13/cobra"
)

// NewPreprocessorCommand creates the catalog validation command.
func NewPreprocessorCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "preprocessor [catalog-file]",
		Short: "Validate a rule catalog",
		Long: `Parse and validate a rule catalog, report malformed rules and print
the catalog fingerprint. Without an argument the built-in catalog (or the
--catalog flag) is checked.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Config.CatalogPath = args[0]
			}
			return runPreprocessor(cmd, opts)
		},
	}
	opts.bindPersistent(cmd)
	return cmd
}

func runPreprocessor(cmd *cobra.Command, opts *RootOptions) error {
	catalog, err := preprocessor.LoadFile(opts.Config.CatalogPath, preprocessor.Options{Strict: opts.Config.StrictCatalog})
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: "catalog rejected", Err: err}
	}
	summary := api.SummarizeCatalog(catalog)

	out := cmd.OutOrStdout()
	if opts.Output == "json" {
		return writeJSON(out, summary)
	}

	fmt.Fprintf(out, "fingerprint: %s\n", summary.Fingerprint)
	fmt.Fprintf(out, "rules: %d (chain %d, final %d)\n", summary.Rules, summary.Chain, summary.Final)
	if len(summary.Defects) == 0 {
		fmt.Fprintln(out, "defects: none")
		return nil
	}
	fmt.Fprintf(out, "defects: %d\n", len(summary.Defects))
	for _, d := range summary.Defects {
		fmt.Fprintf(out, "  - %s\n", d)
	}
	return nil
}
