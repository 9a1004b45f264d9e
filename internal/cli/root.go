package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"rgehrsitz/draftcheck/internal/config"
	"rgehrsitz/draftcheck/internal/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // catalog defects, failed evaluation
	ExitCommandError = 2 // bad arguments or unreadable input
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOptions holds flags shared by all commands.
type RootOptions struct {
	Config config.Config
	Output string
}

func (o *RootOptions) bindPersistent(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.Config.CatalogPath, "catalog", o.Config.CatalogPath, "rule catalog file (.json, .yaml); empty uses the built-in catalog")
	flags.BoolVar(&o.Config.StrictCatalog, "strict", o.Config.StrictCatalog, "reject catalogs with malformed rules")
	flags.StringVar(&o.Config.LogLevel, "log-level", o.Config.LogLevel, "log level (debug|info|warn|error)")
	flags.StringVar(&o.Config.LogFormat, "log-format", o.Config.LogFormat, "log format (json|console)")
	flags.StringVar(&o.Output, "output", "json", "output format (json|text)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !isValidFormat(o.Output) {
			return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid output %q: must be one of %v", o.Output, ValidFormats)}
		}
		if err := logging.SetupWriter(cmd.ErrOrStderr(), o.Config.LogLevel, o.Config.LogFormat); err != nil {
			return &ExitError{Code: ExitCommandError, Message: "invalid logging flags", Err: err}
		}
		return nil
	}
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
