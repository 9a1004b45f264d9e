package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"rgehrsitz/draftcheck/internal/api"
	"rgehrsitz/draftcheck/internal/config"
	"rgehrsitz/draftcheck/internal/metrics"
	"rgehrsitz/draftcheck/internal/preprocessor"
	"rgehrsitz/draftcheck/internal/runtime"
	"rgehrsitz/draftcheck/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRuntimeCommand creates the evaluation command tree.
func NewRuntimeCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Evaluate mandatory-service eligibility",
		Long:  "Evaluate subjects' facts against the rule catalog and report a verdict with legal citations.",
	}
	opts.bindPersistent(cmd)
	cmd.PersistentFlags().IntVar(&opts.Config.MaxRounds, "max-rounds", opts.Config.MaxRounds, "chaining round cap")
	cmd.PersistentFlags().IntVar(&opts.Config.Workers, "workers", opts.Config.Workers, "concurrent evaluations in a batch")
	cmd.PersistentFlags().StringVar(&opts.Config.DatabasePath, "db", opts.Config.DatabasePath, "SQLite audit log path; empty disables the audit log")

	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newVerdictCommand(opts))
	return cmd
}

func newEvaluateCommand(opts *RootOptions) *cobra.Command {
	var subjectID string

	cmd := &cobra.Command{
		Use:   "evaluate <facts.json>...",
		Short: "Evaluate one or more facts files",
		Long: `Evaluate facts files. Each file holds a JSON object mapping fact names to
values. With several files the subjects are evaluated concurrently and each
subject is named after its file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts, subjectID, args)
		},
	}
	cmd.Flags().StringVar(&subjectID, "subject", "", "subject id for a single facts file")
	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *RootOptions, subjectID string, paths []string) error {
	engine, err := newEngine(opts, nil)
	if err != nil {
		return err
	}
	audit, err := openAudit(opts)
	if err != nil {
		return err
	}
	if audit != nil {
		defer audit.Close()
	}

	subjects := make([]runtime.Subject, 0, len(paths))
	for _, path := range paths {
		input, err := readFacts(path)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "cannot read facts", Err: err}
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if len(paths) == 1 && subjectID != "" {
			id = subjectID
		}
		subjects = append(subjects, runtime.Subject{ID: id, Facts: input})
	}

	results, err := engine.EvaluateBatch(cmd.Context(), subjects)
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: "evaluation aborted", Err: err}
	}

	items := make([]api.BatchItem, len(results))
	var inputErr error
	for i, res := range results {
		items[i] = api.BatchItem{SubjectID: res.SubjectID, Verdict: res.Verdict}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			inputErr = res.Err
			continue
		}
		if audit != nil {
			// The verdict is still printed when the audit write fails.
			if err := audit.Record(cmd.Context(), res.SubjectID, res.Verdict); err != nil {
				log.Error().Err(err).
					Str("subject_id", res.SubjectID).
					Str("run_id", res.Verdict.RunID).
					Msg("Failed to record verdict")
			}
		}
	}

	if err := printResults(cmd.OutOrStdout(), opts.Output, items); err != nil {
		return err
	}
	if inputErr != nil {
		return &ExitError{Code: ExitCommandError, Message: "invalid facts", Err: inputErr}
	}
	return nil
}

func printResults(w io.Writer, format string, items []api.BatchItem) error {
	if format == "json" {
		if len(items) == 1 && items[0].Error == "" {
			return writeJSON(w, items[0].Verdict)
		}
		return writeJSON(w, items)
	}

	for _, item := range items {
		if item.Error != "" {
			fmt.Fprintf(w, "%s: error: %s\n", item.SubjectID, item.Error)
			continue
		}
		v := item.Verdict
		fmt.Fprintf(w, "%s: %s", item.SubjectID, v.Final)
		if v.HealthType != "" {
			fmt.Fprintf(w, " (%s)", v.HealthType)
		}
		fmt.Fprintf(w, " run=%s\n", v.RunID)
		for _, r := range v.Reasons {
			fmt.Fprintf(w, "  [%d] %s: %s (%s)\n", r.RuleID, r.Description, r.Result, r.Source)
		}
	}
	return nil
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the evaluation HTTP API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Config.Addr, "addr", opts.Config.Addr, "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	engine, err := newEngine(opts, m)
	if err != nil {
		return err
	}
	m.SetCatalogDefects(len(engine.Catalog().Defects()))

	var audit api.AuditLog
	db, err := openAudit(opts)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		audit = db
	}

	srv := api.NewServer(opts.Config.Addr, api.NewRouter(api.New(engine, audit), registry))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Serving evaluation API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return &ExitError{Code: ExitFailure, Message: "server failed", Err: err}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down")
	return srv.Shutdown(shutdownCtx)
}

func newVerdictCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "verdict <run-id>",
		Short:         "Show a recorded verdict from the audit log",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openAudit(opts)
			if err != nil {
				return err
			}
			if db == nil {
				return &ExitError{Code: ExitCommandError, Message: "--db is required"}
			}
			defer db.Close()

			rec, err := db.Get(cmd.Context(), args[0])
			if err != nil {
				return &ExitError{Code: ExitFailure, Message: "cannot read verdict", Err: err}
			}
			if opts.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			return printResults(cmd.OutOrStdout(), "text", []api.BatchItem{{SubjectID: rec.SubjectID, Verdict: rec.Verdict}})
		},
	}
}

func newEngine(opts *RootOptions, recorder runtime.Recorder) (*runtime.Engine, error) {
	catalog, err := preprocessor.LoadFile(opts.Config.CatalogPath, preprocessor.Options{Strict: opts.Config.StrictCatalog})
	if err != nil {
		return nil, &ExitError{Code: ExitFailure, Message: "catalog rejected", Err: err}
	}
	engineOpts := []runtime.Option{
		runtime.WithMaxRounds(opts.Config.MaxRounds),
		runtime.WithWorkers(opts.Config.Workers),
	}
	if recorder != nil {
		engineOpts = append(engineOpts, runtime.WithRecorder(recorder))
	}
	return runtime.New(catalog, engineOpts...), nil
}

func openAudit(opts *RootOptions) (*store.Store, error) {
	if opts.Config.DatabasePath == "" {
		return nil, nil
	}
	db, err := store.Open(opts.Config.DatabasePath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "cannot open audit log", Err: err}
	}
	return db, nil
}

func readFacts(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var input map[string]interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return input, nil
}
