package main

import (
	"os"

	"rgehrsitz/draftcheck/internal/cli"
	"rgehrsitz/draftcheck/internal/config"
	"rgehrsitz/draftcheck/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	// Load defaults from the environment; flags override them.
	cfg, err := config.FromEnv()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(cli.ExitCommandError)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Error().Err(err).Msg("Invalid logging configuration")
		os.Exit(cli.ExitCommandError)
	}

	if err := cli.NewPreprocessorCommand(cfg).Execute(); err != nil {
		log.Error().Err(err).Msg("Catalog check failed")
		os.Exit(cli.GetExitCode(err))
	}
}
