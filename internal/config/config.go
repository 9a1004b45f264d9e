package config

import (
	"fmt"
	"os"
	"strconv"

	"rgehrsitz/draftcheck/internal/runtime"
)

// Config captures process-level settings.
type Config struct {
	Addr          string
	CatalogPath   string
	StrictCatalog bool
	MaxRounds     int
	Workers       int
	DatabasePath  string
	LogLevel      string
	LogFormat     string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          getenv("DRAFTCHECK_ADDR", ":8080"),
		CatalogPath:   os.Getenv("DRAFTCHECK_CATALOG"),
		StrictCatalog: os.Getenv("DRAFTCHECK_STRICT_CATALOG") == "true",
		DatabasePath:  os.Getenv("DRAFTCHECK_DB"),
		LogLevel:      getenv("DRAFTCHECK_LOG_LEVEL", "info"),
		LogFormat:     getenv("DRAFTCHECK_LOG_FORMAT", "json"),
	}

	var err error
	if cfg.MaxRounds, err = getint("DRAFTCHECK_MAX_ROUNDS", runtime.DefaultMaxRounds); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = getint("DRAFTCHECK_WORKERS", 4); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
