package cli

import (
	"fmt"
	"os"

	"github.com/kumasuke/infraprobe/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultEnvironment = "dev"

// loadConfig builds the run configuration from the environment and the
// optional positional environment argument.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Environment = defaultEnvironment
	if len(args) > 0 {
		cfg.Environment = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	setupLogging(cfg.Logging)
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
