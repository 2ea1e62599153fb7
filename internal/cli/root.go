// Package cli implements the concierge command line client.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/feastline/concierge/internal/config"
	"github.com/feastline/concierge/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concierge",
		Short: "Live support chat client for the Feastline platform",
		Long:  "Concierge is the live conversation client for the Feastline support backend: streaming chat with automatic fallback, offline recovery, and a persistent local transcript.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "warn"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.concierge/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads and validates the config, falling back to defaults when
// the file is unreadable. The configured log level and file apply unless the
// --log-level flag overrides them.
func loadConfig() config.Config {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		log.Warn().Err(err).Str("path", paths.Config).Msg("config unreadable, using defaults")
		cfg = config.Defaults()
	}
	for _, issue := range config.Validate(&cfg) {
		log.Warn().Str("path", issue.Path).Msg(issue.Message)
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = paths.State
	}
	applyLogging(cfg.Logging)
	return cfg
}

// applyLogging rebuilds the package logger from the config file's logging
// section. A logging.file path routes logs away from the interactive session.
func applyLogging(lc config.LoggingConfig) {
	level := logLevel
	if level == "" {
		level = lc.Level
	}
	if level == "" {
		level = "warn"
	}
	if lc.File != "" {
		if f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			log = logging.New(f, level)
			return
		}
		log.Warn().Str("path", lc.File).Msg("log file not writable, keeping stderr")
	}
	log = logging.New(nil, level)
}
