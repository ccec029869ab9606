package main

import (
	"os"

	"github.com/aleister1102/hostbackoff/internal/config"
	"github.com/aleister1102/hostbackoff/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "hostbackoff",
		Short: "Execute HTTP requests with host-aware rate-limit backoff",
		Long: `hostbackoff issues HTTP requests and, when a known provider answers with a
rate-limit signal, waits and re-issues the identical request.

Twitch is retried on 429 until the Ratelimit-Reset time, Google and Youtube
on 400/403 with exponential waits. Other hosts are never retried.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newFetchCommand(opts),
		newClassifyCommand(opts),
		newHistoryCommand(opts),
	)
	return rootCmd
}

// app is the configuration and logger every subcommand starts from.
type app struct {
	cfg    *config.GlobalConfig
	logger zerolog.Logger
}

// loadApp resolves configuration and builds the logger.
func loadApp(opts *rootOptions) (*app, error) {
	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	cfg, err := config.LoadGlobalConfig(opts.configPath, bootstrap)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogConfig.LogLevel = opts.logLevel
	}

	log, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: log}, nil
}
