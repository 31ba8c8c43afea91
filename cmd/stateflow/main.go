package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soochol/stateflow/internal/config"
)

var version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "stateflow",
		Short:         "Configurable workflow state machine service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "path to .env file")

	load := func() (*config.Config, error) {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
		var (
			cfg *config.Config
			err error
		)
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return nil, err
		}
		setupLogging(cfg.Log)
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newValidateCmd(load),
		newMigrateCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "stateflow", version)
			},
		},
	)
	return root
}

type configLoader func() (*config.Config, error)

// setupLogging installs the default slog handler.
func setupLogging(c config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
