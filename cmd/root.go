// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Querypipe
// application. It implements subcommands for running queries against
// configured connections and for inspecting connection state, using the
// Cobra CLI framework.
package cmd

import (
	"context"
	"fmt"
	"os"

	"querypipe/cli/internal/config"
	"querypipe/cli/internal/keychain"
	"querypipe/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "querypipe",
	Short:         "Querypipe CLI for asynchronous SQL execution",
	Long:          `Querypipe is a command-line tool for running SQL against configured database connections through an asynchronous dispatch engine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "querypipe.yml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

// loadSetup reads the configuration file and builds the logging context every
// subcommand runs under.
func loadSetup() (config.Config, context.Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return cfg, logging.NewContext(context.Background(), level), nil
}

// passwordSource opens the OS keychain when any connection needs it. Configs
// with inline passwords never touch secure storage.
func passwordSource(cfg config.Config) (config.PasswordSource, error) {
	needed := false
	for _, c := range cfg.Connections {
		if c.PasswordFromKeyring {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	m, err := keychain.NewManager()
	if err != nil {
		return nil, err
	}
	return m, nil
}
