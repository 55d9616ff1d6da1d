package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"sdi-exam/roster/internal/config"
	"sdi-exam/roster/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// cfg is populated by PersistentPreRunE and shared with all subcommands.
	cfg *config.Config

	// app holds all wired dependencies; populated by PersistentPreRunE.
	app *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Roster character service",
	Long: `Roster serves the Characters table over a small REST API.

On startup it resolves the PostgreSQL connection, migrates the schema,
optionally resets the table to the five seed characters and then serves
HTTP until interrupted.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogger(logLevel)

		// A .env file is optional; anything else is a real error.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// --log-level flag takes precedence over value in config file.
		if cmd.Flags().Changed("log-level") {
			cfg.Telemetry.LogLevel = logLevel
		} else if cfg.Telemetry.LogLevel != "" {
			initLogger(cfg.Telemetry.LogLevel)
		}

		app, err = buildAppContext(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("building app context: %w", err)
		}

		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(seedCmd)
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("roster exited with error", "err", err)
		if app != nil {
			app.Close()
		}
		os.Exit(1)
	}
}

func initLogger(level string) {
	slog.SetDefault(telemetry.NewLogger(os.Stdout, level))
}
