package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"sdi-exam/roster/internal/bootstrap"

	"github.com/spf13/cobra"
)

var seedTimeout time.Duration

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the Characters table to the seed rows and exit",
	Long: `Seed migrates the schema and replaces every row of the Characters
table with the five seed characters, regardless of seed.reset_characters.

The command runs once, prints a JSON result to stdout, and exits 0 on
success or non-zero on failure.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().DurationVar(&seedTimeout, "timeout", 2*time.Minute, "overall deadline for the reset")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), seedTimeout)
	defer cancel()

	slog.Info("starting character reset")

	result, err := app.bootstrapper.RunBootstrap(ctx, true)
	if err != nil {
		printResult("error", err.Error())
		return fmt.Errorf("seed failed: %w", err)
	}

	printBootstrapResult(result)
	if result.Status == bootstrap.StatusError {
		return fmt.Errorf("seed completed with errors")
	}

	slog.Info("character reset completed")
	return nil
}

func printBootstrapResult(result *bootstrap.BootstrapResult) {
	result.Lock()
	defer result.Unlock()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stdout, `{"status":%q}`+"\n", result.Status)
	}
}

func printResult(status, errMsg string) {
	result := map[string]string{"status": status}
	if errMsg != "" {
		result["error"] = errMsg
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stdout, `{"status":%q}`+"\n", status)
	}
}
