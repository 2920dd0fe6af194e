package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/logger"
)

var version = "1.0.0"

// loaded is the configuration main read at startup, or the reason it could not.
var (
	loaded    *config.Config
	loadedErr error
)

var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "fintrack - personal finance from the command line",
	Long: `fintrack talks to the personal finance API: it lists and edits incomes and
expenses, scans receipts and PDF bills into transactions, and builds reports
over preset or custom date ranges.

Receipts can be scanned by the remote bill-scan service or locally with Google
Vision + ChatGPT, Document AI or Gemini (SCAN_ENGINE). Reports and transactions
can be exported to JSON, Google Sheets and BigQuery.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with the configuration loaded by main.
func Execute(cfg *config.Config, cfgErr error) {
	log := logger.WithComponent("cmd")
	loaded, loadedErr = cfg, cfgErr

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int("timeout", 120, "Overall command timeout in seconds")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine-readable JSON")
}

// currentConfig returns the startup configuration or explains why there is none.
func currentConfig() (*config.Config, error) {
	if loaded == nil {
		if loadedErr != nil {
			return nil, fmt.Errorf("configuration is invalid: %w", loadedErr)
		}
		return nil, fmt.Errorf("configuration not loaded")
	}
	return loaded, nil
}
