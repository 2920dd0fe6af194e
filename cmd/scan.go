package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fintrack/internal/archive"
	"fintrack/internal/events"
	"fintrack/internal/extract"
	"fintrack/internal/logger"
	"fintrack/internal/scan"
	"fintrack/pkg/models"
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Scan receipts, PDF bills or statements into transactions",
	Long: `Scan receipt images, PDF bills or statements into expense transactions.

Files are scanned one at a time by the engine selected with SCAN_ENGINE:
  remote      the finance API's bill-scan service (default)
  vision      Google Vision OCR completed by ChatGPT (OPENAI_API_KEY)
  documentai  Document AI expense parser (GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID)
  gemini      Gemini multimodal extraction

A file that fails is reported and the rest of the batch continues. In pdf mode a
result is kept only when a merchant or a positive amount was recognized.

Files are at most 10MB. Receipt mode accepts JPEG, PNG and WebP images, pdf mode
accepts PDFs, and statement mode accepts both.`,
	Example: `  # Scan two receipts and show what was extracted
  fintrack scan lunch.jpg fuel.png

  # Scan PDF bills, save them as expenses and announce them on the message bus
  fintrack scan --mode pdf --save --publish bills/*.pdf

  # Keep a copy of every scanned file in Cloud Storage
  fintrack scan --archive --save receipt.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

var scanInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the remote scanner's supported formats and limits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScanPassThrough(cmd, "scan-info", func(ctx context.Context, a *app) (map[string]any, error) {
			return a.client.ScanInfo(ctx)
		})
	},
}

var scanHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the remote scanner's health report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScanPassThrough(cmd, "scan-health", func(ctx context.Context, a *app) (map[string]any, error) {
			return a.client.ScanHealth(ctx)
		})
	},
}

// ScanOutput is one file of the --json output.
type ScanOutput struct {
	File        string              `json:"file"`
	Status      string              `json:"status"`
	Error       string              `json:"error,omitempty"`
	ArchiveURI  string              `json:"archiveUri,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanInfoCmd, scanHealthCmd)

	scanCmd.Flags().StringP("mode", "m", string(scan.ModeReceipt), "receipt, pdf or statement")
	scanCmd.Flags().Bool("save", false, "Save the extracted transactions through the API")
	scanCmd.Flags().Bool("archive", false, "Upload scanned files to GCS_RECEIPT_BUCKET")
	scanCmd.Flags().Bool("publish", false, "Publish a transactions.saved event to AMQP_URL (requires --save)")
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan")

	rawMode, _ := cmd.Flags().GetString("mode")
	save, _ := cmd.Flags().GetBool("save")
	doArchive, _ := cmd.Flags().GetBool("archive")
	publish, _ := cmd.Flags().GetBool("publish")

	mode, err := scan.ParseMode(rawMode)
	if err != nil {
		return handleAPIError(err, log)
	}
	if publish && !save {
		return fmt.Errorf("--publish requires --save")
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if save {
		if _, err := a.requireSession(ctx); err != nil {
			return handleAPIError(err, log)
		}
	} else if _, err := a.session.Bootstrap(ctx); err != nil {
		return handleAPIError(err, log)
	}

	files, outputs := loadScanFiles(args, log)

	scanner, closer, err := extract.NewScanner(ctx, a.cfg, a.client)
	if err != nil {
		return handleAPIError(err, log)
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close scan engine")
		}
	}()

	log.Info().
		Str("engine", a.cfg.ScanEngine).
		Str("mode", string(mode)).
		Int("files", len(files)).
		Msg("Starting scan")

	results, runErr := scan.NewBatch(scanner, mode).Run(ctx, files)
	outputs = append(outputs, scanOutputs(results)...)

	if runErr == nil && doArchive {
		if err := archiveScans(ctx, a, files, results, outputs, log); err != nil {
			return err
		}
	}

	var saved []models.Transaction
	var confirmation string
	if runErr == nil && save {
		saved = scan.PromoteAll(scan.Transactions(results), mode)
		confirmation, err = a.client.SaveTransactions(ctx, saved)
		if err != nil {
			return handleAPIError(err, log)
		}
	}

	if err := printScanOutputs(cmd, outputs); err != nil {
		return err
	}
	if runErr != nil {
		return handleAPIError(runErr, log)
	}

	if save {
		if !jsonOutput(cmd) {
			msg := confirmation
			if msg == "" {
				msg = fmt.Sprintf("Saved %d transactions", len(saved))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
		}
		if publish {
			return publishSaved(ctx, a, saved, confirmation, log)
		}
	}
	return nil
}

// loadScanFiles reads each path. Unreadable files are reported without stopping the batch.
func loadScanFiles(paths []string, log zerolog.Logger) ([]scan.File, []ScanOutput) {
	var files []scan.File
	var failed []ScanOutput
	for _, p := range paths {
		f, err := scan.LoadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("file", p).Msg("Failed to read file")
			failed = append(failed, ScanOutput{File: p, Status: "failed", Error: err.Error()})
			continue
		}
		files = append(files, f)
	}
	return files, failed
}

func scanOutputs(results []scan.Result) []ScanOutput {
	out := make([]ScanOutput, 0, len(results))
	for _, r := range results {
		o := ScanOutput{File: r.File, Status: "ok"}
		if r.OK() {
			t := r.Transaction
			o.Transaction = &t
		} else {
			o.Status = "failed"
			o.Error = r.Err.Error()
		}
		out = append(out, o)
	}
	return out
}

// archiveScans uploads every successfully scanned file and records its URI in the
// transaction notes.
func archiveScans(ctx context.Context, a *app, files []scan.File, results []scan.Result, outputs []ScanOutput, log zerolog.Logger) error {
	arch, err := archive.New(ctx, a.cfg.GCSReceiptBucket)
	if err != nil {
		return fmt.Errorf("failed to open receipt archive: %w", err)
	}
	defer arch.Close()

	byName := make(map[string]scan.File, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}
	for i := range results {
		if !results[i].OK() {
			continue
		}
		uri, err := arch.Upload(ctx, byName[results[i].File])
		if err != nil {
			log.Warn().Err(err).Str("file", results[i].File).Msg("Failed to archive file")
			continue
		}
		results[i].Transaction.Notes = uri
		for j := range outputs {
			if outputs[j].File == results[i].File && outputs[j].Transaction != nil {
				outputs[j].ArchiveURI = uri
				outputs[j].Transaction.Notes = uri
			}
		}
	}
	return nil
}

func publishSaved(ctx context.Context, a *app, saved []models.Transaction, confirmation string, log zerolog.Logger) error {
	if a.cfg.AMQPURL == "" {
		return fmt.Errorf("--publish needs AMQP_URL")
	}
	pub, err := events.Dial(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("failed to connect to the message broker: %w", err)
	}
	defer pub.Close()

	if err := pub.PublishSaved(ctx, saved, confirmation); err != nil {
		return fmt.Errorf("transactions were saved but the event was not published: %w", err)
	}
	return nil
}

func printScanOutputs(cmd *cobra.Command, outputs []ScanOutput) error {
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), outputs)
	}
	w := cmd.OutOrStdout()
	for _, o := range outputs {
		if o.Transaction == nil {
			fmt.Fprintf(w, "✗ %s: %s\n", o.File, o.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s: %s\n", o.File, scan.Describe(*o.Transaction))
		if o.ArchiveURI != "" {
			fmt.Fprintf(w, "    archived at %s\n", o.ArchiveURI)
		}
	}
	return nil
}

func runScanPassThrough(cmd *cobra.Command, component string, call func(ctx context.Context, a *app) (map[string]any, error)) error {
	log := logger.WithComponent(component)

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Bootstrap(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Msg("Continuing without a session")
	}
	out, err := call(ctx, a)
	if err != nil {
		return handleAPIError(err, log)
	}
	return printJSON(cmd.OutOrStdout(), out)
}
