package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fintrack/internal/logger"
	"fintrack/internal/ocr"
	"fintrack/internal/scan"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Print the text Google Vision reads from a receipt",
	Long: `Run Google Cloud Vision text detection on a receipt image or PDF and print
the text. This is the first step of the vision scan engine and helps to see why
a receipt was not recognized.

PDFs are limited to 5 pages and 20MB for synchronous processing.

Credentials come from GOOGLE_CREDENTIALS (inline JSON),
GOOGLE_APPLICATION_CREDENTIALS (file) or Application Default Credentials.`,
	Example: `  fintrack ocr receipt.jpg
  fintrack ocr bill.pdf --metadata
  fintrack ocr bill.pdf --json -o bill.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput is the --json output of the ocr command.
type OCROutput struct {
	Text               string    `json:"text"`
	PageCount          int       `json:"page_count,omitempty"`
	Confidence         float32   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Print page count, confidence and languages before the text")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")

	f, err := scan.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", args[0], err)
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	reader, err := ocr.NewVisionReader(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Vision client")
		return fmt.Errorf("failed to create Vision client. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
	}
	defer reader.Close()

	log.Info().
		Str("file", f.Name).
		Str("content_type", f.ContentType).
		Int64("size", f.Size()).
		Msg("Reading text")

	result, err := reader.ReadText(ctx, f.Data, f.ContentType)
	if err != nil {
		return handleOCRError(err, log)
	}

	var data []byte
	if jsonOutput(cmd) {
		var b strings.Builder
		if err := printJSON(&b, OCROutput{
			Text:               result.Text,
			PageCount:          result.PageCount,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(f.Name),
			FileSize:           f.Size(),
		}); err != nil {
			return err
		}
		data = []byte(b.String())
	} else {
		data = []byte(formatOCRText(result, filepath.Base(f.Name), f.Size(), includeMetadata))
	}

	if outputPath == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Int("bytes", len(data)).Msg("OCR text written to file")
	return nil
}

func formatOCRText(result *ocr.Result, name string, size int64, includeMetadata bool) string {
	var b strings.Builder
	if includeMetadata {
		fmt.Fprintf(&b, "=== OCR Results for %s ===\n", name)
		fmt.Fprintf(&b, "File size: %d bytes\n", size)
		if result.PageCount > 0 {
			fmt.Fprintf(&b, "Pages processed: %d\n", result.PageCount)
		}
		if result.Confidence > 0 {
			fmt.Fprintf(&b, "Confidence: %.1f%%\n", result.Confidence*100)
		}
		if len(result.LanguageCodes) > 0 {
			fmt.Fprintf(&b, "Languages: %s\n", strings.Join(result.LanguageCodes, ", "))
		}
		fmt.Fprintf(&b, "Processing time: %v\n", result.ProcessingDuration)
		b.WriteString("\n=== Extracted Text ===\n\n")
	}
	b.WriteString(result.Text)
	if !strings.HasSuffix(result.Text, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("file is too large for OCR (maximum 20MB)")
	case errors.Is(err, ocr.ErrUnsupportedType):
		return fmt.Errorf("only images and PDFs can be read: %w", err)
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document")
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
