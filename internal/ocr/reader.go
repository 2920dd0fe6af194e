// Package ocr reads the printed text of receipts with the Google Cloud Vision API.
//
// Images (JPEG, PNG, WebP, GIF) go through BatchAnnotateImages and PDFs through
// BatchAnnotateFiles, both with DOCUMENT_TEXT_DETECTION and inline content, so no
// Cloud Storage staging is needed. Synchronous limits apply: 20MB per file and at
// most 5 PDF pages.
package ocr

import (
	"context"
	"time"
)

// TextReader extracts the text of a single receipt.
type TextReader interface {
	ReadText(ctx context.Context, data []byte, contentType string) (*Result, error)
}

// Result is the text detected on one document.
type Result struct {
	// Text holds all pages in reading order, separated by page markers.
	Text string `json:"text"`

	PageCount int `json:"page_count"`

	// Confidence is the mean page confidence, 0 when Vision reports none.
	Confidence float32 `json:"confidence"`

	LanguageCodes []string `json:"language_codes,omitempty"`

	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}
