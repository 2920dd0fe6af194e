package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned for inputs above the synchronous Vision limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum size for synchronous OCR (20MB)")

	// ErrInvalidPDF is returned when PDF input lacks a PDF header.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrUnsupportedType is returned for content types Vision cannot read.
	ErrUnsupportedType = errors.New("unsupported content type for OCR")

	// ErrOCRFailed is returned when the Vision API rejects or fails the request.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrTooManyPages is returned for PDFs longer than the synchronous page limit.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument is returned when no text was detected.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError wraps errors with the OCR operation that failed.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

// WrapOCRError wraps err as an *OCRError unless it already is one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}
