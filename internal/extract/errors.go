package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when an engine is missing required settings.
	ErrInvalidConfiguration = errors.New("invalid extraction configuration")

	// ErrProcessingFailed is returned when the extraction service fails the request.
	ErrProcessingFailed = errors.New("document processing failed")

	// ErrPermissionDenied is returned when the credentials lack access to the service.
	ErrPermissionDenied = errors.New("insufficient permissions for extraction service")

	// ErrProcessorNotFound is returned when the Document AI processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when the service rejects the request for quota.
	ErrQuotaExceeded = errors.New("extraction service quota exceeded")

	// ErrUnsupportedDocument is returned for documents the service cannot read.
	ErrUnsupportedDocument = errors.New("document format not supported or corrupted")

	// ErrInvalidResponse is returned when a model answer is not a usable JSON object.
	ErrInvalidResponse = errors.New("model response is not a valid receipt object")
)

// ExtractionError wraps errors with the engine and operation that failed.
type ExtractionError struct {
	Engine  string
	Op      string
	Err     error
	Details string
}

func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract(%s): %s failed: %s: %v", e.Engine, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract(%s): %s failed: %v", e.Engine, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// WrapExtractionError wraps err as an *ExtractionError unless it already is one.
func WrapExtractionError(engine, op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return err
	}
	return &ExtractionError{Engine: engine, Op: op, Err: err, Details: details}
}
