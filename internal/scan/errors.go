package scan

import (
	"errors"
	"fmt"
)

// Common scan errors
var (
	// ErrNothingExtracted is returned when a batch produced no usable transaction.
	ErrNothingExtracted = errors.New("no transactions extracted")

	// ErrFileTooLarge is returned for files above MaxFileSize.
	ErrFileTooLarge = errors.New("file size exceeds 10MB limit")

	// ErrUnsupportedType is returned when the file type is not accepted by the scan mode.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyFile is returned for zero-byte files.
	ErrEmptyFile = errors.New("file is empty")

	// ErrNotRecognized is returned in pdf mode when the scanner found neither a merchant nor an amount.
	ErrNotRecognized = errors.New("no merchant or amount recognized")
)

// FileError ties a failure to the file that caused it.
type FileError struct {
	// Op is the step that failed (e.g., "Validate", "Scan").
	Op string

	// File is the file name as given by the caller.
	File string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("scan: %s %s: %v", e.Op, e.File, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// wrapFileError wraps err unless it already carries file context.
func wrapFileError(op, file string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FileError
	if errors.As(err, &fe) {
		return err
	}
	return &FileError{Op: op, File: file, Err: err}
}
