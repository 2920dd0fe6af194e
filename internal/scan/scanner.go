// Package scan turns receipt images, PDFs and statements into transactions.
//
// A Scanner extracts a loosely typed models.ScanResult from one file. Normalize is the
// only place where a ScanResult becomes a models.Transaction, whichever engine produced it.
package scan

import (
	"bytes"
	"context"

	"fintrack/internal/api"
	"fintrack/pkg/models"
)

// Scanner extracts receipt fields from a single file.
type Scanner interface {
	Scan(ctx context.Context, f File) (models.ScanResult, error)
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context, f File) (models.ScanResult, error)

// Scan implements Scanner.
func (fn ScannerFunc) Scan(ctx context.Context, f File) (models.ScanResult, error) {
	return fn(ctx, f)
}

// RemoteScanner delegates to the API's bill-scan endpoint.
type RemoteScanner struct {
	client *api.Client
}

// NewRemoteScanner creates a scanner backed by client.
func NewRemoteScanner(client *api.Client) *RemoteScanner {
	return &RemoteScanner{client: client}
}

// Scan implements Scanner.
func (s *RemoteScanner) Scan(ctx context.Context, f File) (models.ScanResult, error) {
	return s.client.ScanBill(ctx, f.Name, f.ContentType, bytes.NewReader(f.Data))
}
