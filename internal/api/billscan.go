package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"fintrack/pkg/models"
)

// ScanBill uploads one receipt image or PDF to the remote scanner and returns the
// extracted fields. contentType is sent as the part's MIME type; the server uses it
// to choose between image and PDF processing.
func (c *Client) ScanBill(ctx context.Context, fileName, contentType string, content io.Reader) (models.ScanResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("ScanBill: failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("ScanBill: failed to read %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("ScanBill: failed to finish form: %w", err)
	}

	req := request{
		op:          "ScanBill",
		method:      http.MethodPost,
		path:        "/bill-scan/scan",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}
	out := models.ScanResult{}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanInfo returns the scanner's advertised formats and limits.
func (c *Client) ScanInfo(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, request{op: "ScanInfo", method: http.MethodGet, path: "/bill-scan/info"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanHealth returns the scanner's health report.
func (c *Client) ScanHealth(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, request{op: "ScanHealth", method: http.MethodGet, path: "/bill-scan/health"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
