// Package archive keeps a copy of every scanned receipt in a Cloud Storage bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fintrack/internal/gcp"
	"fintrack/internal/logger"
	"fintrack/internal/scan"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Archive uploads files to one bucket.
type Archive struct {
	client *storage.Client
	bucket string
	now    func() time.Time
	log    zerolog.Logger

	// newWriter opens the destination object. Replaced in tests.
	newWriter func(ctx context.Context, object, contentType string) io.WriteCloser
}

// New connects to Cloud Storage with the configured Google credentials.
func New(ctx context.Context, bucket string) (*Archive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive: GCS_RECEIPT_BUCKET is required")
	}
	opts, _ := gcp.ClientOptions()
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	a := &Archive{
		client: client,
		bucket: bucket,
		now:    time.Now,
		log:    logger.WithComponent("archive"),
	}
	a.newWriter = func(ctx context.Context, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
	return a, nil
}

// Upload stores f under receipts/YYYY/MM/ and returns its gs:// URI.
func (a *Archive) Upload(ctx context.Context, f scan.File) (string, error) {
	object := ObjectName(f.Name, a.now())

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.newWriter(ctx, object, f.ContentType)
	if _, err := io.Copy(w, bytes.NewReader(f.Data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy %s to GCS writer: %w", f.Name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload of %s: %w", f.Name, err)
	}

	uri := "gs://" + a.bucket + "/" + object
	a.log.Debug().Str("file", f.Name).Str("uri", uri).Int64("size", f.Size()).Msg("Archived file")
	return uri, nil
}

// Fetch downloads the object behind a gs:// URI.
func (a *Archive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	rc, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes of %s: %w", uri, err)
	}
	return data, nil
}

// Close releases the storage client.
func (a *Archive) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// ObjectName builds a unique object path for a local file name.
func ObjectName(name string, now time.Time) string {
	base := unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	if base == "" || base == "." || base == "_" {
		base = "upload"
	}
	return path.Join("receipts", now.UTC().Format("2006/01"), uuid.NewString()+"-"+base)
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
