// Package gcp resolves Google Cloud client options shared by the Vision, Document AI,
// Storage, BigQuery and Sheets clients.
package gcp

import (
	"os"

	"google.golang.org/api/option"
)

// CredentialSource names where ClientOptions found credentials.
type CredentialSource string

const (
	SourceInlineJSON CredentialSource = "GOOGLE_CREDENTIALS"
	SourceFile       CredentialSource = "GOOGLE_APPLICATION_CREDENTIALS"
	SourceDefault    CredentialSource = "default"
)

// ClientOptions returns the credential options for Google API clients.
// Inline JSON in GOOGLE_CREDENTIALS wins over a GOOGLE_APPLICATION_CREDENTIALS file;
// with neither set, the client library falls back to application default credentials.
func ClientOptions(extra ...option.ClientOption) ([]option.ClientOption, CredentialSource) {
	var opts []option.ClientOption
	source := SourceDefault
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
		source = SourceInlineJSON
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
		source = SourceFile
	}
	return append(opts, extra...), source
}
