package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"fintrack/internal/api"
	"fintrack/internal/extract"
	"fintrack/internal/ocr"
	"fintrack/internal/scan"
	"fintrack/internal/session"
	"fintrack/pkg/models"
)

// handleAPIError turns an error from the API, the session or a scan engine into a
// message for the user. The original error is logged at debug level.
func handleAPIError(err error, log zerolog.Logger) error {
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Msg("Command failed")

	var validation *models.ValidationError
	var apiErr *api.Error

	switch {
	case errors.As(err, &validation):
		return fmt.Errorf("invalid input: %s", validation.Error())
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation was canceled")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, api.ErrTimeout):
		return fmt.Errorf("operation timed out. Try increasing --timeout or FINTRACK_REQUEST_TIMEOUT")
	case errors.Is(err, session.ErrNotLoggedIn):
		return err
	case errors.Is(err, session.ErrNoToken):
		return fmt.Errorf("login succeeded but the server sent no token")
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("not authorized. Your session may have expired, run 'fintrack login' again")
	case errors.Is(err, api.ErrNotFound):
		return fmt.Errorf("not found: %s", remoteMessage(apiErr, err))
	case errors.Is(err, api.ErrBadRequest):
		return fmt.Errorf("request rejected: %s", remoteMessage(apiErr, err))
	case errors.Is(err, api.ErrServer):
		return fmt.Errorf("the finance API failed: %s", remoteMessage(apiErr, err))
	case api.IsTransport(err):
		return fmt.Errorf("cannot reach the finance API. Check FINTRACK_API_URL and that the server is running: %w", err)
	case errors.Is(err, scan.ErrNothingExtracted):
		return fmt.Errorf("no transactions extracted. Check that the files are readable receipts")
	case errors.Is(err, extract.ErrPermissionDenied):
		return fmt.Errorf("permission denied by Google Cloud. Check the service account roles for the selected SCAN_ENGINE")
	case errors.Is(err, extract.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Check DOCUMENT_AI_PROCESSOR_ID and GOOGLE_CLOUD_LOCATION")
	case errors.Is(err, extract.ErrQuotaExceeded):
		return fmt.Errorf("extraction quota exceeded. Try again later")
	case errors.Is(err, extract.ErrInvalidConfiguration):
		return fmt.Errorf("scan engine is misconfigured: %w", err)
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document")
	default:
		return err
	}
}

func remoteMessage(apiErr *api.Error, err error) string {
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
