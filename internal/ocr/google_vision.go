package ocr

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"fintrack/internal/gcp"
	"fintrack/internal/logger"
)

const (
	// MaxFileSizeBytes is the synchronous Vision request limit.
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the synchronous page limit for PDFs.
	MaxPagesSync = 5
)

// imageTypes are the image formats Vision reads inline.
var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
}

// VisionReader implements TextReader with the Cloud Vision image annotator.
type VisionReader struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionReader creates a reader using credentials from the environment.
func NewVisionReader(ctx context.Context) (*VisionReader, error) {
	const op = "NewVisionReader"

	opts, source := gcp.ClientOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create client with %s credentials", source))
	}
	return NewVisionReaderWithClient(client), nil
}

// NewVisionReaderWithClient wraps an existing client.
func NewVisionReaderWithClient(client *vision.ImageAnnotatorClient) *VisionReader {
	return &VisionReader{client: client, log: logger.WithComponent("ocr")}
}

// ReadText detects the text of an image or PDF.
func (v *VisionReader) ReadText(ctx context.Context, data []byte, contentType string) (*Result, error) {
	const op = "ReadText"
	start := time.Now()

	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	var (
		pages []*visionpb.AnnotateImageResponse
		err   error
	)
	switch {
	case contentType == "application/pdf":
		pages, err = v.annotatePDF(ctx, data)
	case imageTypes[contentType]:
		pages, err = v.annotateImage(ctx, data)
	default:
		return nil, WrapOCRError(op, ErrUnsupportedType, contentType)
	}
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	result, err := collectText(pages)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(start)

	v.log.Debug().
		Str("content_type", contentType).
		Int("pages", result.PageCount).
		Int("text_length", len(result.Text)).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR completed")

	return result, nil
}

func (v *VisionReader) annotateImage(ctx context.Context, data []byte) ([]*visionpb.AnnotateImageResponse, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: data},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	return resp.GetResponses(), nil
}

func (v *VisionReader) annotatePDF(ctx context.Context, data []byte) ([]*visionpb.AnnotateImageResponse, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, ErrInvalidPDF
	}
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: data, MimeType: "application/pdf"},
			Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}
	fileResp := resp.GetResponses()[0]
	if fileResp.GetError() != nil {
		return nil, fmt.Errorf("%w: Vision API error: %s", ErrOCRFailed, fileResp.GetError().GetMessage())
	}
	if n := len(fileResp.GetResponses()); n > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, n)
	}
	return fileResp.GetResponses(), nil
}

// collectText joins the detected text of every page and averages page confidence.
func collectText(pages []*visionpb.AnnotateImageResponse) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		text      strings.Builder
		confSum   float32
		confCount int
		languages = map[string]bool{}
	)
	for i, page := range pages {
		if page.GetError() != nil {
			return nil, fmt.Errorf("%w: page %d: %s", ErrOCRFailed, i+1, page.GetError().GetMessage())
		}
		annotation := page.GetFullTextAnnotation()
		if annotation == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintf(&text, "\n\n--- Page %d ---\n\n", i+1)
		}
		text.WriteString(annotation.GetText())

		for _, p := range annotation.GetPages() {
			if p.GetConfidence() > 0 {
				confSum += p.GetConfidence()
				confCount++
			}
			for _, lang := range p.GetProperty().GetDetectedLanguages() {
				if lang.GetLanguageCode() != "" {
					languages[lang.GetLanguageCode()] = true
				}
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyDocument
	}

	result := &Result{Text: text.String(), PageCount: len(pages)}
	if confCount > 0 {
		result.Confidence = confSum / float32(confCount)
	}
	for lang := range languages {
		result.LanguageCodes = append(result.LanguageCodes, lang)
	}
	sort.Strings(result.LanguageCodes)
	return result, nil
}

// Close closes the underlying Vision client.
func (v *VisionReader) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
