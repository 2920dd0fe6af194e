package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fintrack/internal/categorize"
	"fintrack/internal/gcp"
	"fintrack/internal/logger"
	"fintrack/internal/scan"
	"fintrack/pkg/models"
)

const engineDocumentAI = "documentai"

// MaxDocumentSizeBytes is the synchronous Document AI request limit.
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// DocumentAIConfig locates the expense parser processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us" or "eu"
	ProcessorID string

	// ProcessorVersion pins a processor version; empty uses the default.
	ProcessorVersion string

	// Timeout bounds a single ProcessDocument call. Default: 60 seconds.
	Timeout time.Duration
}

// ProcessorName is the full resource name of the configured processor.
func (c DocumentAIConfig) ProcessorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
	if c.ProcessorVersion != "" {
		name += "/processorVersions/" + c.ProcessorVersion
	}
	return name
}

// DocumentAI scans receipts with a Document AI expense parser processor.
type DocumentAI struct {
	client      *documentai.DocumentProcessorClient
	config      DocumentAIConfig
	categorizer categorize.Categorizer
	now         func() time.Time
	log         zerolog.Logger
}

// NewDocumentAI creates a Document AI engine using credentials from the environment.
// Non-US locations use the regional endpoint.
func NewDocumentAI(ctx context.Context, config DocumentAIConfig, categorizer categorize.Categorizer) (*DocumentAI, error) {
	const op = "NewDocumentAI"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapExtractionError(engineDocumentAI, op, ErrInvalidConfiguration, "project and processor id are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var extra []option.ClientOption
	if config.Location != "us" {
		extra = append(extra, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)))
	}
	opts, source := gcp.ClientOptions(extra...)

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapExtractionError(engineDocumentAI, op, err,
			fmt.Sprintf("failed to create client for location %s with %s credentials", config.Location, source))
	}

	return &DocumentAI{
		client:      client,
		config:      config,
		categorizer: categorizer,
		now:         time.Now,
		log:         logger.WithComponent("document-ai"),
	}, nil
}

// Scan implements scan.Scanner.
func (d *DocumentAI) Scan(ctx context.Context, f scan.File) (models.ScanResult, error) {
	const op = "Scan"

	if f.Size() > MaxDocumentSizeBytes {
		return nil, WrapExtractionError(engineDocumentAI, op, scan.ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", f.Size()))
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	resp, err := d.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: d.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: f.Data, MimeType: f.ContentType},
		},
	})
	if err != nil {
		return nil, d.classifyError(op, err)
	}
	if resp.GetDocument() == nil {
		return nil, WrapExtractionError(engineDocumentAI, op, ErrProcessingFailed, "no document in response")
	}

	result := mapEntities(resp.GetDocument())
	fillCategory(ctx, d.categorizer, result, resp.GetDocument().GetText())
	stamp(result, f, d.now())

	d.log.Info().
		Str("file", f.Name).
		Str("merchant", result.StringOr("merchantName", "")).
		Str("total", result.StringOr("totalAmount", "")).
		Str("confidence", result.StringOr("aiConfidence", "")).
		Msg("Document AI extraction completed")

	return result, nil
}

// classifyError maps gRPC status codes onto the package sentinels.
func (d *DocumentAI) classifyError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapExtractionError(engineDocumentAI, op, err, "processing interrupted")
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return WrapExtractionError(engineDocumentAI, op, ErrPermissionDenied, err.Error())
	case codes.ResourceExhausted:
		return WrapExtractionError(engineDocumentAI, op, ErrQuotaExceeded, err.Error())
	case codes.NotFound:
		return WrapExtractionError(engineDocumentAI, op, ErrProcessorNotFound, d.config.ProcessorName())
	case codes.InvalidArgument:
		return WrapExtractionError(engineDocumentAI, op, ErrUnsupportedDocument, err.Error())
	case codes.DeadlineExceeded:
		return WrapExtractionError(engineDocumentAI, op, context.DeadlineExceeded, "processing timeout")
	default:
		return WrapExtractionError(engineDocumentAI, op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAI) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// mapEntities converts expense parser entities into scan result keys.
func mapEntities(doc *documentaipb.Document) models.ScanResult {
	r := models.ScanResult{}
	var (
		items    []any
		confSum  float64
		confSeen int
		net      decimal.Decimal
		hasNet   bool
	)

	for _, e := range doc.GetEntities() {
		if e.GetConfidence() > 0 {
			confSum += float64(e.GetConfidence())
			confSeen++
		}
		value := strings.TrimSpace(e.GetMentionText())

		switch e.GetType() {
		case "supplier_name", "vendor_name":
			setOnce(r, "merchantName", value)
		case "total_amount", "gross_amount":
			if amount, currency, ok := entityMoney(e); ok {
				r["totalAmount"] = amount.InexactFloat64()
				r["amount"] = amount.InexactFloat64()
				if currency != "" {
					setOnce(r, "currency", currency)
				}
			}
		case "net_amount", "subtotal_amount":
			if amount, _, ok := entityMoney(e); ok {
				net, hasNet = amount, true
			}
		case "total_tax_amount", "vat_amount":
			if amount, _, ok := entityMoney(e); ok {
				r["taxAmount"] = amount.InexactFloat64()
			}
		case "receipt_date", "invoice_date", "purchase_date":
			if date, ok := entityDate(e); ok {
				setOnce(r, "transactionDate", date)
			}
		case "currency":
			if code := normalizeCurrency(value); code != "" {
				r["currency"] = code
			}
		case "invoice_id", "receipt_id", "invoice_number":
			setOnce(r, "invoiceNumber", value)
		case "payment_type", "payment_method":
			setOnce(r, "paymentMethod", value)
		case "line_item":
			if item, ok := lineItem(e); ok {
				items = append(items, item)
			}
		}
	}

	if _, ok := r["amount"]; !ok && hasNet {
		total := net
		if tax, ok := r.Float("taxAmount"); ok {
			total = total.Add(decimal.NewFromFloat(tax))
		}
		r["amount"] = total.InexactFloat64()
		r["totalAmount"] = total.InexactFloat64()
	}
	if len(items) > 0 {
		r["items"] = items
	}
	if confSeen > 0 {
		r["aiConfidence"] = percent(confSum / float64(confSeen))
	}
	if text := strings.TrimSpace(doc.GetText()); text != "" {
		r["extractedText"] = text
	}
	return r
}

func setOnce(r models.ScanResult, key, value string) {
	if value == "" {
		return
	}
	if _, ok := r[key]; !ok {
		r[key] = value
	}
}

// entityMoney prefers the normalized money value and falls back to the mention text.
func entityMoney(e *documentaipb.Document_Entity) (decimal.Decimal, string, bool) {
	if m := e.GetNormalizedValue().GetMoneyValue(); m != nil {
		amount := decimal.New(m.GetUnits(), 0).Add(decimal.New(int64(m.GetNanos()), -9))
		return amount, normalizeCurrency(m.GetCurrencyCode()), true
	}
	amount, err := parseAmount(e.GetMentionText())
	if err != nil {
		return decimal.Zero, "", false
	}
	return amount, "", true
}

func entityDate(e *documentaipb.Document_Entity) (string, bool) {
	if d := e.GetNormalizedValue().GetDateValue(); d != nil && d.GetYear() > 0 {
		return time.Date(int(d.GetYear()), time.Month(d.GetMonth()), int(d.GetDay()), 0, 0, 0, 0, time.UTC).Format("2006-01-02"), true
	}
	return parseDate(e.GetMentionText())
}

func lineItem(e *documentaipb.Document_Entity) (map[string]any, bool) {
	item := map[string]any{}
	for _, p := range e.GetProperties() {
		switch p.GetType() {
		case "line_item/description":
			item["name"] = strings.TrimSpace(p.GetMentionText())
		case "line_item/amount":
			if amount, _, ok := entityMoney(p); ok {
				item["price"] = amount.InexactFloat64()
			}
		}
	}
	if _, ok := item["name"]; !ok {
		name := strings.TrimSpace(e.GetMentionText())
		if name == "" {
			return nil, false
		}
		item["name"] = name
	}
	return item, true
}
