package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/categorize"
	"fintrack/internal/scan"
	"fintrack/pkg/models"
)

// receiptPrompt lists the keys every local engine asks for. They match the keys of
// the remote bill-scan service so the normalizer treats all engines alike.
const receiptPrompt = `Extract the following information from this receipt, invoice or bill in JSON format:
{
    "merchantName": "business/company name",
    "amount": number,
    "currency": "ISO currency code",
    "transactionDate": "YYYY-MM-DD",
    "category": "category name",
    "description": "short transaction description",
    "invoiceNumber": "invoice/receipt number",
    "taxAmount": number,
    "totalAmount": number,
    "paymentMethod": "payment method used",
    "items": [{"name": "item name", "price": number}]
}
`

func categoryInstruction() string {
	return "For the category, classify it as one of: " + strings.Join(categorize.ExpenseCategories, ", ") + ".\n"
}

const jsonInstruction = `Return ONLY valid raw JSON with these exact field names, with no Markdown and no trailing commas.
If a field cannot be found, use "" for text and 0 for numbers.`

// parseAmount reads an amount in German ("7.303,08") or English ("7,303.08") notation.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	for _, token := range []string{" ", "\u00a0", "€", "$", "£", "EUR", "USD", "GBP"} {
		cleaned = strings.ReplaceAll(cleaned, token, "")
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", s, cleaned)
	}
	return d, nil
}

// normalizeCurrency maps symbols and names to ISO codes. Unknown values that are not
// three letters are dropped.
func normalizeCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	switch normalized {
	case "":
		return ""
	case "€", "EURO", "EUROS":
		return "EUR"
	case "$", "DOLLAR", "DOLLARS", "US$":
		return "USD"
	case "£", "POUND", "POUNDS":
		return "GBP"
	case "¥", "YEN":
		return "JPY"
	case "FRANKEN", "SWISS FRANC":
		return "CHF"
	case "₹", "RS", "RUPEE", "RUPEES":
		return "INR"
	}
	if len(normalized) == 3 {
		return normalized
	}
	return ""
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// parseDate returns s as YYYY-MM-DD when it matches a known layout.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// decodeModelJSON extracts the JSON object from a model answer, tolerating code fences
// and text around it.
func decodeModelJSON(raw string) (models.ScanResult, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	var r models.ScanResult
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if r == nil {
		return nil, ErrInvalidResponse
	}
	return r, nil
}

// tidy coerces amounts, currency and date of a model answer into the shapes the
// normalizer reads.
func tidy(r models.ScanResult) models.ScanResult {
	for _, key := range []string{"amount", "taxAmount", "totalAmount"} {
		s, ok := r[key].(string)
		if !ok {
			continue
		}
		if d, err := parseAmount(s); err == nil {
			r[key] = d.InexactFloat64()
		} else {
			delete(r, key)
		}
	}
	if c, ok := r["currency"].(string); ok {
		if code := normalizeCurrency(c); code != "" {
			r["currency"] = code
		} else {
			delete(r, "currency")
		}
	}
	if d, ok := r["transactionDate"].(string); ok {
		if date, ok := parseDate(d); ok {
			r["transactionDate"] = date
		}
	}
	return r
}

// stamp adds the file metadata the remote service reports alongside its fields.
func stamp(r models.ScanResult, f scan.File, now time.Time) models.ScanResult {
	r["fileName"] = f.Name
	r["fileType"] = f.ContentType
	r["fileSize"] = f.Size()
	r["scanTimestamp"] = now.UnixMilli()
	if _, ok := r["processingStatus"]; !ok {
		r["processingStatus"] = "SUCCESS"
	}
	return r
}

// fillCategory asks c for a category when r has none.
func fillCategory(ctx context.Context, c categorize.Categorizer, r models.ScanResult, text string) {
	if c == nil {
		return
	}
	if _, ok := r.String("category"); ok {
		return
	}
	var items []string
	for _, it := range r.Items() {
		items = append(items, it.Name)
	}
	category, err := c.Categorize(ctx, categorize.Input{
		Merchant:    r.StringOr("merchantName", ""),
		Description: r.StringOr("description", ""),
		Items:       items,
		Text:        text,
	})
	if err == nil && category != "" {
		r["category"] = category
	}
}

// percent formats a 0..1 confidence the way the remote service does ("95%").
func percent(c float64) string {
	return decimal.NewFromFloat(c*100).Round(0).String() + "%"
}
