package scan

import (
	"fmt"
	"time"

	"fintrack/pkg/models"
)

// Mode selects how a batch is labeled and which files it accepts.
type Mode string

const (
	ModeReceipt   Mode = "receipt"
	ModePDF       Mode = "pdf"
	ModeStatement Mode = "statement"
)

// ParseMode accepts receipt, pdf or statement.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeReceipt, ModePDF, ModeStatement:
		return m, nil
	}
	return "", models.NewValidationError("mode", s, "must be receipt, pdf or statement")
}

// DefaultDescription is used when the scanner returns no description.
func (m Mode) DefaultDescription() string {
	switch m {
	case ModePDF:
		return "PDF receipt scan"
	case ModeStatement:
		return "Statement scan"
	default:
		return "Receipt scan"
	}
}

// Source is the origin recorded on promoted transactions. Statements carry none.
func (m Mode) Source() string {
	switch m {
	case ModeReceipt:
		return "receipt_upload"
	case ModePDF:
		return "pdf_receipt_upload"
	default:
		return ""
	}
}

// Context supplies the defaults that depend on where a scan result came from.
type Context struct {
	DefaultDescription string
	DefaultType        models.TransactionType

	// Now stamps transactions whose date is missing. Defaults to time.Now.
	Now func() time.Time
}

// ContextFor returns the normalization context of a scan mode.
func ContextFor(m Mode) Context {
	return Context{DefaultDescription: m.DefaultDescription(), DefaultType: models.TypeExpense}
}

// isoMillis matches the timestamps the web client produced for undated receipts.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Normalize maps a scan result onto a Transaction. It never fails: every missing,
// empty or zero field gets its default. Scanned transactions are always expenses,
// whatever DefaultType says.
func Normalize(r models.ScanResult, c Context) models.Transaction {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if r == nil {
		r = models.ScanResult{}
	}

	amount, _ := r.Float("amount")
	tax, _ := r.Float("taxAmount")
	total, ok := r.Float("totalAmount")
	if !ok {
		total = amount
	}

	description := c.DefaultDescription
	if description == "" {
		description = ModeReceipt.DefaultDescription()
	}

	return models.Transaction{
		Type:          models.TypeExpense,
		Amount:        amount,
		Merchant:      r.StringOr("merchantName", "Unknown"),
		Date:          r.StringOr("transactionDate", now().UTC().Format(isoMillis)),
		Items:         r.Items(),
		Category:      r.StringOr("category", "general"),
		Description:   r.StringOr("description", description),
		ReceiptNumber: r.StringOr("invoiceNumber", "N/A"),
		TaxAmount:     tax,
		Currency:      r.StringOr("currency", "USD"),
		TotalAmount:   total,
		PaymentMethod: r.StringOr("paymentMethod", "Unknown"),
		AIConfidence:  r.StringOr("aiConfidence", "Unknown"),
		RawData:       r.Clone(),
	}
}

// Usable reports whether a pdf-mode result carries enough data to keep.
func Usable(r models.ScanResult) bool {
	if _, ok := r.String("merchantName"); ok {
		return true
	}
	amount, _ := r.Float("amount")
	return amount > 0
}

// Promote prepares a scanned transaction for POST /transactions/save. The raw payload
// stays local.
func Promote(t models.Transaction, m Mode) models.Transaction {
	t.ID = ""
	t.RawData = nil
	t.Source = m.Source()
	return t
}

// PromoteAll promotes every transaction of a batch.
func PromoteAll(ts []models.Transaction, m Mode) []models.Transaction {
	out := make([]models.Transaction, len(ts))
	for i, t := range ts {
		out[i] = Promote(t, m)
	}
	return out
}

// Describe renders a one-line summary of a scanned transaction.
func Describe(t models.Transaction) string {
	return fmt.Sprintf("%s  %s  %.2f %s  [%s]", t.Date, t.Merchant, t.Amount, t.Currency, t.Category)
}
