package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TransactionType distinguishes income from expenses
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// ParseTransactionType accepts "income"/"expense" in any case, plus the upper-case
// "INCOME"/"EXPENSE" values returned by the /transactions endpoints.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return TypeIncome, nil
	case "expense":
		return TypeExpense, nil
	default:
		return "", NewValidationError("type", s, "must be 'income' or 'expense'")
	}
}

// UnmarshalJSON lower-cases the wire value so "EXPENSE" and "expense" compare equal.
// Unknown values are kept as-is and rejected later by Validate.
func (t *TransactionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = TransactionType(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Item is a single receipt line
type Item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// UnmarshalJSON accepts either an object or a bare item name.
func (i *Item) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*i = Item{Name: name}
		return nil
	}
	type plain Item
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Item(p)
	return nil
}

type Transaction struct {
	// Core fields shared by every origin
	ID          ID              `json:"id,omitempty"`    // Assigned by the remote API; empty until persisted
	Type        TransactionType `json:"type"`            // income or expense
	Amount      float64         `json:"amount"`          // Non-negative magnitude
	Category    string          `json:"category"`        // Expense category, or income source
	Description string          `json:"description"`     // Free text
	Date        string          `json:"date"`            // ISO-8601 date or date-time
	Notes       string          `json:"notes,omitempty"` // Optional

	// Receipt-derived fields, populated only for scanned transactions
	Merchant      string         `json:"merchant,omitempty"`
	Items         []Item         `json:"items"`
	ReceiptNumber string         `json:"receiptNumber,omitempty"`
	TaxAmount     float64        `json:"taxAmount"`
	Currency      string         `json:"currency,omitempty"`
	TotalAmount   float64        `json:"totalAmount"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	AIConfidence  string         `json:"aiConfidence,omitempty"`
	RawData       map[string]any `json:"rawData,omitempty"` // Unmodified scan payload
	Source        string         `json:"source,omitempty"`  // Promotion origin, e.g. "receipt_upload"
}

// dateLayouts lists the accepted encodings of Transaction.Date, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or date-time. Values without an offset are read as UTC,
// so a bare calendar date means midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn is ParseDate with values that carry no offset read in loc.
func ParseDateIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Time returns the parsed transaction date.
func (t Transaction) Time() (time.Time, error) {
	return ParseDate(t.Date)
}

// TimeIn returns the transaction date with offset-less values read in loc.
func (t Transaction) TimeIn(loc *time.Location) (time.Time, error) {
	return ParseDateIn(t.Date, loc)
}

// IsIncome reports whether the transaction is an income.
func (t Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// Validate checks the fields required to create or update a transaction.
func (t Transaction) Validate() error {
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return NewValidationError("type", t.Type, "must be 'income' or 'expense'")
	}
	if t.Amount <= 0 {
		return NewValidationError("amount", t.Amount, "must be greater than zero")
	}
	if strings.TrimSpace(t.Category) == "" {
		return NewValidationError("category", t.Category, "is required")
	}
	if strings.TrimSpace(t.Date) == "" {
		return NewValidationError("date", t.Date, "is required")
	}
	if _, err := ParseDate(t.Date); err != nil {
		return NewValidationError("date", t.Date, "must be an ISO-8601 date")
	}
	return nil
}

// Summary is derived from a transaction collection and never stored
type Summary struct {
	TotalIncome      float64 `json:"totalIncome"`
	TotalExpenses    float64 `json:"totalExpenses"`
	NetAmount        float64 `json:"netAmount"`
	TransactionCount int     `json:"transactionCount"`
}
