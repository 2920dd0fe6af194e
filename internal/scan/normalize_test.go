package scan

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"fintrack/pkg/models"
)

var scanNow = func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }

func TestNormalize_CafeReceipt(t *testing.T) {
	r := models.ScanResult{"amount": 50.0, "merchantName": "Cafe"}
	got := Normalize(r, Context{DefaultDescription: "Receipt scan", DefaultType: models.TypeExpense, Now: scanNow})

	want := models.Transaction{
		Type:          models.TypeExpense,
		Amount:        50,
		Merchant:      "Cafe",
		Date:          "2024-03-15T09:30:00.000Z",
		Items:         []models.Item{},
		Category:      "general",
		Description:   "Receipt scan",
		ReceiptNumber: "N/A",
		TaxAmount:     0,
		Currency:      "USD",
		TotalAmount:   50,
		PaymentMethod: "Unknown",
		AIConfidence:  "Unknown",
		RawData:       map[string]any{"amount": 50.0, "merchantName": "Cafe"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestNormalize_IsTotal(t *testing.T) {
	inputs := []models.ScanResult{
		nil,
		{},
		{"amount": nil, "merchantName": nil, "items": nil},
		{"amount": "not a number", "items": "Latte", "aiConfidence": []any{1}},
		{"amount": map[string]any{}, "transactionDate": 12},
	}
	for i, r := range inputs {
		got := Normalize(r, Context{DefaultDescription: "Statement scan", Now: scanNow})
		if got.Type != models.TypeExpense {
			t.Errorf("#%d: Type = %q", i, got.Type)
		}
		if got.Items == nil {
			t.Errorf("#%d: Items is nil", i)
		}
		if got.Description != "Statement scan" || got.Merchant == "" || got.Date == "" {
			t.Errorf("#%d: missing default in %+v", i, got)
		}
		if got.RawData == nil {
			t.Errorf("#%d: RawData is nil", i)
		}
	}
}

func TestNormalize_FalsyAndCoercion(t *testing.T) {
	tests := []struct {
		name  string
		in    models.ScanResult
		check func(models.Transaction) bool
	}{
		{
			name:  "empty merchant falls back",
			in:    models.ScanResult{"merchantName": "   "},
			check: func(tx models.Transaction) bool { return tx.Merchant == "Unknown" },
		},
		{
			name:  "numeric string amount",
			in:    models.ScanResult{"amount": "12.50"},
			check: func(tx models.Transaction) bool { return tx.Amount == 12.5 && tx.TotalAmount == 12.5 },
		},
		{
			name:  "zero total falls back to amount",
			in:    models.ScanResult{"amount": 8.0, "totalAmount": 0.0},
			check: func(tx models.Transaction) bool { return tx.TotalAmount == 8 },
		},
		{
			name:  "total kept when present",
			in:    models.ScanResult{"amount": 8.0, "totalAmount": 9.6, "taxAmount": 1.6},
			check: func(tx models.Transaction) bool { return tx.TotalAmount == 9.6 && tx.TaxAmount == 1.6 },
		},
		{
			name:  "numeric confidence rendered as string",
			in:    models.ScanResult{"aiConfidence": 0.92},
			check: func(tx models.Transaction) bool { return tx.AIConfidence == "0.92" },
		},
		{
			name:  "zero confidence is absent",
			in:    models.ScanResult{"aiConfidence": 0.0},
			check: func(tx models.Transaction) bool { return tx.AIConfidence == "Unknown" },
		},
		{
			name: "string and object items",
			in:   models.ScanResult{"items": []any{"Latte", map[string]any{"name": "Bagel", "price": 3.5}, 7.0}},
			check: func(tx models.Transaction) bool {
				return reflect.DeepEqual(tx.Items, []models.Item{{Name: "Latte"}, {Name: "Bagel", Price: 3.5}})
			},
		},
		{
			name: "scanner fields win over defaults",
			in:   models.ScanResult{"category": "Food", "description": "Lunch", "invoiceNumber": "A-17", "currency": "EUR", "paymentMethod": "Card", "transactionDate": "2024-02-02"},
			check: func(tx models.Transaction) bool {
				return tx.Category == "Food" && tx.Description == "Lunch" && tx.ReceiptNumber == "A-17" &&
					tx.Currency == "EUR" && tx.PaymentMethod == "Card" && tx.Date == "2024-02-02"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, Context{DefaultDescription: "Receipt scan", Now: scanNow})
			if !tt.check(got) {
				t.Errorf("Normalize(%v) = %+v", tt.in, got)
			}
		})
	}
}

func TestNormalize_RawDataIsACopy(t *testing.T) {
	r := models.ScanResult{"merchantName": "Cafe"}
	tx := Normalize(r, Context{Now: scanNow})
	r["merchantName"] = "Changed"
	if tx.RawData["merchantName"] != "Cafe" {
		t.Errorf("RawData changed with the scan result: %v", tx.RawData)
	}
}

func TestPromote(t *testing.T) {
	tx := Normalize(models.ScanResult{"amount": 4.0}, ContextFor(ModePDF))
	tx.ID = "3"

	got := Promote(tx, ModePDF)
	if got.Source != "pdf_receipt_upload" || got.RawData != nil || got.ID != "" {
		t.Errorf("Promote() = %+v", got)
	}
	if tx.RawData == nil {
		t.Error("Promote modified its input")
	}
	if s := Promote(tx, ModeStatement).Source; s != "" {
		t.Errorf("statement source = %q", s)
	}
}

func TestModeDefaults(t *testing.T) {
	tests := []struct {
		mode        Mode
		description string
		source      string
	}{
		{ModeReceipt, "Receipt scan", "receipt_upload"},
		{ModePDF, "PDF receipt scan", "pdf_receipt_upload"},
		{ModeStatement, "Statement scan", ""},
	}
	for _, tt := range tests {
		if got := tt.mode.DefaultDescription(); got != tt.description {
			t.Errorf("%s.DefaultDescription() = %q", tt.mode, got)
		}
		if got := tt.mode.Source(); got != tt.source {
			t.Errorf("%s.Source() = %q", tt.mode, got)
		}
	}
	if _, err := ParseMode("fax"); err == nil {
		t.Error("ParseMode(fax) should fail")
	}
}

func TestPromote_SendsEveryDefault(t *testing.T) {
	tx := Normalize(models.ScanResult{"amount": 50.0, "merchantName": "Cafe"}, Context{Now: scanNow})
	data, err := json.Marshal(Promote(tx, ModeReceipt))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := map[string]any{
		"merchant":      "Cafe",
		"category":      "general",
		"receiptNumber": "N/A",
		"taxAmount":     0.0,
		"currency":      "USD",
		"totalAmount":   50.0,
		"paymentMethod": "Unknown",
		"aiConfidence":  "Unknown",
		"items":         []any{},
		"source":        "receipt_upload",
	}
	for key, v := range want {
		got, ok := wire[key]
		if !ok {
			t.Errorf("%s missing from %s", key, data)
			continue
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("%s = %#v, want %#v", key, got, v)
		}
	}
	if _, ok := wire["rawData"]; ok {
		t.Errorf("rawData sent: %s", data)
	}
}
