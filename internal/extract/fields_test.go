package extract

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/scan"
	"fintrack/pkg/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{"12,50", "12.5"},
		{"7.303,08", "7303.08"},
		{"7,303.08", "7303.08"},
		{"1,234", "1234"},
		{"€ 19,99", "19.99"},
		{"$1,000.00", "1000"},
		{"42 EUR", "42"},
		{"-5,00", "-5"},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if err != nil {
			t.Errorf("parseAmount(%q) error = %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := parseAmount("twelve"); err == nil {
		t.Error("parseAmount(twelve) expected error")
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := map[string]string{
		"€":     "EUR",
		"euro":  "EUR",
		" usd ": "USD",
		"US$":   "USD",
		"£":     "GBP",
		"chf":   "CHF",
		"":      "",
		"money": "",
	}
	for in, want := range tests {
		if got := normalizeCurrency(in); got != want {
			t.Errorf("normalizeCurrency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-15", "2024-03-15", true},
		{"15.03.2024", "2024-03-15", true},
		{"03/15/2024", "2024-03-15", true},
		{"Mar 15, 2024", "2024-03-15", true},
		{"2024-03-15T10:30:00Z", "2024-03-15", true},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseDate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: `{"merchantName":"Cafe"}`, want: "Cafe"},
		{name: "fenced", raw: "```json\n{\"merchantName\":\"Cafe\"}\n```", want: "Cafe"},
		{name: "chatty", raw: "Here you go: {\"merchantName\": \"Cafe\"} Hope that helps", want: "Cafe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := decodeModelJSON(tt.raw)
			if err != nil {
				t.Fatalf("decodeModelJSON() error = %v", err)
			}
			if got := r.StringOr("merchantName", ""); got != tt.want {
				t.Errorf("merchantName = %q, want %q", got, tt.want)
			}
		})
	}

	for _, raw := range []string{"", "null", "not json", "[1,2]"} {
		if _, err := decodeModelJSON(raw); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("decodeModelJSON(%q) error = %v, want ErrInvalidResponse", raw, err)
		}
	}
}

func TestTidy(t *testing.T) {
	r := tidy(models.ScanResult{
		"amount":          "12,50",
		"totalAmount":     "n/a",
		"taxAmount":       1.5,
		"currency":        "€",
		"transactionDate": "15.03.2024",
	})

	if amount, _ := r.Float("amount"); amount != 12.5 {
		t.Errorf("amount = %v, want 12.5", r["amount"])
	}
	if _, ok := r["totalAmount"]; ok {
		t.Errorf("unparseable totalAmount kept: %v", r["totalAmount"])
	}
	if tax, _ := r.Float("taxAmount"); tax != 1.5 {
		t.Errorf("taxAmount = %v", r["taxAmount"])
	}
	if r["currency"] != "EUR" {
		t.Errorf("currency = %v", r["currency"])
	}
	if r["transactionDate"] != "2024-03-15" {
		t.Errorf("transactionDate = %v", r["transactionDate"])
	}
}

func TestStamp(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	f := scan.File{Name: "r.png", ContentType: "image/png", Data: []byte("png")}

	r := stamp(models.ScanResult{}, f, now)
	if r["fileName"] != "r.png" || r["fileType"] != "image/png" || r["fileSize"] != int64(3) {
		t.Errorf("file metadata = %v", r)
	}
	if r["scanTimestamp"] != now.UnixMilli() {
		t.Errorf("scanTimestamp = %v", r["scanTimestamp"])
	}
	if r["processingStatus"] != "SUCCESS" {
		t.Errorf("processingStatus = %v", r["processingStatus"])
	}
}

func TestPercent(t *testing.T) {
	if got := percent(0.954); got != "95%" {
		t.Errorf("percent(0.954) = %q", got)
	}
	if got := percent(1); got != "100%" {
		t.Errorf("percent(1) = %q", got)
	}
}
