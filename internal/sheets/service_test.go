package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	"fintrack/internal/report"
	"fintrack/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0", want: "1AbC-dEf_123"},
		{in: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", want: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms"},
		{in: "https://example.com/sheet", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := extractSpreadsheetID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("extractSpreadsheetID(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 8: "H", 12: "L", 26: "Z", 27: "AA", 52: "AZ", 53: "BA"}
	for n, want := range tests {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestRows(t *testing.T) {
	tx := models.Transaction{
		Type: models.TypeExpense, Amount: 50, Category: "Food", Description: "Lunch",
		Date: "2024-03-15", Merchant: "Cafe", Currency: "EUR", Source: "receipt_upload",
	}
	row := transactionRow(tx, "2024-03-16 10:00:00")
	if len(row) != len(TransactionHeaders) {
		t.Fatalf("transaction row has %d columns, headers %d", len(row), len(TransactionHeaders))
	}
	if row[1] != "expense" || row[5] != 50.0 || row[10] != "receipt_upload" {
		t.Errorf("transactionRow() = %v", row)
	}

	rep := &report.Report{DateRange: report.PresetCustom, Summary: models.Summary{TotalIncome: 100, TotalExpenses: 40, NetAmount: 60, TransactionCount: 3}}
	summary := summaryRow(rep)
	if len(summary) != len(SummaryHeaders) {
		t.Fatalf("summary row has %d columns, headers %d", len(summary), len(SummaryHeaders))
	}
	if summary[0] != "custom" || summary[5] != 60.0 || summary[6] != 3 {
		t.Errorf("summaryRow() = %v", summary)
	}
}

// fakeSheets serves just enough of the Sheets v4 API for an append to an existing sheet.
type fakeSheets struct {
	mu       sync.Mutex
	appended [][]interface{}
	ranges   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-1"):
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"title":"Transactions","sheetId":7}}]}`))
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		_, _ = w.Write([]byte(`{"values":[["Date","Type"]]}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		f.ranges = append(f.ranges, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func TestAppendTransactions(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := NewServiceWithOptions(context.Background(), "sheet-1",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewServiceWithOptions() error = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC) }

	ts := []models.Transaction{
		{Type: models.TypeIncome, Amount: 1000, Category: "Salary", Date: "2024-03-01"},
		{Type: models.TypeExpense, Amount: 12.5, Category: "Food", Date: "2024-03-02"},
	}
	if err := svc.AppendTransactions(context.Background(), "Transactions", ts); err != nil {
		t.Fatalf("AppendTransactions() error = %v", err)
	}

	if len(fake.appended) != 2 {
		t.Fatalf("appended %d rows, want 2", len(fake.appended))
	}
	if fake.appended[0][2] != "Salary" || fake.appended[1][11] != "2024-03-16 10:00:00" {
		t.Errorf("rows = %v", fake.appended)
	}
	if !strings.Contains(fake.ranges[0], "Transactions!A:L") {
		t.Errorf("append range = %q", fake.ranges[0])
	}
}

func TestAppendTransactions_Empty(t *testing.T) {
	svc := &Service{}
	if err := svc.AppendTransactions(context.Background(), "Transactions", nil); err != nil {
		t.Fatalf("AppendTransactions(nil) error = %v", err)
	}
}
