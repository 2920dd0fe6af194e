package scan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/api"
	"fintrack/pkg/models"
)

func png(name string) File {
	return File{Name: name, ContentType: "image/png", Data: []byte("\x89PNG....")}
}

func pdf(name string) File {
	return File{Name: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
}

func TestBatch_IsolatesFailures(t *testing.T) {
	calls := 0
	scanner := ScannerFunc(func(ctx context.Context, f File) (models.ScanResult, error) {
		calls++
		if f.Name == "two.png" {
			return nil, &api.Error{Op: "ScanBill", Kind: api.KindRemote, Status: 500, Message: "AI processing was interrupted"}
		}
		return models.ScanResult{"merchantName": f.Name, "amount": 10.0}, nil
	})

	results, err := NewBatch(scanner, ModeReceipt).Run(context.Background(), []File{png("one.png"), png("two.png"), png("three.png")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("scanner called %d times", calls)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if !errors.Is(results[1].Err, api.ErrServer) {
		t.Errorf("results[1].Err = %v", results[1].Err)
	}

	txs := Transactions(results)
	if len(txs) != 2 || txs[0].Merchant != "one.png" || txs[1].Merchant != "three.png" {
		t.Errorf("Transactions() = %+v", txs)
	}
}

func TestBatch_NothingExtracted(t *testing.T) {
	failing := ScannerFunc(func(ctx context.Context, f File) (models.ScanResult, error) {
		return nil, errors.New("unreachable")
	})

	tests := []struct {
		name  string
		files []File
	}{
		{name: "empty batch", files: nil},
		{name: "all fail", files: []File{png("a.png"), png("b.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := NewBatch(failing, ModeReceipt).Run(context.Background(), tt.files)
			if !errors.Is(err, ErrNothingExtracted) {
				t.Fatalf("Run() error = %v, want ErrNothingExtracted", err)
			}
			if len(results) != len(tt.files) {
				t.Errorf("got %d results for %d files", len(results), len(tt.files))
			}
		})
	}
}

func TestBatch_PDFModeDropsUnrecognized(t *testing.T) {
	scanner := ScannerFunc(func(ctx context.Context, f File) (models.ScanResult, error) {
		switch f.Name {
		case "blank.pdf":
			return models.ScanResult{"amount": 0.0, "processingStatus": "completed"}, nil
		case "merchant-only.pdf":
			return models.ScanResult{"merchantName": "Hardware Store"}, nil
		default:
			return models.ScanResult{"amount": "19.99"}, nil
		}
	})

	results, err := NewBatch(scanner, ModePDF).Run(context.Background(), []File{pdf("blank.pdf"), pdf("merchant-only.pdf"), pdf("amount-only.pdf")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !errors.Is(results[0].Err, ErrNotRecognized) {
		t.Errorf("blank.pdf err = %v", results[0].Err)
	}
	txs := Transactions(results)
	if len(txs) != 2 {
		t.Fatalf("kept %d transactions", len(txs))
	}
	if txs[0].Description != "PDF receipt scan" || txs[1].Amount != 19.99 {
		t.Errorf("Transactions() = %+v", txs)
	}
}

func TestBatch_ValidatesBeforeScanning(t *testing.T) {
	scanned := 0
	scanner := ScannerFunc(func(ctx context.Context, f File) (models.ScanResult, error) {
		scanned++
		return models.ScanResult{"amount": 1.0}, nil
	})

	files := []File{pdf("statement.pdf"), png("ok.png")}
	results, err := NewBatch(scanner, ModeReceipt).Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if scanned != 1 {
		t.Errorf("scanner called %d times, want 1", scanned)
	}
	if !errors.Is(results[0].Err, ErrUnsupportedType) {
		t.Errorf("results[0].Err = %v", results[0].Err)
	}
}

func TestBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scanner := ScannerFunc(func(ctx context.Context, f File) (models.ScanResult, error) {
		t.Fatal("scanner called after cancel")
		return nil, nil
	})
	results, err := NewBatch(scanner, ModeReceipt).Run(ctx, []File{png("a.png")})
	if !errors.Is(err, ErrNothingExtracted) || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("Run() = %v, %v", results[0].Err, err)
	}
}

func TestValidate(t *testing.T) {
	big := File{Name: "big.pdf", ContentType: "application/pdf", Data: make([]byte, MaxFileSize+1)}
	tests := []struct {
		name string
		file File
		mode Mode
		want error
	}{
		{name: "png receipt", file: png("a.png"), mode: ModeReceipt},
		{name: "webp receipt", file: File{Name: "a.webp", ContentType: "image/webp", Data: []byte{1}}, mode: ModeReceipt},
		{name: "gif receipt", file: File{Name: "a.gif", ContentType: "image/gif", Data: []byte{1}}, mode: ModeReceipt, want: ErrUnsupportedType},
		{name: "gif statement", file: File{Name: "a.gif", ContentType: "image/gif", Data: []byte{1}}, mode: ModeStatement},
		{name: "pdf in pdf mode", file: pdf("a.pdf"), mode: ModePDF},
		{name: "png in pdf mode", file: png("a.png"), mode: ModePDF, want: ErrUnsupportedType},
		{name: "text statement", file: File{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")}, mode: ModeStatement, want: ErrUnsupportedType},
		{name: "too large", file: big, mode: ModePDF, want: ErrFileTooLarge},
		{name: "empty", file: File{Name: "e.png", ContentType: "image/png"}, mode: ModeReceipt, want: ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.mode)
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.PDF")
	if err := os.WriteFile(path, []byte("%PDF-1.7 test"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if f.ContentType != "application/pdf" || f.Size() != 13 {
		t.Errorf("LoadFile() = %q, %d bytes", f.ContentType, f.Size())
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRemoteScanner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"File is empty"}`))
			return
		}
		_, _ = w.Write([]byte(`{"merchantName":"Cafe","amount":50}`))
	}))
	defer srv.Close()

	s := NewRemoteScanner(api.NewClient(srv.URL))
	results, err := NewBatch(s, ModeReceipt).Run(context.Background(), []File{png("cafe.png")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	tx := results[0].Transaction
	if tx.Merchant != "Cafe" || tx.Amount != 50 || tx.TotalAmount != 50 {
		t.Errorf("transaction = %+v", tx)
	}
}
