// Package sheets appends transactions and report summaries to a Google Sheet.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"fintrack/internal/logger"
	"fintrack/internal/report"
	"fintrack/pkg/models"
)

// TransactionHeaders are the columns of a transaction sheet.
var TransactionHeaders = []interface{}{
	"Date", "Type", "Category", "Description", "Merchant", "Amount",
	"Tax", "Currency", "Payment Method", "Receipt No", "Source", "Exported",
}

// SummaryHeaders are the columns of the summary sheet.
var SummaryHeaders = []interface{}{
	"Range", "Start", "End", "Total Income", "Total Expenses", "Net", "Transactions", "Generated",
}

// Service handles Google Sheets operations.
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	now           func() time.Time
	log           zerolog.Logger
}

// NewService creates a Sheets client for the spreadsheet at sheetURL using the service
// account from GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
func NewService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	jwtConfig, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	return NewServiceWithOptions(ctx, spreadsheetID, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

// NewServiceWithOptions creates a Sheets client with explicit client options.
func NewServiceWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Service, error) {
	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewServiceWithOptions: failed to create sheets service: %w", err)
	}
	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		now:           time.Now,
		log:           logger.WithComponent("sheets"),
	}, nil
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// extractSpreadsheetID pulls the ID out of a Google Sheets URL. A bare ID is accepted too.
func extractSpreadsheetID(url string) (string, error) {
	if matches := spreadsheetIDPattern.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}
	if regexp.MustCompile(`^[a-zA-Z0-9-_]{20,}$`).MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("invalid Google Sheets URL format")
}

// AppendTransactions appends one row per transaction to sheetName.
func (s *Service) AppendTransactions(ctx context.Context, sheetName string, ts []models.Transaction) error {
	const op = "AppendTransactions"

	if len(ts) == 0 {
		return nil
	}
	if err := s.ensureSheetWithHeaders(ctx, sheetName, TransactionHeaders); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	exported := s.now().Format("2006-01-02 15:04:05")
	values := make([][]interface{}, 0, len(ts))
	for _, t := range ts {
		values = append(values, transactionRow(t, exported))
	}

	if err := s.append(ctx, sheetName, len(TransactionHeaders), values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().Str("sheet", sheetName).Int("rows_written", len(values)).Msg("Appended transactions to Google Sheet")
	return nil
}

// AppendReport appends the report's transactions to sheetName and one summary row to
// "<sheetName> Summary".
func (s *Service) AppendReport(ctx context.Context, sheetName string, rep *report.Report) error {
	const op = "AppendReport"

	if err := s.AppendTransactions(ctx, sheetName, rep.Transactions); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	summarySheet := sheetName + " Summary"
	if err := s.ensureSheetWithHeaders(ctx, summarySheet, SummaryHeaders); err != nil {
		return fmt.Errorf("%s: failed to ensure summary sheet exists: %w", op, err)
	}
	if err := s.append(ctx, summarySheet, len(SummaryHeaders), [][]interface{}{summaryRow(rep)}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) append(ctx context.Context, sheetName string, columns int, values [][]interface{}) error {
	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, columnLetter(columns)),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append values to sheet %s: %w", sheetName, err)
	}
	return nil
}

func transactionRow(t models.Transaction, exported string) []interface{} {
	return []interface{}{
		t.Date,
		string(t.Type),
		t.Category,
		t.Description,
		t.Merchant,
		t.Amount,
		t.TaxAmount,
		t.Currency,
		t.PaymentMethod,
		t.ReceiptNumber,
		t.Source,
		exported,
	}
}

func summaryRow(rep *report.Report) []interface{} {
	return []interface{}{
		string(rep.DateRange),
		rep.StartDate,
		rep.EndDate,
		rep.Summary.TotalIncome,
		rep.Summary.TotalExpenses,
		rep.Summary.NetAmount,
		rep.Summary.TransactionCount,
		rep.GeneratedAt,
	}
}

// columnLetter returns the A1 column name of the n-th column (1-based).
func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// ensureSheetWithHeaders creates sheetName if missing and writes headers to an empty first row.
func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string, headers []interface{}) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")
		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, columnLetter(len(headers)))
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")
	_, err = s.sheetsService.Spreadsheets.Values.Update(s.spreadsheetID, headerRange, &sheets.ValueRange{
		Values: [][]interface{}{headers},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID, int64(len(headers))); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and auto-sizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID, columns int64) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("formatHeaders: %w", err)
	}
	return nil
}
