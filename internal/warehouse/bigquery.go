// Package warehouse exports transactions to a BigQuery table for analysis.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"

	"fintrack/internal/gcp"
	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

// Row is one exported transaction.
type Row struct {
	TransactionID   string               `bigquery:"transaction_id"`
	Type            string               `bigquery:"type"`
	Amount          *big.Rat             `bigquery:"amount"` // NUMERIC
	Category        string               `bigquery:"category"`
	Description     string               `bigquery:"description"`
	TransactionDate civil.Date           `bigquery:"transaction_date"`
	Merchant        bigquery.NullString  `bigquery:"merchant"`
	Currency        bigquery.NullString  `bigquery:"currency"`
	TaxAmount       bigquery.NullFloat64 `bigquery:"tax_amount"`
	PaymentMethod   bigquery.NullString  `bigquery:"payment_method"`
	Source          bigquery.NullString  `bigquery:"source"`
	Items           []string             `bigquery:"items"`
	ExportedTS      time.Time            `bigquery:"exported_ts"`
}

// Inserter streams rows into a table.
type Inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Warehouse writes transactions to one table.
type Warehouse struct {
	client   *bigquery.Client
	table    *bigquery.Table
	inserter Inserter
	now      func() time.Time
	log      zerolog.Logger
}

// New opens the table project.dataset.table.
func New(ctx context.Context, projectID, datasetID, tableID string) (*Warehouse, error) {
	const op = "warehouse.New"

	if projectID == "" {
		return nil, fmt.Errorf("%s: GOOGLE_CLOUD_PROJECT is required", op)
	}
	opts, _ := gcp.ClientOptions()
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: creating client: %w", op, err)
	}
	table := client.DatasetInProject(projectID, datasetID).Table(tableID)

	w := NewWithInserter(table.Inserter())
	w.client = client
	w.table = table
	return w, nil
}

// NewWithInserter creates a warehouse that writes through ins.
func NewWithInserter(ins Inserter) *Warehouse {
	return &Warehouse{inserter: ins, now: time.Now, log: logger.WithComponent("warehouse")}
}

// EnsureTable creates the table, partitioned by transaction date, when it does not exist.
func (w *Warehouse) EnsureTable(ctx context.Context) error {
	const op = "EnsureTable"

	if w.table == nil {
		return nil
	}
	_, err := w.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("%s: reading table metadata: %w", op, err)
	}

	schema, err := bigquery.InferSchema(Row{})
	if err != nil {
		return fmt.Errorf("%s: inferring schema: %w", op, err)
	}
	err = w.table.Create(ctx, &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Field: "transaction_date"},
	})
	if err != nil {
		return fmt.Errorf("%s: creating table: %w", op, err)
	}
	w.log.Info().Str("table", w.table.FullyQualifiedName()).Msg("Created warehouse table")
	return nil
}

// InsertTransactions streams ts and returns how many rows were sent. Transactions
// whose date cannot be parsed are skipped. Persisted transactions carry an insert id,
// so exporting the same records twice does not duplicate them.
func (w *Warehouse) InsertTransactions(ctx context.Context, ts []models.Transaction) (int, error) {
	const op = "InsertTransactions"

	exported := w.now().UTC()
	savers := make([]*bigquery.StructSaver, 0, len(ts))
	for _, t := range ts {
		row, err := toRow(t, exported)
		if err != nil {
			w.log.Warn().Err(err).Str("id", t.ID.String()).Msg("Skipping transaction")
			continue
		}
		saver := &bigquery.StructSaver{Struct: row}
		if t.ID != "" {
			saver.InsertID = string(t.Type) + ":" + t.ID.String()
		}
		savers = append(savers, saver)
	}
	if len(savers) == 0 {
		return 0, nil
	}

	if err := w.inserter.Put(ctx, savers); err != nil {
		return 0, fmt.Errorf("%s: inserting rows: %w", op, err)
	}
	w.log.Info().Int("rows", len(savers)).Msg("Exported transactions to BigQuery")
	return len(savers), nil
}

func toRow(t models.Transaction, exported time.Time) (*Row, error) {
	when, err := t.Time()
	if err != nil {
		return nil, err
	}

	id := t.ID.String()
	if id == "" {
		id = uuid.NewString()
	}

	row := &Row{
		TransactionID:   id,
		Type:            string(t.Type),
		Amount:          decimal.NewFromFloat(t.Amount).Round(2).Rat(),
		Category:        t.Category,
		Description:     t.Description,
		TransactionDate: civil.DateOf(when.UTC()),
		Merchant:        nullString(t.Merchant),
		Currency:        nullString(t.Currency),
		PaymentMethod:   nullString(t.PaymentMethod),
		Source:          nullString(t.Source),
		ExportedTS:      exported,
	}
	if t.TaxAmount != 0 {
		row.TaxAmount = bigquery.NullFloat64{Float64: t.TaxAmount, Valid: true}
	}
	for _, item := range t.Items {
		row.Items = append(row.Items, item.Name)
	}
	return row, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// Close closes the BigQuery client.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}
