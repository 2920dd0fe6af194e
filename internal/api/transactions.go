package api

import (
	"context"
	"net/http"

	"fintrack/pkg/models"
)

// TransactionSummary is the payload of GET /transactions/summary.
type TransactionSummary struct {
	TotalIncome       float64            `json:"totalIncome"`
	TotalExpense      float64            `json:"totalExpense"`
	NetBalance        float64            `json:"netBalance"`
	IncomeBySource    map[string]float64 `json:"incomeBySource"`
	ExpenseByCategory map[string]float64 `json:"expenseByCategory"`
}

// ListTransactions fetches one page of the combined transaction view.
func (c *Client) ListTransactions(ctx context.Context, q PageQuery) (*models.Page[models.Transaction], error) {
	var page models.Page[models.Transaction]
	req := request{op: "ListTransactions", method: http.MethodGet, path: "/transactions", query: q.Values()}
	if err := c.do(ctx, req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTransactionSummary fetches server-side totals for an optional date range.
func (c *Client) GetTransactionSummary(ctx context.Context, startDate, endDate string) (*TransactionSummary, error) {
	var out TransactionSummary
	req := request{op: "GetTransactionSummary", method: http.MethodGet, path: "/transactions/summary", query: dateRangeValues(startDate, endDate)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction fetches a single transaction.
func (c *Client) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var out models.Transaction
	req := request{op: "GetTransaction", method: http.MethodGet, path: "/transactions" + pathID(id)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTransaction replaces a transaction in the combined view.
func (c *Client) UpdateTransaction(ctx context.Context, id string, t models.Transaction) (*models.Transaction, error) {
	req, err := jsonRequest("UpdateTransaction", http.MethodPut, "/transactions"+pathID(id), t)
	if err != nil {
		return nil, err
	}
	var out models.Transaction
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTransaction removes a transaction from the combined view.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "DeleteTransaction", method: http.MethodDelete, path: "/transactions" + pathID(id)}, nil)
}

// SaveTransactions persists a batch, typically transactions promoted from receipt scans.
// The server answers with a plain-text confirmation, which is returned as-is.
func (c *Client) SaveTransactions(ctx context.Context, ts []models.Transaction) (string, error) {
	req, err := jsonRequest("SaveTransactions", http.MethodPost, "/transactions/save", ts)
	if err != nil {
		return "", err
	}
	var confirmation string
	if err := c.do(ctx, req, &confirmation); err != nil {
		return "", err
	}
	return confirmation, nil
}
