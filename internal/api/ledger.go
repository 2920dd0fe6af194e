package api

import (
	"context"
	"net/http"

	"fintrack/pkg/models"
)

// Income is the wire shape of /incomes records. The grouping key is called source.
type Income struct {
	ID          models.ID `json:"id,omitempty"`
	Amount      float64   `json:"amount"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
}

// Expense is the wire shape of /expenses records.
type Expense struct {
	ID          models.ID `json:"id,omitempty"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
}

// ledger implements the identical CRUD surface of /incomes and /expenses.
type ledger[T any] struct {
	c        *Client
	resource string // "/incomes" or "/expenses"
	name     string // "Income" or "Expense", used in op names
}

func (l ledger[T]) listPage(ctx context.Context, q PageQuery) (*models.Page[T], error) {
	var page models.Page[T]
	req := request{op: "List" + l.name + "sPage", method: http.MethodGet, path: l.resource + "/paged", query: q.Values()}
	if err := l.c.do(ctx, req, &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []T{}
	}
	return &page, nil
}

func (l ledger[T]) list(ctx context.Context) ([]T, error) {
	var out []T
	req := request{op: "List" + l.name + "s", method: http.MethodGet, path: l.resource}
	if err := l.c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (l ledger[T]) get(ctx context.Context, id string) (*T, error) {
	var out T
	req := request{op: "Get" + l.name, method: http.MethodGet, path: l.resource + pathID(id)}
	if err := l.c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (l ledger[T]) create(ctx context.Context, in T) (*T, error) {
	req, err := jsonRequest("Create"+l.name, http.MethodPost, l.resource, in)
	if err != nil {
		return nil, err
	}
	var out T
	if err := l.c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (l ledger[T]) update(ctx context.Context, id string, in T) (*T, error) {
	req, err := jsonRequest("Update"+l.name, http.MethodPut, l.resource+pathID(id), in)
	if err != nil {
		return nil, err
	}
	var out T
	if err := l.c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (l ledger[T]) remove(ctx context.Context, id string) error {
	req := request{op: "Delete" + l.name, method: http.MethodDelete, path: l.resource + pathID(id)}
	return l.c.do(ctx, req, nil)
}

func (l ledger[T]) summary(ctx context.Context, startDate, endDate string) (map[string]float64, error) {
	out := map[string]float64{}
	req := request{op: l.name + "Summary", method: http.MethodGet, path: l.resource + "/summary", query: dateRangeValues(startDate, endDate)}
	if err := l.c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) incomes() ledger[Income] {
	return ledger[Income]{c: c, resource: "/incomes", name: "Income"}
}

func (c *Client) expenses() ledger[Expense] {
	return ledger[Expense]{c: c, resource: "/expenses", name: "Expense"}
}

// ListIncomesPage fetches one page of incomes.
func (c *Client) ListIncomesPage(ctx context.Context, q PageQuery) (*models.Page[Income], error) {
	return c.incomes().listPage(ctx, q)
}

// ListIncomes fetches every income without pagination.
func (c *Client) ListIncomes(ctx context.Context) ([]Income, error) {
	return c.incomes().list(ctx)
}

// GetIncome fetches a single income.
func (c *Client) GetIncome(ctx context.Context, id string) (*Income, error) {
	return c.incomes().get(ctx, id)
}

// CreateIncome stores a new income and returns the persisted record.
func (c *Client) CreateIncome(ctx context.Context, in Income) (*Income, error) {
	return c.incomes().create(ctx, in)
}

// UpdateIncome replaces an income and returns the persisted record.
func (c *Client) UpdateIncome(ctx context.Context, id string, in Income) (*Income, error) {
	return c.incomes().update(ctx, id, in)
}

// DeleteIncome removes an income.
func (c *Client) DeleteIncome(ctx context.Context, id string) error {
	return c.incomes().remove(ctx, id)
}

// IncomeSummary returns totals per income source.
func (c *Client) IncomeSummary(ctx context.Context, startDate, endDate string) (map[string]float64, error) {
	return c.incomes().summary(ctx, startDate, endDate)
}

// ListExpensesPage fetches one page of expenses.
func (c *Client) ListExpensesPage(ctx context.Context, q PageQuery) (*models.Page[Expense], error) {
	return c.expenses().listPage(ctx, q)
}

// ListExpenses fetches every expense without pagination.
func (c *Client) ListExpenses(ctx context.Context) ([]Expense, error) {
	return c.expenses().list(ctx)
}

// GetExpense fetches a single expense.
func (c *Client) GetExpense(ctx context.Context, id string) (*Expense, error) {
	return c.expenses().get(ctx, id)
}

// CreateExpense stores a new expense and returns the persisted record.
func (c *Client) CreateExpense(ctx context.Context, in Expense) (*Expense, error) {
	return c.expenses().create(ctx, in)
}

// UpdateExpense replaces an expense and returns the persisted record.
func (c *Client) UpdateExpense(ctx context.Context, id string, in Expense) (*Expense, error) {
	return c.expenses().update(ctx, id, in)
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.expenses().remove(ctx, id)
}

// ExpenseSummary returns totals per expense category.
func (c *Client) ExpenseSummary(ctx context.Context, startDate, endDate string) (map[string]float64, error) {
	return c.expenses().summary(ctx, startDate, endDate)
}
