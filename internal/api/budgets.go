package api

import (
	"context"
	"net/http"

	"fintrack/pkg/models"
)

// ListBudgets fetches every budget of the current user.
func (c *Client) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	out := []models.Budget{}
	if err := c.do(ctx, request{op: "ListBudgets", method: http.MethodGet, path: "/budgets"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBudget stores a new budget.
func (c *Client) CreateBudget(ctx context.Context, b models.Budget) (*models.Budget, error) {
	req, err := jsonRequest("CreateBudget", http.MethodPost, "/budgets", b)
	if err != nil {
		return nil, err
	}
	var out models.Budget
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBudget replaces a budget.
func (c *Client) UpdateBudget(ctx context.Context, id string, b models.Budget) (*models.Budget, error) {
	req, err := jsonRequest("UpdateBudget", http.MethodPut, "/budgets"+pathID(id), b)
	if err != nil {
		return nil, err
	}
	var out models.Budget
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBudget removes a budget.
func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "DeleteBudget", method: http.MethodDelete, path: "/budgets" + pathID(id)}, nil)
}

// BudgetSummary returns the server's budget overview. Its shape is not fixed.
func (c *Client) BudgetSummary(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, request{op: "BudgetSummary", method: http.MethodGet, path: "/budgets/summary"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BudgetsByCategory fetches the budgets defined for one category.
func (c *Client) BudgetsByCategory(ctx context.Context, category string) ([]models.Budget, error) {
	out := []models.Budget{}
	req := request{op: "BudgetsByCategory", method: http.MethodGet, path: "/budgets/category" + pathID(category)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories fetches the remote category list.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	if err := c.do(ctx, request{op: "ListCategories", method: http.MethodGet, path: "/categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
