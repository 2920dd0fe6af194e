package store

import (
	"fintrack/internal/api"
	"fintrack/pkg/models"
)

// ToRemoteIncome maps a transaction onto the income wire shape. Category becomes source.
func ToRemoteIncome(t models.Transaction) api.Income {
	return api.Income{ID: t.ID, Amount: t.Amount, Source: t.Category, Description: t.Description, Date: t.Date}
}

// FromRemoteIncome maps an income record back to a transaction. Source becomes category.
func FromRemoteIncome(in api.Income) models.Transaction {
	return models.Transaction{
		ID:          in.ID,
		Type:        models.TypeIncome,
		Amount:      in.Amount,
		Category:    in.Source,
		Description: in.Description,
		Date:        in.Date,
	}
}

// ToRemoteExpense maps a transaction onto the expense wire shape.
func ToRemoteExpense(t models.Transaction) api.Expense {
	return api.Expense{ID: t.ID, Amount: t.Amount, Category: t.Category, Description: t.Description, Date: t.Date}
}

// FromRemoteExpense maps an expense record back to a transaction.
func FromRemoteExpense(e api.Expense) models.Transaction {
	return models.Transaction{
		ID:          e.ID,
		Type:        models.TypeExpense,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
	}
}
