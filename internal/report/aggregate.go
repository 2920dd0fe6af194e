// Package report derives totals and groupings from a transaction collection and
// renders them for export.
//
// Every function here is pure: inputs are never modified, and the same input always
// gives the same output. Grouped sums are computed with decimal arithmetic and rounded
// half away from zero to two places.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/pkg/models"
)

// UncategorizedLabel groups expenses without a category.
const UncategorizedLabel = "Uncategorized"

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// DateTotal is the expense total of one UTC calendar day.
type DateTotal struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Amount float64 `json:"amount"`
}

// MonthTotal holds the income and expense totals of one UTC calendar month.
type MonthTotal struct {
	Month    string  `json:"month"` // YYYY-MM
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// ByCategory sums expenses per category, sorted by category name.
func ByCategory(ts []models.Transaction) []CategoryTotal {
	sums := map[string]decimal.Decimal{}
	for _, t := range ts {
		if !t.IsExpense() {
			continue
		}
		category := strings.TrimSpace(t.Category)
		if category == "" {
			category = UncategorizedLabel
		}
		sums[category] = sums[category].Add(decimal.NewFromFloat(t.Amount))
	}

	out := make([]CategoryTotal, 0, len(sums))
	for category, sum := range sums {
		out = append(out, CategoryTotal{Category: category, Amount: round2(sum)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ByDate sums expenses per UTC day in ascending order. Undated expenses are skipped.
func ByDate(ts []models.Transaction) []DateTotal {
	sums := map[string]decimal.Decimal{}
	for _, t := range ts {
		if !t.IsExpense() {
			continue
		}
		when, err := t.Time()
		if err != nil {
			continue
		}
		day := when.UTC().Format("2006-01-02")
		sums[day] = sums[day].Add(decimal.NewFromFloat(t.Amount))
	}

	out := make([]DateTotal, 0, len(sums))
	for day, sum := range sums {
		out = append(out, DateTotal{Date: day, Amount: round2(sum)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ByMonth sums income and expenses per UTC month in ascending order. Every transaction
// with a parseable date counts.
func ByMonth(ts []models.Transaction) []MonthTotal {
	type pair struct{ income, expenses decimal.Decimal }
	sums := map[string]*pair{}
	for _, t := range ts {
		when, err := t.Time()
		if err != nil {
			continue
		}
		month := when.UTC().Format("2006-01")
		p, ok := sums[month]
		if !ok {
			p = &pair{}
			sums[month] = p
		}
		amount := decimal.NewFromFloat(t.Amount)
		switch {
		case t.IsIncome():
			p.income = p.income.Add(amount)
		case t.IsExpense():
			p.expenses = p.expenses.Add(amount)
		}
	}

	out := make([]MonthTotal, 0, len(sums))
	for month, p := range sums {
		out = append(out, MonthTotal{Month: month, Income: round2(p.income), Expenses: round2(p.expenses)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Summarize totals a collection. Amounts are plain float sums without rounding, so
// NetAmount is exactly TotalIncome - TotalExpenses.
func Summarize(ts []models.Transaction) models.Summary {
	var s models.Summary
	for _, t := range ts {
		switch {
		case t.IsIncome():
			s.TotalIncome += t.Amount
		case t.IsExpense():
			s.TotalExpenses += t.Amount
		}
	}
	s.NetAmount = s.TotalIncome - s.TotalExpenses
	s.TransactionCount = len(ts)
	return s
}

// SummaryFromTotals builds a summary from per-key server totals, as returned by the
// income and expense summary endpoints. count is carried over from a local summary.
func SummaryFromTotals(incomeBySource, expenseByCategory map[string]float64, count int) models.Summary {
	var s models.Summary
	for _, v := range incomeBySource {
		s.TotalIncome += v
	}
	for _, v := range expenseByCategory {
		s.TotalExpenses += v
	}
	s.NetAmount = s.TotalIncome - s.TotalExpenses
	s.TransactionCount = count
	return s
}
