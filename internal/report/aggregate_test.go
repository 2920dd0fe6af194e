package report

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/pkg/models"
)

func tx(typ models.TransactionType, amount float64, category, date string) models.Transaction {
	return models.Transaction{Type: typ, Amount: amount, Category: category, Date: date}
}

func income(amount float64, source, date string) models.Transaction {
	return tx(models.TypeIncome, amount, source, date)
}

func expense(amount float64, category, date string) models.Transaction {
	return tx(models.TypeExpense, amount, category, date)
}

func TestByCategory_RoundsDecimalSums(t *testing.T) {
	ts := []models.Transaction{
		expense(12.345, "Food", "2024-03-01"),
		expense(7.655, "Food", "2024-03-02"),
	}
	got := ByCategory(ts)
	want := []CategoryTotal{{Category: "Food", Amount: 20.00}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ByCategory() = %+v, want %+v", got, want)
	}
}

func TestByCategory(t *testing.T) {
	ts := []models.Transaction{
		expense(10, "Transport", "2024-03-01"),
		income(1000, "Salary", "2024-03-01"),
		expense(5.005, "", "2024-03-02"),
		expense(2.5, "Food", "2024-03-02"),
		expense(0.1, "Food", "2024-03-03"),
		expense(0.2, "Food", "not a date"),
	}
	got := ByCategory(ts)
	want := []CategoryTotal{
		{Category: "Food", Amount: 2.8},
		{Category: "Transport", Amount: 10},
		{Category: "Uncategorized", Amount: 5.01},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ByCategory() = %+v, want %+v", got, want)
	}
}

func TestByDate(t *testing.T) {
	ts := []models.Transaction{
		expense(3, "Food", "2024-03-02T23:30:00-02:00"), // 2024-03-03 in UTC
		expense(1.111, "Food", "2024-03-01"),
		expense(2.222, "Rent", "2024-03-01T10:00:00"),
		income(500, "Salary", "2024-03-01"),
		expense(9, "Food", "garbage"),
	}
	got := ByDate(ts)
	want := []DateTotal{
		{Date: "2024-03-01", Amount: 3.33},
		{Date: "2024-03-03", Amount: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ByDate() = %+v, want %+v", got, want)
	}
}

func TestByMonth(t *testing.T) {
	ts := []models.Transaction{
		income(1000, "Salary", "2024-02-28"),
		expense(40.125, "Food", "2024-02-10"),
		expense(10, "Food", "2024-01-05"),
		income(50.5, "Gift", "2024-02-01T08:00:00Z"),
		expense(1, "Food", ""),
	}
	got := ByMonth(ts)
	want := []MonthTotal{
		{Month: "2024-01", Income: 0, Expenses: 10},
		{Month: "2024-02", Income: 1050.5, Expenses: 40.13},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ByMonth() = %+v, want %+v", got, want)
	}
}

func TestAggregators_EmptyInput(t *testing.T) {
	if got := ByCategory(nil); len(got) != 0 {
		t.Errorf("ByCategory(nil) = %v", got)
	}
	if got := ByDate(nil); len(got) != 0 {
		t.Errorf("ByDate(nil) = %v", got)
	}
	if got := ByMonth(nil); len(got) != 0 {
		t.Errorf("ByMonth(nil) = %v", got)
	}
	if got := Summarize(nil); got != (models.Summary{}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	ts := []models.Transaction{
		income(1000.10, "Salary", "2024-03-01"),
		income(0.2, "Interest", "2024-03-02"),
		expense(300.3, "Rent", "2024-03-03"),
		expense(0.1, "Food", "bad date"),
	}
	got := Summarize(ts)
	if got.TransactionCount != 4 {
		t.Errorf("TransactionCount = %d", got.TransactionCount)
	}
	if got.NetAmount != got.TotalIncome-got.TotalExpenses {
		t.Errorf("NetAmount %v != %v - %v", got.NetAmount, got.TotalIncome, got.TotalExpenses)
	}
	salary, interest, rent, food := 1000.10, 0.2, 300.3, 0.1
	if got.TotalIncome != salary+interest || got.TotalExpenses != rent+food {
		t.Errorf("Summarize() = %+v", got)
	}
}

func TestIncomeNeverInExpenseViews(t *testing.T) {
	ts := []models.Transaction{
		income(100, "Food", "2024-03-01"),
		income(50, "", "2024-03-02"),
	}
	if got := ByCategory(ts); len(got) != 0 {
		t.Errorf("ByCategory() included income: %v", got)
	}
	if got := ByDate(ts); len(got) != 0 {
		t.Errorf("ByDate() included income: %v", got)
	}
}

func TestAggregators_DoNotMutateInput(t *testing.T) {
	ts := []models.Transaction{
		expense(2, "B", "2024-03-02"),
		expense(1, "", "2024-03-01"),
	}
	before := append([]models.Transaction(nil), ts...)
	_ = ByCategory(ts)
	_ = ByDate(ts)
	_ = ByMonth(ts)
	_ = Summarize(ts)
	if !reflect.DeepEqual(ts, before) {
		t.Errorf("input modified: %+v", ts)
	}
}

func TestSummaryFromTotals(t *testing.T) {
	got := SummaryFromTotals(map[string]float64{"Salary": 1000, "Gift": 25}, map[string]float64{"Rent": 400}, 7)
	want := models.Summary{TotalIncome: 1025, TotalExpenses: 400, NetAmount: 625, TransactionCount: 7}
	if got != want {
		t.Errorf("SummaryFromTotals() = %+v, want %+v", got, want)
	}
}

func TestByMonth_MatchesCategoryAndSummaryTotals(t *testing.T) {
	ts := []models.Transaction{
		expense(12.345, "Food", "2024-05-01"),
		expense(7.655, "Food", "2024-05-03T12:00:00Z"),
		expense(100.1, "Rent", "2024-05-02"),
		expense(0.333, "", "2024-05-20"),
		income(2500, "Salary", "2024-05-01"),
		income(19.99, "Gift", "2024-05-31"),
		expense(3.2, "Transport", "2024-05-31T23:59:59Z"),
	}

	months := ByMonth(ts)
	if len(months) != 1 || months[0].Month != "2024-05" {
		t.Fatalf("ByMonth() = %+v, want a single 2024-05 entry", months)
	}

	categorySum := decimal.Zero
	for _, c := range ByCategory(ts) {
		categorySum = categorySum.Add(decimal.NewFromFloat(c.Amount))
	}
	summary := Summarize(ts)
	summaryExpenses := decimal.NewFromFloat(summary.TotalExpenses).Round(2)

	got := decimal.NewFromFloat(months[0].Expenses)
	if !got.Equal(categorySum) {
		t.Errorf("ByMonth expenses = %s, sum of ByCategory = %s", got, categorySum)
	}
	if !got.Equal(summaryExpenses) {
		t.Errorf("ByMonth expenses = %s, Summarize().TotalExpenses = %s", got, summaryExpenses)
	}
	if income := decimal.NewFromFloat(months[0].Income); !income.Equal(decimal.NewFromFloat(summary.TotalIncome).Round(2)) {
		t.Errorf("ByMonth income = %s, Summarize().TotalIncome = %v", income, summary.TotalIncome)
	}
}
