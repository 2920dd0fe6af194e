// Package categorize assigns spending categories to scanned receipts and new transactions.
package categorize

import (
	"context"
	"strings"
)

// Other is assigned when nothing more specific matches.
const Other = "Other"

// ExpenseCategories are the expense categories offered for new transactions.
var ExpenseCategories = []string{
	"Food & Dining",
	"Transportation",
	"Housing",
	"Utilities",
	"Entertainment",
	"Healthcare",
	"Shopping",
	"Education",
	"Travel",
	"Business",
	Other,
}

// IncomeCategories are the income sources offered for new transactions.
var IncomeCategories = []string{
	"Salary",
	"Freelance",
	"Investment",
	"Business",
	Other,
}

// Input is what a categorizer looks at.
type Input struct {
	Merchant    string
	Description string
	Items       []string

	// Text is free-form document text, e.g. OCR output.
	Text string
}

func (in Input) haystack() string {
	parts := append([]string{in.Merchant, in.Description, in.Text}, in.Items...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Categorizer picks a category for a receipt.
type Categorizer interface {
	Categorize(ctx context.Context, in Input) (string, error)
}

// Rule maps keywords to a category. A rule matches when any keyword is a substring
// of the lowercased input.
type Rule struct {
	Category string
	Keywords []string
}

// DefaultRules are checked in order; the first match wins.
var DefaultRules = []Rule{
	{Category: "Food & Dining", Keywords: []string{"grocery", "food", "restaurant", "dining", "cafe", "meal"}},
	{Category: "Transportation", Keywords: []string{"gas", "fuel", "transport", "uber", "taxi", "parking"}},
	{Category: "Shopping", Keywords: []string{"shopping", "store", "mall", "clothing", "electronics"}},
	{Category: "Entertainment", Keywords: []string{"entertainment", "movie", "theater", "concert", "game"}},
	{Category: "Healthcare", Keywords: []string{"medical", "health", "pharmacy", "doctor", "hospital"}},
	{Category: "Utilities", Keywords: []string{"utility", "water", "internet", "phone"}},
	{Category: "Education", Keywords: []string{"education", "school", "college", "course", "book"}},
	{Category: "Business", Keywords: []string{"business", "office", "corporate"}},
	{Category: "Travel", Keywords: []string{"travel", "hotel", "flight"}},
}

// Keywords categorizes by substring rules and never fails.
type Keywords struct {
	rules []Rule
}

// NewKeywords returns a keyword categorizer. With no rules, DefaultRules are used.
func NewKeywords(rules ...Rule) *Keywords {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Keywords{rules: rules}
}

// Categorize implements Categorizer.
func (k *Keywords) Categorize(_ context.Context, in Input) (string, error) {
	text := in.haystack()
	for _, rule := range k.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Category, nil
			}
		}
	}
	return Other, nil
}

// Chain tries each categorizer in turn and returns the first non-empty answer.
// Errors from all but the last are skipped.
type Chain []Categorizer

// Categorize implements Categorizer.
func (c Chain) Categorize(ctx context.Context, in Input) (string, error) {
	var lastErr error
	for _, cat := range c {
		category, err := cat.Categorize(ctx, in)
		if err != nil {
			lastErr = err
			continue
		}
		if category != "" {
			return category, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return Other, nil
}

// Known reports whether category is one of the offered categories for the type
// ("income" or "expense"), ignoring case, and returns its canonical spelling.
func Known(category, typ string) (string, bool) {
	list := ExpenseCategories
	if strings.EqualFold(typ, "income") {
		list = IncomeCategories
	}
	for _, c := range list {
		if strings.EqualFold(strings.TrimSpace(category), c) {
			return c, true
		}
	}
	return "", false
}
