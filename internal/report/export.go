package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"fintrack/pkg/models"
)

// Report is the exported document.
type Report struct {
	DateRange    Preset               `json:"dateRange"`
	StartDate    string               `json:"startDate,omitempty"`
	EndDate      string               `json:"endDate,omitempty"`
	Summary      models.Summary       `json:"summary"`
	ByCategory   []CategoryTotal      `json:"byCategory"`
	ByDate       []DateTotal          `json:"byDate"`
	ByMonth      []MonthTotal         `json:"byMonth"`
	Transactions []models.Transaction `json:"transactions"`
	GeneratedAt  string               `json:"generatedAt"`
}

// Build filters ts by sel and computes every view of the result.
func Build(ts []models.Transaction, sel Selector, now time.Time) (*Report, error) {
	filtered, r, err := Apply(ts, sel, now)
	if err != nil {
		return nil, err
	}
	if filtered == nil {
		filtered = []models.Transaction{}
	}

	preset := sel.Preset
	if _, known := monthsBack[preset]; !known && preset != PresetCustom {
		preset = DefaultPreset
	}

	rep := &Report{
		DateRange:    preset,
		Summary:      Summarize(filtered),
		ByCategory:   ByCategory(filtered),
		ByDate:       ByDate(filtered),
		ByMonth:      ByMonth(filtered),
		Transactions: filtered,
		GeneratedAt:  now.UTC().Format(isoMillis),
	}
	if r != nil {
		rep.StartDate = r.StartDate()
		rep.EndDate = r.EndDate()
	}
	return rep, nil
}

const isoMillis = "2006-01-02T15:04:05.000Z"

// DefaultFileName is the export name used when none is given.
func DefaultFileName(now time.Time) string {
	return fmt.Sprintf("financial-report-%s.json", now.Format("2006-01-02"))
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveFile writes the report to path, replacing any existing file.
func (r *Report) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
