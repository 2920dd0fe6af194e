package report

import (
	"fmt"
	"time"

	"fintrack/pkg/models"
)

// Preset names a date window.
type Preset string

const (
	PresetOneMonth    Preset = "1month"
	PresetThreeMonths Preset = "3months"
	PresetSixMonths   Preset = "6months"
	PresetOneYear     Preset = "1year"
	PresetCustom      Preset = "custom"

	// DefaultPreset is used for unknown preset names.
	DefaultPreset = PresetThreeMonths
)

// monthsBack is how many whole months before the current one each preset reaches.
// 1month therefore spans two calendar months.
var monthsBack = map[Preset]int{
	PresetOneMonth:    1,
	PresetThreeMonths: 3,
	PresetSixMonths:   6,
	PresetOneYear:     12,
}

// Selector is a preset or a custom window. Start and End are YYYY-MM-DD and only
// used with PresetCustom.
type Selector struct {
	Preset Preset `json:"preset"`
	Start  string `json:"startDate,omitempty"`
	End    string `json:"endDate,omitempty"`
}

// Range is a closed interval of instants.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether start <= t <= end.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// StartDate returns the first day as YYYY-MM-DD.
func (r Range) StartDate() string {
	return r.Start.Format("2006-01-02")
}

// EndDate returns the last day as YYYY-MM-DD.
func (r Range) EndDate() string {
	return r.End.Format("2006-01-02")
}

func (r Range) String() string {
	return r.StartDate() + " to " + r.EndDate()
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Resolve turns a selector into concrete instants in now's location. ok is false for a
// custom selector that is missing an endpoint. Unknown presets resolve like DefaultPreset.
func Resolve(sel Selector, now time.Time) (r Range, ok bool, err error) {
	if sel.Preset == PresetCustom {
		if sel.Start == "" || sel.End == "" {
			return Range{}, false, nil
		}
		start, err := time.ParseInLocation("2006-01-02", sel.Start, now.Location())
		if err != nil {
			return Range{}, false, models.NewValidationError("startDate", sel.Start, "must be YYYY-MM-DD")
		}
		end, err := time.ParseInLocation("2006-01-02", sel.End, now.Location())
		if err != nil {
			return Range{}, false, models.NewValidationError("endDate", sel.End, "must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return Range{}, false, models.NewValidationError("endDate", sel.End, fmt.Sprintf("is before start date %s", sel.Start))
		}
		return Range{Start: start, End: endOfDay(end)}, true, nil
	}

	n, known := monthsBack[sel.Preset]
	if !known {
		n = monthsBack[DefaultPreset]
	}
	// Day 1 avoids AddDate normalizing e.g. March 31 minus one month into March 2.
	first := startOfMonth(now)
	return Range{Start: first.AddDate(0, -n, 0), End: endOfMonth(now)}, true, nil
}

// Filter returns the transactions dated within r, in their original order. Undated
// transactions are dropped. Dates without an offset are calendar values in r's location,
// so "2024-01-05" falls inside a range starting on 2024-01-05 in any zone.
func Filter(ts []models.Transaction, r Range) []models.Transaction {
	loc := r.Start.Location()
	out := make([]models.Transaction, 0, len(ts))
	for _, t := range ts {
		when, err := t.TimeIn(loc)
		if err != nil {
			continue
		}
		if r.Contains(when) {
			out = append(out, t)
		}
	}
	return out
}

// Apply resolves sel and filters ts. An incomplete custom selector returns ts unchanged.
func Apply(ts []models.Transaction, sel Selector, now time.Time) ([]models.Transaction, *Range, error) {
	r, ok, err := Resolve(sel, now)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return ts, nil, nil
	}
	return Filter(ts, r), &r, nil
}
