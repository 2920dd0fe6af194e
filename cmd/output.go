package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/pkg/models"
)

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTransactions(w io.Writer, ts []models.Transaction) error {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, t := range ts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n", t.ID, t.Type, shortDate(t.Date), t.Category, t.Amount, t.Description)
	}
	return tw.Flush()
}

func printAmounts(w io.Writer, title string, totals map[string]float64) error {
	fmt.Fprintf(w, "%s\n", title)
	tw := newTable(w)
	for _, key := range slices.Sorted(maps.Keys(totals)) {
		fmt.Fprintf(tw, "  %s\t%.2f\n", key, totals[key])
	}
	return tw.Flush()
}

// shortDate drops the time part of an ISO date-time.
func shortDate(s string) string {
	if len(s) > 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}
