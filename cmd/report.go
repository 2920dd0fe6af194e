package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fintrack/internal/logger"
	"fintrack/internal/report"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
	"fintrack/internal/warehouse"
	"fintrack/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize transactions over a date range",
	Long: `Build a report over a preset or custom date range: totals, expenses by
category, expenses by day and income against expenses by month.

Presets reach back whole calendar months from the current one, so 1month covers
last month and this month. A custom range needs both --start and --end and
includes the end day. Unknown presets fall back to 3months.

Transactions are fetched for the range first; --cached reports over the
collection saved by the last 'transactions list' instead.`,
	Example: `  fintrack report --range 6months
  fintrack report --range custom --start 2024-01-01 --end 2024-03-31 --export
  fintrack report --range 1year --export=q.json --sheet --bigquery`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("range", string(report.DefaultPreset), "1month, 3months, 6months, 1year or custom")
	reportCmd.Flags().String("start", "", "First day of a custom range (YYYY-MM-DD)")
	reportCmd.Flags().String("end", "", "Last day of a custom range (YYYY-MM-DD)")
	reportCmd.Flags().Int("size", 1000, "How many incomes and how many expenses to fetch")
	reportCmd.Flags().Bool("cached", false, "Report over the cached collection")
	reportCmd.Flags().Bool("backend-summary", false, "Take totals from the income and expense summary endpoints")
	reportCmd.Flags().String("export", "", "Write the report as JSON; --export=FILE picks the name (default financial-report-YYYY-MM-DD.json)")
	reportCmd.Flags().Lookup("export").NoOptDefVal = "-"
	reportCmd.Flags().Bool("sheet", false, "Append the report to GOOGLE_SHEET_URL")
	reportCmd.Flags().Bool("bigquery", false, "Insert the report's transactions into BigQuery")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	preset, _ := cmd.Flags().GetString("range")
	sel := report.Selector{Preset: report.Preset(preset)}
	sel.Start, _ = cmd.Flags().GetString("start")
	sel.End, _ = cmd.Flags().GetString("end")
	size, _ := cmd.Flags().GetInt("size")
	cached, _ := cmd.Flags().GetBool("cached")
	backendSummary, _ := cmd.Flags().GetBool("backend-summary")
	exportPath, _ := cmd.Flags().GetString("export")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	toBigQuery, _ := cmd.Flags().GetBool("bigquery")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	now := time.Now().In(loc)

	r, bounded, err := report.Resolve(sel, now)
	if err != nil {
		return handleAPIError(err, log)
	}

	if cached {
		a.loadCache(ctx)
	} else {
		if _, err := a.session.Bootstrap(ctx); err != nil {
			return handleAPIError(err, log)
		}
		f := store.Filters{Size: size}
		if bounded {
			f.StartDate, f.EndDate = r.StartDate(), r.EndDate()
		}
		if err := a.store.FetchAll(ctx, f); err != nil {
			return handleAPIError(a.store.Err(), log)
		}
	}

	rep, err := report.Build(a.store.Transactions(), sel, now)
	if err != nil {
		return handleAPIError(err, log)
	}

	if backendSummary {
		rep.Summary = remoteSummary(ctx, a, rep, log)
	}

	if exportPath != "" {
		if exportPath == "-" {
			exportPath = report.DefaultFileName(now)
		}
		if err := rep.SaveFile(exportPath); err != nil {
			return err
		}
		log.Info().Str("file", exportPath).Msg("Report exported")
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", exportPath)
	}

	if toSheet {
		if err := exportToSheet(ctx, a, rep); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report appended to sheet %q\n", a.cfg.GoogleSheetWorksheet)
	}
	if toBigQuery {
		n, err := exportToBigQuery(ctx, a, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Inserted %d rows into %s.%s\n", n, a.cfg.BigQueryDataset, a.cfg.BigQueryTable)
	}

	if jsonOutput(cmd) {
		return rep.WriteJSON(cmd.OutOrStdout())
	}
	return printReport(cmd.OutOrStdout(), rep)
}

// remoteSummary sums the server's per-key totals for the report's range and keeps
// the local summary when either endpoint fails.
func remoteSummary(ctx context.Context, a *app, rep *report.Report, log zerolog.Logger) models.Summary {
	incomes, err := a.client.IncomeSummary(ctx, rep.StartDate, rep.EndDate)
	if err != nil {
		log.Warn().Err(err).Msg("Income summary unavailable, using local totals")
		return rep.Summary
	}
	expenses, err := a.client.ExpenseSummary(ctx, rep.StartDate, rep.EndDate)
	if err != nil {
		log.Warn().Err(err).Msg("Expense summary unavailable, using local totals")
		return rep.Summary
	}
	return report.SummaryFromTotals(incomes, expenses, rep.Summary.TransactionCount)
}

func exportToSheet(ctx context.Context, a *app, rep *report.Report) error {
	if a.cfg.GoogleSheetURL == "" {
		return fmt.Errorf("--sheet needs GOOGLE_SHEET_URL")
	}
	svc, err := sheets.NewService(ctx, a.cfg.GoogleSheetURL)
	if err != nil {
		return fmt.Errorf("failed to open Google Sheet: %w", err)
	}
	if err := svc.AppendReport(ctx, a.cfg.GoogleSheetWorksheet, rep); err != nil {
		return fmt.Errorf("failed to append report to Google Sheet: %w", err)
	}
	return nil
}

func exportToBigQuery(ctx context.Context, a *app, rep *report.Report) (int, error) {
	wh, err := warehouse.New(ctx, a.cfg.GoogleCloudProject, a.cfg.BigQueryDataset, a.cfg.BigQueryTable)
	if err != nil {
		return 0, err
	}
	defer wh.Close()

	if err := wh.EnsureTable(ctx); err != nil {
		return 0, err
	}
	return wh.InsertTransactions(ctx, rep.Transactions)
}

func printReport(w io.Writer, rep *report.Report) error {
	if rep.StartDate != "" {
		fmt.Fprintf(w, "Report %s to %s (%s)\n\n", rep.StartDate, rep.EndDate, rep.DateRange)
	} else {
		fmt.Fprintf(w, "Report over all transactions\n\n")
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "Income\t%.2f\n", rep.Summary.TotalIncome)
	fmt.Fprintf(tw, "Expenses\t%.2f\n", rep.Summary.TotalExpenses)
	fmt.Fprintf(tw, "Net\t%.2f\n", rep.Summary.NetAmount)
	fmt.Fprintf(tw, "Transactions\t%d\n", rep.Summary.TransactionCount)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.ByCategory) > 0 {
		fmt.Fprintln(w, "\nExpenses by category")
		tw = newTable(w)
		for _, c := range rep.ByCategory {
			fmt.Fprintf(tw, "  %s\t%.2f\n", c.Category, c.Amount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(rep.ByDate) > 0 {
		fmt.Fprintln(w, "\nExpenses by day")
		tw = newTable(w)
		for _, d := range rep.ByDate {
			fmt.Fprintf(tw, "  %s\t%.2f\n", d.Date, d.Amount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(rep.ByMonth) > 0 {
		fmt.Fprintln(w, "\nBy month")
		tw = newTable(w)
		fmt.Fprintln(tw, "  MONTH\tINCOME\tEXPENSES")
		for _, m := range rep.ByMonth {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\n", m.Month, m.Income, m.Expenses)
		}
		return tw.Flush()
	}
	return nil
}
