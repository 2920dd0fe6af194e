package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fintrack/internal/logger"
	"fintrack/internal/store"
	"fintrack/pkg/models"
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "List and edit incomes and expenses",
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch one page of incomes and expenses",
	Long: `Fetch one page of incomes and one page of expenses and show them merged,
incomes first. Type and category are filtered locally after the merge.

Filters given on the command line are remembered; without flags the last
filters are reused. The fetched collection is cached for 'report'.`,
	Example: `  fintrack tx list --start 2024-01-01 --end 2024-03-31 --size 50
  fintrack tx list --type expense --category "Food & Dining"
  fintrack tx list --cached`,
	Args: cobra.NoArgs,
	RunE: runTxList,
}

var txShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one transaction from the combined view",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxShow,
}

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an income or an expense",
	Example: `  fintrack tx add --type expense --amount 12.50 --category "Food & Dining" --description Lunch
  fintrack tx add --type income --amount 3200 --category Salary --date 2024-03-01`,
	Args: cobra.NoArgs,
	RunE: runTxAdd,
}

var txEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change an income or an expense",
	Long: `Change an income or an expense. The current record is fetched first and only
the fields given as flags are replaced.`,
	Example: `  fintrack tx edit 42 --type expense --amount 13.20`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTxEdit,
}

var txRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an income or an expense",
	Args:    cobra.ExactArgs(1),
	RunE:    runTxRemove,
}

var txSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the server-side totals of the combined view",
	Args:  cobra.NoArgs,
	RunE:  runTxSummary,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
	transactionsCmd.AddCommand(txListCmd, txShowCmd, txAddCmd, txEditCmd, txRemoveCmd, txSummaryCmd)

	txListCmd.Flags().Int("page", 0, "Page number, starting at 0")
	txListCmd.Flags().Int("size", store.DefaultPageSize, "Page size for each of incomes and expenses")
	txListCmd.Flags().String("start", "", "First day (YYYY-MM-DD)")
	txListCmd.Flags().String("end", "", "Last day (YYYY-MM-DD)")
	txListCmd.Flags().String("type", "", "Only income or expense")
	txListCmd.Flags().String("category", "", "Only this category (or income source)")
	txListCmd.Flags().Bool("cached", false, "Show the cached collection without contacting the API")

	for _, c := range []*cobra.Command{txAddCmd, txEditCmd} {
		c.Flags().String("type", "", "income or expense")
		c.Flags().Float64("amount", 0, "Amount, greater than zero")
		c.Flags().String("category", "", "Expense category or income source")
		c.Flags().String("description", "", "Description")
		c.Flags().String("date", "", "Date (YYYY-MM-DD), defaults to today on add")
		_ = c.MarkFlagRequired("type")
	}
	txRemoveCmd.Flags().String("type", "", "income or expense")
	_ = txRemoveCmd.MarkFlagRequired("type")

	txSummaryCmd.Flags().String("start", "", "First day (YYYY-MM-DD)")
	txSummaryCmd.Flags().String("end", "", "Last day (YYYY-MM-DD)")
}

// listFilters merges the flags that were set over the remembered filters.
func listFilters(cmd *cobra.Command, remembered store.Filters) (store.Filters, error) {
	f := remembered
	flags := cmd.Flags()
	if flags.Changed("page") {
		f.Page, _ = flags.GetInt("page")
	}
	if flags.Changed("size") {
		f.Size, _ = flags.GetInt("size")
	}
	if flags.Changed("start") {
		f.StartDate, _ = flags.GetString("start")
	}
	if flags.Changed("end") {
		f.EndDate, _ = flags.GetString("end")
	}
	if flags.Changed("category") {
		f.Category, _ = flags.GetString("category")
	}
	if flags.Changed("type") {
		raw, _ := flags.GetString("type")
		f.Type = ""
		if raw != "" {
			typ, err := models.ParseTransactionType(raw)
			if err != nil {
				return f, err
			}
			f.Type = typ
		}
	}
	for _, d := range []string{f.StartDate, f.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return f, models.NewValidationError("date", d, "must be YYYY-MM-DD")
		}
	}
	return f, nil
}

func runTxList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transactions")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cached, _ := cmd.Flags().GetBool("cached"); cached {
		a.loadCache(ctx)
		return showTransactions(cmd, a.store.Transactions())
	}

	f, err := listFilters(cmd, a.cachedFilters(ctx))
	if err != nil {
		return handleAPIError(err, log)
	}
	if _, err := a.session.Bootstrap(ctx); err != nil {
		return handleAPIError(err, log)
	}

	if err := a.store.FetchAll(ctx, f); err != nil {
		return handleAPIError(a.store.Err(), log)
	}
	a.saveCache(ctx)

	return showTransactions(cmd, a.store.Transactions())
}

func showTransactions(cmd *cobra.Command, ts []models.Transaction) error {
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), ts)
	}
	return printTransactions(cmd.OutOrStdout(), ts)
}

func runTxShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transactions")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Bootstrap(ctx); err != nil {
		return handleAPIError(err, log)
	}
	t, err := a.client.GetTransaction(ctx, args[0])
	if err != nil {
		return handleAPIError(err, log)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), t)
	}
	return printTransactions(cmd.OutOrStdout(), []models.Transaction{*t})
}

// transactionFromFlags overlays the flags that were set on base.
func transactionFromFlags(cmd *cobra.Command, base models.Transaction) (models.Transaction, error) {
	t := base
	flags := cmd.Flags()

	raw, _ := flags.GetString("type")
	typ, err := models.ParseTransactionType(raw)
	if err != nil {
		return t, err
	}
	t.Type = typ

	if flags.Changed("amount") {
		t.Amount, _ = flags.GetFloat64("amount")
	}
	if flags.Changed("category") {
		t.Category, _ = flags.GetString("category")
	}
	if flags.Changed("description") {
		t.Description, _ = flags.GetString("description")
	}
	if flags.Changed("date") {
		t.Date, _ = flags.GetString("date")
	}
	return t, nil
}

func runTxAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transactions")

	t, err := transactionFromFlags(cmd, models.Transaction{Date: time.Now().Format("2006-01-02")})
	if err != nil {
		return handleAPIError(err, log)
	}

	return withCachedStore(cmd, log, func(ctx context.Context, a *app) error {
		created, err := a.store.Add(ctx, t)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s: %.2f %s\n", created.Type, created.ID, created.Amount, created.Category)
		return nil
	})
}

func runTxEdit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transactions")
	id := args[0]

	return withCachedStore(cmd, log, func(ctx context.Context, a *app) error {
		raw, _ := cmd.Flags().GetString("type")
		typ, err := models.ParseTransactionType(raw)
		if err != nil {
			return err
		}

		var current models.Transaction
		if typ == models.TypeIncome {
			in, err := a.client.GetIncome(ctx, id)
			if err != nil {
				return err
			}
			current = store.FromRemoteIncome(*in)
		} else {
			e, err := a.client.GetExpense(ctx, id)
			if err != nil {
				return err
			}
			current = store.FromRemoteExpense(*e)
		}

		t, err := transactionFromFlags(cmd, current)
		if err != nil {
			return err
		}
		updated, err := a.store.Edit(ctx, id, t)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s: %.2f %s\n", updated.Type, updated.ID, updated.Amount, updated.Category)
		return nil
	})
}

func runTxRemove(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transactions")
	id := args[0]

	return withCachedStore(cmd, log, func(ctx context.Context, a *app) error {
		raw, _ := cmd.Flags().GetString("type")
		typ, err := models.ParseTransactionType(raw)
		if err != nil {
			return err
		}
		if err := a.store.Remove(ctx, id, typ); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", typ, id)
		return nil
	})
}

// withCachedStore runs fn against a store seeded from the cache and saves the cache
// afterwards, so a later 'tx list --cached' or 'report' sees the change.
func withCachedStore(cmd *cobra.Command, log zerolog.Logger, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireSession(ctx); err != nil {
		return handleAPIError(err, log)
	}
	a.loadCache(ctx)

	if err := fn(ctx, a); err != nil {
		return handleAPIError(err, log)
	}
	a.saveCache(ctx)
	return nil
}

func runTxSummary(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("transactions")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Bootstrap(ctx); err != nil {
		return handleAPIError(err, log)
	}
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")

	sum, err := a.client.GetTransactionSummary(ctx, start, end)
	if err != nil {
		return handleAPIError(err, log)
	}
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), sum)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Income:   %.2f\nExpenses: %.2f\nBalance:  %.2f\n\n", sum.TotalIncome, sum.TotalExpense, sum.NetBalance)
	if err := printAmounts(w, "Income by source", sum.IncomeBySource); err != nil {
		return err
	}
	return printAmounts(w, "Expenses by category", sum.ExpenseByCategory)
}
