package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fintrack/internal/categorize"
	"fintrack/internal/extract"
	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "Manage spending limits per category",
}

var budgetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets",
	Args:  cobra.NoArgs,
	RunE:  runBudgetsList,
}

var budgetsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create a budget, or replace one with --id",
	Example: `  fintrack budgets set --category "Food & Dining" --amount 400
  fintrack budgets set --id 7 --category Transportation --amount 120 --period monthly`,
	Args: cobra.NoArgs,
	RunE: runBudgetsSet,
}

var budgetsRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a budget",
	Args:    cobra.ExactArgs(1),
	RunE:    runBudgetsRemove,
}

var budgetsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the server's budget overview",
	Args:  cobra.NoArgs,
	RunE:  runBudgetsSummary,
}

var budgetsCategoryCmd = &cobra.Command{
	Use:   "category <name>",
	Short: "List the budgets of one category",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetsCategory,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List transaction categories",
	Long: `List the categories known to the finance API. With --local, list the built-in
expense categories and income sources used by the scan engines instead.`,
	Args: cobra.NoArgs,
	RunE: runCategories,
}

var categoriesSuggestCmd = &cobra.Command{
	Use:   "suggest <text>",
	Short: "Suggest an expense category for a merchant or description",
	Long: `Suggest an expense category the way local scan engines do: ChatGPT when
OPENAI_API_KEY is set, keyword rules otherwise or when the model fails.`,
	Example: `  fintrack categories suggest "Shell station 24"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runCategoriesSuggest,
}

func init() {
	rootCmd.AddCommand(budgetsCmd, categoriesCmd)
	budgetsCmd.AddCommand(budgetsListCmd, budgetsSetCmd, budgetsRemoveCmd, budgetsSummaryCmd, budgetsCategoryCmd)
	categoriesCmd.AddCommand(categoriesSuggestCmd)

	budgetsSetCmd.Flags().String("id", "", "Budget to replace")
	budgetsSetCmd.Flags().String("category", "", "Category")
	budgetsSetCmd.Flags().Float64("amount", 0, "Limit, greater than zero")
	budgetsSetCmd.Flags().String("period", "monthly", "Budget period")
	budgetsSetCmd.Flags().String("start", "", "First day (YYYY-MM-DD)")
	budgetsSetCmd.Flags().String("end", "", "Last day (YYYY-MM-DD)")
	_ = budgetsSetCmd.MarkFlagRequired("category")
	_ = budgetsSetCmd.MarkFlagRequired("amount")

	categoriesCmd.Flags().Bool("local", false, "List the built-in categories")
}

// withSession runs fn with a restored session. Without one, requests go out
// unauthenticated and the server decides.
func withSession(cmd *cobra.Command, log zerolog.Logger, fn func(ctx context.Context, a *app) error) error {
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
	return handleAPIError(fn(ctx, a), log)
}

func printBudgets(w io.Writer, bs []models.Budget) error {
	if len(bs) == 0 {
		fmt.Fprintln(w, "No budgets.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCATEGORY\tAMOUNT\tPERIOD\tFROM\tTO")
	for _, b := range bs {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n", b.ID, b.Category, b.Amount, b.Period, b.StartDate, b.EndDate)
	}
	return tw.Flush()
}

func showBudgets(cmd *cobra.Command, bs []models.Budget) error {
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), bs)
	}
	return printBudgets(cmd.OutOrStdout(), bs)
}

func runBudgetsList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, logger.WithComponent("budgets"), func(ctx context.Context, a *app) error {
		bs, err := a.client.ListBudgets(ctx)
		if err != nil {
			return err
		}
		return showBudgets(cmd, bs)
	})
}

func runBudgetsSet(cmd *cobra.Command, args []string) error {
	b := models.Budget{}
	id, _ := cmd.Flags().GetString("id")
	b.Category, _ = cmd.Flags().GetString("category")
	b.Amount, _ = cmd.Flags().GetFloat64("amount")
	b.Period, _ = cmd.Flags().GetString("period")
	b.StartDate, _ = cmd.Flags().GetString("start")
	b.EndDate, _ = cmd.Flags().GetString("end")

	log := logger.WithComponent("budgets")
	if strings.TrimSpace(b.Category) == "" {
		return handleAPIError(models.NewValidationError("category", b.Category, "is required"), log)
	}
	if b.Amount <= 0 {
		return handleAPIError(models.NewValidationError("amount", b.Amount, "must be greater than zero"), log)
	}

	return withSession(cmd, log, func(ctx context.Context, a *app) error {
		var out *models.Budget
		var err error
		if id != "" {
			out, err = a.client.UpdateBudget(ctx, id, b)
		} else {
			out, err = a.client.CreateBudget(ctx, b)
		}
		if err != nil {
			return err
		}
		return showBudgets(cmd, []models.Budget{*out})
	})
}

func runBudgetsRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, logger.WithComponent("budgets"), func(ctx context.Context, a *app) error {
		if err := a.client.DeleteBudget(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget %s\n", args[0])
		return nil
	})
}

func runBudgetsSummary(cmd *cobra.Command, args []string) error {
	return withSession(cmd, logger.WithComponent("budgets"), func(ctx context.Context, a *app) error {
		out, err := a.client.BudgetSummary(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}

func runBudgetsCategory(cmd *cobra.Command, args []string) error {
	return withSession(cmd, logger.WithComponent("budgets"), func(ctx context.Context, a *app) error {
		bs, err := a.client.BudgetsByCategory(ctx, args[0])
		if err != nil {
			return err
		}
		return showBudgets(cmd, bs)
	})
}

func runCategories(cmd *cobra.Command, args []string) error {
	if local, _ := cmd.Flags().GetBool("local"); local {
		var cs []models.Category
		for _, name := range categorize.ExpenseCategories {
			cs = append(cs, models.Category{Name: name, Type: string(models.TypeExpense)})
		}
		for _, name := range categorize.IncomeCategories {
			cs = append(cs, models.Category{Name: name, Type: string(models.TypeIncome)})
		}
		return showCategories(cmd, cs)
	}

	return withSession(cmd, logger.WithComponent("categories"), func(ctx context.Context, a *app) error {
		cs, err := a.client.ListCategories(ctx)
		if err != nil {
			return err
		}
		return showCategories(cmd, cs)
	})
}

func showCategories(cmd *cobra.Command, cs []models.Category) error {
	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), cs)
	}
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "NAME\tTYPE")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Type)
	}
	return tw.Flush()
}

func runCategoriesSuggest(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("categories")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	text := strings.Join(args, " ")
	category, err := extract.NewCategorizer(cfg).Categorize(ctx, categorize.Input{Description: text})
	if err != nil {
		return handleAPIError(err, log)
	}
	fmt.Fprintln(cmd.OutOrStdout(), category)
	return nil
}
