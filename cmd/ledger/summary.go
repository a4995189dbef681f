package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/analytics"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// rangeOptions selects the period a report covers.
type rangeOptions struct {
	preset string
	from   string
	to     string
}

func (o *rangeOptions) register(cmd *cobra.Command) {
	names := make([]string, 0, len(analytics.Presets))
	for _, p := range analytics.Presets {
		names = append(names, string(p))
	}
	cmd.Flags().StringVarP(&o.preset, "preset", "p", string(analytics.PresetAllTime), "period: "+strings.Join(names, ", "))
	cmd.Flags().StringVar(&o.from, "from", "", "custom start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.to, "to", "", "custom end date (YYYY-MM-DD)")
}

// resolve turns the flags into a date range. --from/--to take precedence over --preset.
func (o *rangeOptions) resolve(agg *analytics.Aggregator) (service.DateRange, error) {
	if o.from == "" && o.to == "" {
		rng, err := agg.ResolvePreset(o.preset)
		if err != nil {
			return service.DateRange{}, common.NewUserError(err.Error(), err)
		}
		return rng, nil
	}

	if o.from == "" || o.to == "" {
		return service.DateRange{}, common.NewUserError("--from and --to must be given together", common.ErrInvalidConfig)
	}
	loc := agg.Location()
	start, err := time.ParseInLocation(time.DateOnly, o.from, loc)
	if err != nil {
		return service.DateRange{}, common.NewUserError(fmt.Sprintf("invalid --from date %q", o.from), err)
	}
	end, err := time.ParseInLocation(time.DateOnly, o.to, loc)
	if err != nil {
		return service.DateRange{}, common.NewUserError(fmt.Sprintf("invalid --to date %q", o.to), err)
	}
	rng, err := analytics.CustomRange(start, end, loc)
	if err != nil {
		return service.DateRange{}, common.NewUserError(err.Error(), err)
	}
	return rng, nil
}

// withAggregator runs fn with an aggregator over the configured store.
func withAggregator(ctx context.Context, fn func(agg *analytics.Aggregator, ownerID string) error) error {
	ownerID, err := requireUser(appConfig)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("Failed to close storage", "error", closeErr)
		}
	}()

	return fn(analytics.NewAggregator(store, analytics.WithLocation(appConfig.Analytics.Location)), ownerID)
}

func summaryCmd() *cobra.Command {
	var opts rangeOptions

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and savings for a period",
		Example: `  ledger summary --preset thisMonth
  ledger summary --from 2024-01-01 --to 2024-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAggregator(cmd.Context(), func(agg *analytics.Aggregator, ownerID string) error {
				rng, err := opts.resolve(agg)
				if err != nil {
					return err
				}
				summary, err := agg.Summary(cmd.Context(), ownerID, rng)
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), summary, agg.Location())
				return nil
			})
		},
	}

	opts.register(cmd)
	return cmd
}

func printSummary(w io.Writer, s *analytics.Summary, loc *time.Location) {
	var b strings.Builder
	fmt.Fprintf(&b, "Period:       %s\n", describeRange(s.Range, loc))
	fmt.Fprintf(&b, "Transactions: %d\n", s.TransactionCount)
	fmt.Fprintf(&b, "Income:       %s  %s\n", cli.IncomeStyle.Render(s.TotalIncome.StringFixed(2)), formatChange(s.PercentageChange.Income))
	fmt.Fprintf(&b, "Expenses:     %s  %s\n", cli.ExpenseStyle.Render(s.TotalExpenses.StringFixed(2)), formatChange(s.PercentageChange.Expenses))
	fmt.Fprintf(&b, "Balance:      %s  %s\n", s.AvailableBalance.StringFixed(2), formatChange(s.PercentageChange.Balance))
	fmt.Fprintf(&b, "Savings rate: %s%% (expenses %s%% of income)",
		s.SavingsRate.Percentage.StringFixed(2), s.SavingsRate.ExpenseRatio.StringFixed(2))

	fmt.Fprintln(w, cli.RenderBox(cli.ChartIcon+" Summary", b.String()))
}

func formatChange(pct decimal.Decimal) string {
	if pct.IsZero() {
		return cli.SubtleStyle.Render("(no change)")
	}
	sign := ""
	if pct.IsPositive() {
		sign = "+"
	}
	return cli.SubtleStyle.Render(fmt.Sprintf("(%s%s%% vs previous period)", sign, pct.StringFixed(2)))
}

func describeRange(r service.DateRange, loc *time.Location) string {
	if r.IsOpen() {
		return "all time"
	}
	format := func(t *time.Time) string {
		if t == nil {
			return "…"
		}
		return t.In(loc).Format(time.DateOnly)
	}
	return format(r.Start) + " to " + format(r.End)
}
