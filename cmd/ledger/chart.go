package main

import (
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/spice-ledger/internal/analytics"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/spf13/cobra"
)

func chartCmd() *cobra.Command {
	var opts rangeOptions

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show daily income and expense totals",
		Long: `Print one line per day of the period with that day's income and expense
totals. Days without transactions are shown as zero.`,
		Example: `  ledger chart --preset 7days`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAggregator(cmd.Context(), func(agg *analytics.Aggregator, ownerID string) error {
				rng, err := opts.resolve(agg)
				if err != nil {
					return err
				}
				series, err := agg.ChartSeries(cmd.Context(), ownerID, rng)
				if err != nil {
					return err
				}
				printChart(cmd.OutOrStdout(), series, agg.Location())
				return nil
			})
		},
	}

	opts.register(cmd)
	return cmd
}

func printChart(w io.Writer, series *analytics.ChartSeries, loc *time.Location) {
	if len(series.Points) == 0 {
		fmt.Fprintln(w, cli.FormatInfo("No transactions in this period"))
		return
	}

	rows := make([][]string, 0, len(series.Points))
	for _, p := range series.Points {
		rows = append(rows, []string{
			p.Date.In(loc).Format(time.DateOnly),
			cli.IncomeStyle.Render(p.Income.StringFixed(2)),
			cli.ExpenseStyle.Render(p.Expenses.StringFixed(2)),
		})
	}
	fmt.Fprintln(w, cli.RenderTable([]string{"Date", "Income", "Expenses"}, rows))
	fmt.Fprintln(w, cli.SubtleStyle.Render(fmt.Sprintf("%d income and %d expense transactions",
		series.TotalIncomeCount, series.TotalExpenseCount)))
}
