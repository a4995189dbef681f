package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "owner-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func mustRange(t *testing.T, start, end time.Time) service.DateRange {
	t.Helper()
	rng, err := CustomRange(start, end, time.UTC)
	require.NoError(t, err)
	return rng
}

func TestAggregator_Summary(t *testing.T) {
	db := testutil.SetupTestDB(t,
		// previous period: March 1-7
		testutil.NewTransaction(owner).Income("1000").On(2024, 3, 2).Build(),
		testutil.NewTransaction(owner).Expense("400").On(2024, 3, 5).Build(),
		// current period: March 8-14
		testutil.NewTransaction(owner).Income("1500").On(2024, 3, 8).Build(),
		testutil.NewTransaction(owner).Expense("300").On(2024, 3, 10).Build(),
		testutil.NewTransaction(owner).Expense("300").On(2024, 3, 14).Build(),
		// outside both
		testutil.NewTransaction(owner).Income("9999").On(2024, 3, 20).Build(),
		testutil.NewTransaction("owner-2").Income("5000").On(2024, 3, 9).Build(),
	)
	agg := NewAggregator(db.Storage)

	s, err := agg.Summary(context.Background(), owner, mustRange(t, day(2024, 3, 8), day(2024, 3, 14)))
	require.NoError(t, err)

	assertDecimal(t, "1500", s.TotalIncome)
	assertDecimal(t, "600", s.TotalExpenses)
	assertDecimal(t, "900", s.AvailableBalance)
	assert.Equal(t, 3, s.TransactionCount)

	assertDecimal(t, "0.6", s.SavingsRate.Rate)
	assertDecimal(t, "60", s.SavingsRate.Percentage)
	assertDecimal(t, "40", s.SavingsRate.ExpenseRatio)

	assertDecimal(t, "50", s.PercentageChange.Income)
	assertDecimal(t, "50", s.PercentageChange.Expenses)
	assertDecimal(t, "50", s.PercentageChange.Balance)
}

func TestAggregator_SummaryWithoutIncome(t *testing.T) {
	db := testutil.SetupTestDB(t,
		testutil.NewTransaction(owner).Expense("25").On(2024, 3, 10).Build(),
	)
	agg := NewAggregator(db.Storage)

	s, err := agg.Summary(context.Background(), owner, mustRange(t, day(2024, 3, 8), day(2024, 3, 14)))
	require.NoError(t, err)

	assert.True(t, s.TotalIncome.IsZero())
	assertDecimal(t, "-25", s.AvailableBalance)
	assert.True(t, s.SavingsRate.Rate.IsZero())
	assert.True(t, s.SavingsRate.Percentage.IsZero())
	assert.True(t, s.SavingsRate.ExpenseRatio.IsZero())
	assert.True(t, s.PercentageChange.Expenses.IsZero(), "no previous expenses means no change")
}

func TestAggregator_SummaryAllTime(t *testing.T) {
	db := testutil.SetupTestDB(t,
		testutil.NewTransaction(owner).Income("100").On(2020, 1, 1).Build(),
		testutil.NewTransaction(owner).Expense("40.50").On(2024, 6, 1).Build(),
	)
	agg := NewAggregator(db.Storage)

	s, err := agg.Summary(context.Background(), owner, service.DateRange{})
	require.NoError(t, err)
	assertDecimal(t, "59.5", s.AvailableBalance)
	assert.Equal(t, 2, s.TransactionCount)
	assert.True(t, s.PercentageChange.Income.IsZero())
	assert.True(t, s.PercentageChange.Balance.IsZero())
}

func TestAggregator_ChartSeriesZeroFills(t *testing.T) {
	db := testutil.SetupTestDB(t,
		testutil.NewTransaction(owner).Income("200").On(2024, 3, 1).Build(),
		testutil.NewTransaction(owner).Expense("20").On(2024, 3, 1).Build(),
		testutil.NewTransaction(owner).Expense("35.75").On(2024, 3, 3).Build(),
	)
	agg := NewAggregator(db.Storage)

	series, err := agg.ChartSeries(context.Background(), owner, mustRange(t, day(2024, 3, 1), day(2024, 3, 3)))
	require.NoError(t, err)

	require.Len(t, series.Points, 3)
	wantDays := []time.Time{day(2024, 3, 1), day(2024, 3, 2), day(2024, 3, 3)}
	wantIncome := []string{"200", "0", "0"}
	wantExpenses := []string{"20", "0", "35.75"}
	for i, p := range series.Points {
		assert.True(t, wantDays[i].Equal(p.Date), "day %d is %s", i, p.Date)
		assertDecimal(t, wantIncome[i], p.Income)
		assertDecimal(t, wantExpenses[i], p.Expenses)
	}
	assert.Equal(t, 1, series.TotalIncomeCount)
	assert.Equal(t, 2, series.TotalExpenseCount)
}

func TestAggregator_ChartSeriesAllTime(t *testing.T) {
	db := testutil.SetupTestDB(t,
		testutil.NewTransaction(owner).Income("10").On(2024, 2, 27).Build(),
		testutil.NewTransaction(owner).Income("10").On(2024, 3, 2).Build(),
	)
	agg := NewAggregator(db.Storage)

	series, err := agg.ChartSeries(context.Background(), owner, service.DateRange{})
	require.NoError(t, err)
	require.Len(t, series.Points, 5, "Feb 27 through Mar 2 in a leap year")
	assert.True(t, day(2024, 2, 27).Equal(series.Points[0].Date))
	assert.True(t, day(2024, 3, 2).Equal(series.Points[4].Date))

	empty, err := agg.ChartSeries(context.Background(), "nobody", service.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, empty.Points)
}

func TestAggregator_ChartSeriesLocation(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("time zone database not available")
	}
	db := testutil.SetupTestDB(t,
		// 02:00 UTC on March 2 is still March 1 in New York.
		testutil.NewTransaction(owner).Expense("5").At(time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)).Build(),
	)
	agg := NewAggregator(db.Storage, WithLocation(newYork))

	rng, err := CustomRange(time.Date(2024, 3, 1, 12, 0, 0, 0, newYork), time.Date(2024, 3, 2, 12, 0, 0, 0, newYork), newYork)
	require.NoError(t, err)

	series, err := agg.ChartSeries(context.Background(), owner, rng)
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assertDecimal(t, "5", series.Points[0].Expenses)
	assertDecimal(t, "0", series.Points[1].Expenses)
}

func TestAggregator_ResolvePreset(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	agg := NewAggregator(nil, WithClock(func() time.Time { return now }))

	rng, err := agg.ResolvePreset("7days")
	require.NoError(t, err)
	assert.True(t, day(2024, 3, 9).Equal(*rng.Start))

	rng, err = agg.ResolvePreset("")
	require.NoError(t, err)
	assert.True(t, rng.IsOpen())

	_, err = agg.ResolvePreset("someday")
	assert.ErrorIs(t, err, ErrUnknownPreset)
	assert.Equal(t, time.UTC, agg.Location())
}

func TestAggregator_StoreFailure(t *testing.T) {
	agg := NewAggregator(&brokenStore{err: common.ErrStoreUnavailable})

	_, err := agg.Summary(context.Background(), owner, service.DateRange{})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	_, err = agg.ChartSeries(context.Background(), owner, service.DateRange{})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		current  string
		previous string
		want     string
	}{
		{current: "150", previous: "100", want: "50"},
		{current: "50", previous: "100", want: "-50"},
		{current: "10", previous: "0", want: "0"},
		{current: "1", previous: "3", want: "-66.67"},
	}
	for _, tt := range tests {
		assertDecimal(t, tt.want, percentChange(dec(tt.current), dec(tt.previous)))
	}
}

// brokenStore fails every read.
type brokenStore struct {
	service.Storage
	err error
}

func (b *brokenStore) FindTransactions(context.Context, service.TransactionFilter, service.FindOptions) ([]model.Transaction, error) {
	return nil, b.err
}
