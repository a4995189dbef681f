// Package analytics derives summary metrics and daily chart series from an
// owner's ledger.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary holds the totals for a date range and their change against the
// preceding period of equal length.
type Summary struct {
	Range            service.DateRange
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	AvailableBalance decimal.Decimal
	SavingsRate      SavingsRate
	PercentageChange PercentageChange
	TransactionCount int
}

// SavingsRate relates savings and spending to income. All values are zero
// when there is no income.
type SavingsRate struct {
	// Rate is (income - expenses) / income.
	Rate decimal.Decimal
	// Percentage is Rate expressed in percent.
	Percentage decimal.Decimal
	// ExpenseRatio is expenses as a percentage of income.
	ExpenseRatio decimal.Decimal
}

// PercentageChange compares each total with the previous period, in percent.
// A change is zero when the previous value is zero or the range is open.
type PercentageChange struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

// ChartPoint is the income and expense total of one calendar day.
type ChartPoint struct {
	Date     time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// ChartSeries is a continuous ascending series of days.
type ChartSeries struct {
	Points            []ChartPoint
	TotalIncomeCount  int
	TotalExpenseCount int
}

// Aggregator computes analytics straight from the store on every call.
type Aggregator struct {
	store service.Storage
	loc   *time.Location
	now   func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithClock overrides the time source used to resolve presets.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an aggregator over store. Days are UTC unless
// WithLocation is given.
func NewAggregator(store service.Storage, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		loc:   time.UTC,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ResolvePreset resolves a preset name against the aggregator's clock and
// location. An empty name means all time.
func (a *Aggregator) ResolvePreset(name string) (service.DateRange, error) {
	p, err := ParsePreset(name)
	if err != nil {
		return service.DateRange{}, err
	}
	return Resolve(p, a.now(), a.loc)
}

// Location returns the time zone used for day boundaries.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Summary totals the owner's transactions in rng.
func (a *Aggregator) Summary(ctx context.Context, ownerID string, rng service.DateRange) (*Summary, error) {
	current, err := a.fetch(ctx, ownerID, rng)
	if err != nil {
		return nil, err
	}

	cur := totalsOf(current)
	s := &Summary{
		Range:            rng,
		TotalIncome:      cur.income,
		TotalExpenses:    cur.expenses,
		AvailableBalance: cur.balance(),
		SavingsRate:      savingsRate(cur),
		TransactionCount: len(current),
	}

	prevRange, ok := PreviousPeriod(rng)
	if !ok {
		return s, nil
	}

	previous, err := a.fetch(ctx, ownerID, prevRange)
	if err != nil {
		return nil, err
	}
	prev := totalsOf(previous)

	s.PercentageChange = PercentageChange{
		Income:   percentChange(cur.income, prev.income),
		Expenses: percentChange(cur.expenses, prev.expenses),
		Balance:  percentChange(cur.balance(), prev.balance()),
	}
	return s, nil
}

// ChartSeries buckets the owner's transactions in rng by calendar day. Every
// day of the range appears, zero-filled. An open range spans the first to the
// last transaction.
func (a *Aggregator) ChartSeries(ctx context.Context, ownerID string, rng service.DateRange) (*ChartSeries, error) {
	txns, err := a.fetch(ctx, ownerID, rng)
	if err != nil {
		return nil, err
	}

	series := &ChartSeries{Points: []ChartPoint{}}
	if len(txns) == 0 && (rng.Start == nil || rng.End == nil) {
		return series, nil
	}

	type bucket struct {
		income   decimal.Decimal
		expenses decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	for _, txn := range txns {
		key := dayKey(txn.Date.In(a.loc))
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		if txn.IsIncome() {
			b.income = b.income.Add(txn.Amount)
			series.TotalIncomeCount++
		} else {
			b.expenses = b.expenses.Add(txn.Amount)
			series.TotalExpenseCount++
		}
	}

	first, last := a.seriesBounds(rng, txns)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		point := ChartPoint{Date: day, Income: decimal.Zero, Expenses: decimal.Zero}
		if b, ok := buckets[dayKey(day)]; ok {
			point.Income = b.income
			point.Expenses = b.expenses
		}
		series.Points = append(series.Points, point)
	}
	return series, nil
}

// seriesBounds returns the first and last day to chart. txns is sorted by
// date ascending.
func (a *Aggregator) seriesBounds(rng service.DateRange, txns []model.Transaction) (time.Time, time.Time) {
	var first, last time.Time
	if rng.Start != nil {
		first = *rng.Start
	} else {
		first = txns[0].Date
	}
	if rng.End != nil {
		last = *rng.End
	} else {
		last = txns[len(txns)-1].Date
	}
	return startOfDay(first.In(a.loc)), startOfDay(last.In(a.loc))
}

func (a *Aggregator) fetch(ctx context.Context, ownerID string, rng service.DateRange) ([]model.Transaction, error) {
	filter := service.TransactionFilter{
		OwnerID:   ownerID,
		StartDate: rng.Start,
		EndDate:   rng.End,
	}
	txns, err := a.store.FindTransactions(ctx, filter, service.FindOptions{Sort: service.SortDateAsc})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return txns, nil
}

type totals struct {
	income   decimal.Decimal
	expenses decimal.Decimal
}

func (t totals) balance() decimal.Decimal {
	return t.income.Sub(t.expenses)
}

func totalsOf(txns []model.Transaction) totals {
	var t totals
	for _, txn := range txns {
		switch txn.Type {
		case model.TypeIncome:
			t.income = t.income.Add(txn.Amount)
		case model.TypeExpense:
			t.expenses = t.expenses.Add(txn.Amount)
		}
	}
	return t
}

func savingsRate(t totals) SavingsRate {
	if !t.income.IsPositive() {
		return SavingsRate{Rate: decimal.Zero, Percentage: decimal.Zero, ExpenseRatio: decimal.Zero}
	}
	rate := t.balance().Div(t.income)
	return SavingsRate{
		Rate:         rate.Round(4),
		Percentage:   rate.Mul(hundred).Round(2),
		ExpenseRatio: t.expenses.Div(t.income).Mul(hundred).Round(2),
	}
}

func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
