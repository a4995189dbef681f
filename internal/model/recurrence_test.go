package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceRule_Next(t *testing.T) {
	from := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		want time.Time
		name string
		rule RecurrenceRule
	}{
		{name: "daily", rule: RecurrenceRule{Interval: IntervalDaily, Count: 1}, want: from.AddDate(0, 0, 1)},
		{name: "every two weeks", rule: RecurrenceRule{Interval: IntervalWeekly, Count: 2}, want: from.AddDate(0, 0, 14)},
		{name: "monthly normalizes end of month", rule: RecurrenceRule{Interval: IntervalMonthly, Count: 1}, want: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)},
		{name: "yearly", rule: RecurrenceRule{Interval: IntervalYearly, Count: 1}, want: from.AddDate(1, 0, 0)},
		{name: "zero count treated as one", rule: RecurrenceRule{Interval: IntervalDaily}, want: from.AddDate(0, 0, 1)},
		{name: "unknown interval", rule: RecurrenceRule{Interval: "HOURLY", Count: 1}, want: from},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Next(from))
		})
	}
}

func TestParseEnums(t *testing.T) {
	typ, err := ParseTransactionType(" income ")
	require.NoError(t, err)
	assert.Equal(t, TypeIncome, typ)

	_, err = ParseTransactionType("TRANSFER")
	assert.Error(t, err)

	st, err := ParseRecurringStatus("non_recurring")
	require.NoError(t, err)
	assert.Equal(t, StatusNonRecurring, st)

	assert.Equal(t, "CARD, BANK_TRANSFER, MOBILE_PAYMENT, AUTO_DEBIT, CASH, OTHER", PaymentMethodNames())
}

func TestTransaction_DraftRoundTrip(t *testing.T) {
	txn := Transaction{
		ID:              "id-1",
		OwnerID:         "owner",
		Title:           "Rent",
		Amount:          decimal.RequireFromString("1200.50"),
		Type:            TypeExpense,
		Category:        "Housing",
		Date:            time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		RecurringStatus: StatusRecurring,
		Recurrence:      &RecurrenceRule{Interval: IntervalMonthly, Count: 1},
	}

	draft := txn.Draft()
	draft.Recurrence.Count = 3
	assert.Equal(t, 1, txn.Recurrence.Count, "draft must not alias the rule")

	var copyTxn Transaction
	copyTxn.Apply(txn.Draft())
	assert.Equal(t, txn.Title, copyTxn.Title)
	assert.True(t, txn.Amount.Equal(copyTxn.Amount))
	assert.Equal(t, "-1200.5", txn.SignedAmount().String())
	assert.False(t, txn.IsIncome())
}
