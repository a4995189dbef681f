package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

var fixtureSeq atomic.Int64

// TransactionBuilder provides a fluent interface for constructing test transactions.
type TransactionBuilder struct {
	txn model.Transaction
}

// NewTransaction starts a NON_RECURRING 10.00 expense dated 2024-01-01 for owner.
func NewTransaction(owner string) *TransactionBuilder {
	n := fixtureSeq.Add(1)
	date := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	created := date.Add(time.Duration(n) * time.Second)
	return &TransactionBuilder{txn: model.Transaction{
		ID:              fmt.Sprintf("fixture-%04d", n),
		OwnerID:         owner,
		Title:           fmt.Sprintf("Fixture %d", n),
		Amount:          decimal.NewFromInt(10),
		Type:            model.TypeExpense,
		Category:        "General",
		Date:            date,
		RecurringStatus: model.StatusNonRecurring,
		CreatedAt:       created,
		UpdatedAt:       created,
	}}
}

// ID sets the transaction id.
func (b *TransactionBuilder) ID(id string) *TransactionBuilder {
	b.txn.ID = id
	return b
}

// Title sets the title.
func (b *TransactionBuilder) Title(title string) *TransactionBuilder {
	b.txn.Title = title
	return b
}

// Category sets the category.
func (b *TransactionBuilder) Category(category string) *TransactionBuilder {
	b.txn.Category = category
	return b
}

// Income makes the transaction an income of amount.
func (b *TransactionBuilder) Income(amount string) *TransactionBuilder {
	b.txn.Type = model.TypeIncome
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// Expense makes the transaction an expense of amount.
func (b *TransactionBuilder) Expense(amount string) *TransactionBuilder {
	b.txn.Type = model.TypeExpense
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// On sets the date to noon UTC of the given day.
func (b *TransactionBuilder) On(year int, month time.Month, day int) *TransactionBuilder {
	b.txn.Date = time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return b
}

// At sets the exact date.
func (b *TransactionBuilder) At(date time.Time) *TransactionBuilder {
	b.txn.Date = date
	return b
}

// Recurring marks the transaction as recurring every count intervals.
func (b *TransactionBuilder) Recurring(interval model.RecurringInterval, count int) *TransactionBuilder {
	b.txn.RecurringStatus = model.StatusRecurring
	b.txn.Recurrence = &model.RecurrenceRule{Interval: interval, Count: count}
	return b
}

// PaidWith sets the payment method.
func (b *TransactionBuilder) PaidWith(method model.PaymentMethod) *TransactionBuilder {
	b.txn.PaymentMethod = method
	return b
}

// Build returns the constructed transaction.
func (b *TransactionBuilder) Build() model.Transaction {
	txn := b.txn
	txn.Recurrence = b.txn.Recurrence.Clone()
	return txn
}
