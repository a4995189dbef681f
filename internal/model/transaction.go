// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single persisted ledger entry.
type Transaction struct {
	Date            time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Amount          decimal.Decimal
	Recurrence      *RecurrenceRule // Set only when RecurringStatus is RECURRING
	ID              string
	OwnerID         string
	Title           string
	Description     string
	Type            TransactionType
	Category        string
	PaymentMethod   PaymentMethod // Empty when not provided
	RecurringStatus RecurringStatus
}

// TransactionDraft is a validated transaction that has not been persisted yet.
type TransactionDraft struct {
	Date            time.Time
	Amount          decimal.Decimal
	Recurrence      *RecurrenceRule
	Title           string
	Description     string
	Type            TransactionType
	Category        string
	PaymentMethod   PaymentMethod
	RecurringStatus RecurringStatus
}

// Draft returns the user-editable fields of t.
func (t *Transaction) Draft() TransactionDraft {
	return TransactionDraft{
		Date:            t.Date,
		Amount:          t.Amount,
		Recurrence:      t.Recurrence.Clone(),
		Title:           t.Title,
		Description:     t.Description,
		Type:            t.Type,
		Category:        t.Category,
		PaymentMethod:   t.PaymentMethod,
		RecurringStatus: t.RecurringStatus,
	}
}

// Apply copies the draft fields onto t, leaving identity and timestamps untouched.
func (t *Transaction) Apply(d TransactionDraft) {
	t.Date = d.Date.UTC()
	t.Amount = d.Amount
	t.Recurrence = d.Recurrence.Clone()
	t.Title = d.Title
	t.Description = d.Description
	t.Type = d.Type
	t.Category = d.Category
	t.PaymentMethod = d.PaymentMethod
	t.RecurringStatus = d.RecurringStatus
}

// IsIncome reports whether the transaction adds to the balance.
func (t *Transaction) IsIncome() bool {
	return t.Type == TypeIncome
}

// SignedAmount returns the amount as it affects the balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
