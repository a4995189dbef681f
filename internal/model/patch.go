package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionPatch carries the fields supplied in a partial update.
// A nil field is left unchanged.
type TransactionPatch struct {
	Title           *string
	Description     *string
	Amount          *decimal.Decimal
	Type            *TransactionType
	Category        *string
	PaymentMethod   *PaymentMethod
	Date            *time.Time
	RecurringStatus *RecurringStatus
	Interval        *RecurringInterval
	IntervalCount   *int
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Amount == nil && p.Type == nil &&
		p.Category == nil && p.PaymentMethod == nil && p.Date == nil &&
		p.RecurringStatus == nil && p.Interval == nil && p.IntervalCount == nil
}

// ApplyTo returns d with the patch merged in. Switching to NON_RECURRING
// drops the recurrence rule.
func (p TransactionPatch) ApplyTo(d TransactionDraft) TransactionDraft {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.PaymentMethod != nil {
		d.PaymentMethod = *p.PaymentMethod
	}
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.RecurringStatus != nil {
		d.RecurringStatus = *p.RecurringStatus
	}

	if d.RecurringStatus != StatusRecurring {
		d.Recurrence = nil
		return d
	}

	rule := d.Recurrence.Clone()
	if rule == nil {
		rule = &RecurrenceRule{Count: 1}
	}
	if p.Interval != nil {
		rule.Interval = *p.Interval
	}
	if p.IntervalCount != nil {
		rule.Count = *p.IntervalCount
	}
	d.Recurrence = rule
	return d
}
