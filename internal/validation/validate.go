package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// RawRecord is loosely typed transaction input keyed by field name.
type RawRecord map[string]any

// Field names accepted in a RawRecord.
const (
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldAmount          = "amount"
	FieldType            = "type"
	FieldCategory        = "category"
	FieldPaymentMethod   = "paymentMethod"
	FieldDate            = "date"
	FieldRecurringStatus = "recurringStatus"
	FieldInterval        = "recurringInterval"
	FieldIntervalCount   = "recurringIntervalCount"
)

// Fields lists every field name in the order issues are reported.
var Fields = []string{
	FieldTitle,
	FieldDescription,
	FieldAmount,
	FieldType,
	FieldCategory,
	FieldPaymentMethod,
	FieldDate,
	FieldRecurringStatus,
	FieldInterval,
	FieldIntervalCount,
}

// IsField reports whether name is an accepted field name.
func IsField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Messages shown to users.
const (
	msgTitleRequired     = "Title is required"
	msgAmountNotNumber   = "Amount must be a number"
	msgAmountNotPositive = "Amount must be greater than zero"
	msgInvalidDate       = "Invalid date format"
	msgInvalidType       = "Transaction type must be INCOME or EXPENSE"
	msgCategoryRequired  = "Category is required"
	msgInvalidStatus     = "Recurring status must be RECURRING or NON_RECURRING"
	msgIntervalRequired  = "Recurring interval is required for recurring transactions"
	msgInvalidInterval   = "Recurring interval must be one of: DAILY, WEEKLY, MONTHLY, YEARLY"
	msgInvalidCount      = "Interval count must be a positive integer"
)

func msgInvalidPaymentMethod() string {
	return "Payment method must be one of: " + model.PaymentMethodNames()
}

// Validate checks every field of raw and returns a draft, or an *Error that
// lists all issues in field order. It never stops at the first issue.
func Validate(raw RawRecord) (model.TransactionDraft, error) {
	var c collector
	var d model.TransactionDraft

	d.Title = c.title(raw[FieldTitle])
	d.Description = stringValue(raw[FieldDescription])
	d.Amount = c.amount(raw[FieldAmount])
	d.Type = c.transactionType(raw[FieldType])
	d.Category = c.category(raw[FieldCategory])
	d.PaymentMethod = c.paymentMethod(raw[FieldPaymentMethod])
	d.Date = c.date(raw[FieldDate])

	d.RecurringStatus = model.StatusNonRecurring
	if v, ok := raw[FieldRecurringStatus]; ok && stringValue(v) != "" {
		d.RecurringStatus = c.recurringStatus(v)
	}
	if d.RecurringStatus == model.StatusRecurring {
		d.Recurrence = c.recurrence(raw)
	}

	if err := c.err(); err != nil {
		return model.TransactionDraft{}, err
	}
	return d, nil
}

// ValidatePatch checks only the fields present in raw.
func ValidatePatch(raw RawRecord) (model.TransactionPatch, error) {
	var c collector
	var p model.TransactionPatch

	if v, ok := raw[FieldTitle]; ok {
		s := c.title(v)
		p.Title = &s
	}
	if v, ok := raw[FieldDescription]; ok {
		s := stringValue(v)
		p.Description = &s
	}
	if v, ok := raw[FieldAmount]; ok {
		a := c.amount(v)
		p.Amount = &a
	}
	if v, ok := raw[FieldType]; ok {
		t := c.transactionType(v)
		p.Type = &t
	}
	if v, ok := raw[FieldCategory]; ok {
		s := c.category(v)
		p.Category = &s
	}
	if v, ok := raw[FieldPaymentMethod]; ok {
		pm := c.paymentMethod(v)
		p.PaymentMethod = &pm
	}
	if v, ok := raw[FieldDate]; ok {
		t := c.date(v)
		p.Date = &t
	}
	if v, ok := raw[FieldRecurringStatus]; ok {
		st := c.recurringStatus(v)
		p.RecurringStatus = &st
	}
	if v, ok := raw[FieldInterval]; ok {
		iv := c.interval(v)
		p.Interval = &iv
	}
	if v, ok := raw[FieldIntervalCount]; ok {
		n := c.intervalCount(v)
		p.IntervalCount = &n
	}

	if err := c.err(); err != nil {
		return model.TransactionPatch{}, err
	}
	return p, nil
}

// ValidateDraft re-checks the invariants of an already typed draft.
func ValidateDraft(d model.TransactionDraft) error {
	var c collector

	if strings.TrimSpace(d.Title) == "" {
		c.add(FieldTitle, KindMissingField, msgTitleRequired)
	}
	if !d.Amount.IsPositive() {
		c.add(FieldAmount, KindInvalidAmount, msgAmountNotPositive)
	}
	if !d.Type.Valid() {
		c.add(FieldType, KindInvalidEnum, msgInvalidType)
	}
	if strings.TrimSpace(d.Category) == "" {
		c.add(FieldCategory, KindMissingField, msgCategoryRequired)
	}
	if d.PaymentMethod != "" && !d.PaymentMethod.Valid() {
		c.add(FieldPaymentMethod, KindInvalidEnum, msgInvalidPaymentMethod())
	}
	if d.Date.IsZero() {
		c.add(FieldDate, KindInvalidDate, msgInvalidDate)
	}

	switch d.RecurringStatus {
	case model.StatusRecurring:
		switch {
		case d.Recurrence == nil || d.Recurrence.Interval == "":
			c.add(FieldInterval, KindMissingField, msgIntervalRequired)
		case !d.Recurrence.Interval.Valid():
			c.add(FieldInterval, KindInvalidEnum, msgInvalidInterval)
		}
		if d.Recurrence != nil && d.Recurrence.Count < 1 {
			c.add(FieldIntervalCount, KindInvalidEnum, msgInvalidCount)
		}
	case model.StatusNonRecurring:
		if d.Recurrence != nil {
			c.add(FieldInterval, KindInvalidEnum, "Recurring interval is only allowed for recurring transactions")
		}
	default:
		c.add(FieldRecurringStatus, KindInvalidEnum, msgInvalidStatus)
	}

	return c.err()
}

func (c *collector) title(v any) string {
	s := stringValue(v)
	if s == "" {
		c.add(FieldTitle, KindMissingField, msgTitleRequired)
	}
	return s
}

func (c *collector) category(v any) string {
	s := stringValue(v)
	if s == "" {
		c.add(FieldCategory, KindMissingField, msgCategoryRequired)
	}
	return s
}

func (c *collector) amount(v any) decimal.Decimal {
	a, err := CoerceAmount(v)
	if err != nil {
		c.add(FieldAmount, KindInvalidAmount, msgAmountNotNumber)
		return decimal.Zero
	}
	if !a.IsPositive() {
		c.add(FieldAmount, KindInvalidAmount, msgAmountNotPositive)
	}
	return a
}

func (c *collector) transactionType(v any) model.TransactionType {
	t := model.TransactionType(stringValue(v))
	if !t.Valid() {
		c.add(FieldType, KindInvalidEnum, msgInvalidType)
	}
	return t
}

func (c *collector) paymentMethod(v any) model.PaymentMethod {
	p := model.PaymentMethod(stringValue(v))
	if p != "" && !p.Valid() {
		c.add(FieldPaymentMethod, KindInvalidEnum, msgInvalidPaymentMethod())
	}
	return p
}

func (c *collector) date(v any) time.Time {
	t, err := CoerceDate(v)
	if err != nil {
		c.add(FieldDate, KindInvalidDate, msgInvalidDate)
	}
	return t
}

func (c *collector) recurringStatus(v any) model.RecurringStatus {
	st := model.RecurringStatus(stringValue(v))
	if !st.Valid() {
		c.add(FieldRecurringStatus, KindInvalidEnum, msgInvalidStatus)
	}
	return st
}

func (c *collector) interval(v any) model.RecurringInterval {
	s := stringValue(v)
	if s == "" {
		c.add(FieldInterval, KindMissingField, msgIntervalRequired)
		return ""
	}
	iv := model.RecurringInterval(s)
	if !iv.Valid() {
		c.add(FieldInterval, KindInvalidEnum, msgInvalidInterval)
	}
	return iv
}

func (c *collector) intervalCount(v any) int {
	n, ok := intValue(v)
	if !ok || n < 1 {
		c.add(FieldIntervalCount, KindInvalidEnum, msgInvalidCount)
	}
	return n
}

func (c *collector) recurrence(raw RawRecord) *model.RecurrenceRule {
	rule := &model.RecurrenceRule{Count: 1}
	rule.Interval = c.interval(raw[FieldInterval])
	if v, ok := raw[FieldIntervalCount]; ok && stringValue(v) != "" {
		rule.Count = c.intervalCount(v)
	}
	return rule
}

// ValidateFilter checks optional type and recurring status filters. Empty
// values are returned unchanged and match everything.
func ValidateFilter(txnType, status string) (model.TransactionType, model.RecurringStatus, error) {
	var c collector
	var t model.TransactionType
	var st model.RecurringStatus
	if strings.TrimSpace(txnType) != "" {
		t = c.transactionType(txnType)
	}
	if strings.TrimSpace(status) != "" {
		st = c.recurringStatus(status)
	}
	if err := c.err(); err != nil {
		return "", "", err
	}
	return t, st, nil
}

// Describe renders the draft for logs and CLI confirmations.
func Describe(d model.TransactionDraft) string {
	return fmt.Sprintf("%s %s %s (%s) on %s", d.Type, d.Amount.StringFixed(2), d.Title, d.Category, d.Date.Format("2006-01-02"))
}
