package model

import (
	"fmt"
	"strings"
)

// TransactionType indicates whether money came in or went out.
type TransactionType string

// Transaction type constants.
const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense:
		return true
	}
	return false
}

// PaymentMethod records how a transaction was paid.
type PaymentMethod string

// Payment method constants.
const (
	PaymentCard          PaymentMethod = "CARD"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMobilePayment PaymentMethod = "MOBILE_PAYMENT"
	PaymentAutoDebit     PaymentMethod = "AUTO_DEBIT"
	PaymentCash          PaymentMethod = "CASH"
	PaymentOther         PaymentMethod = "OTHER"
)

// PaymentMethods lists every accepted payment method in display order.
var PaymentMethods = []PaymentMethod{
	PaymentCard,
	PaymentBankTransfer,
	PaymentMobilePayment,
	PaymentAutoDebit,
	PaymentCash,
	PaymentOther,
}

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCard, PaymentBankTransfer, PaymentMobilePayment, PaymentAutoDebit, PaymentCash, PaymentOther:
		return true
	}
	return false
}

// RecurringStatus marks whether a transaction repeats.
type RecurringStatus string

// Recurring status constants.
const (
	StatusRecurring    RecurringStatus = "RECURRING"
	StatusNonRecurring RecurringStatus = "NON_RECURRING"
)

// Valid reports whether s is a known recurring status.
func (s RecurringStatus) Valid() bool {
	switch s {
	case StatusRecurring, StatusNonRecurring:
		return true
	}
	return false
}

// ParseTransactionType parses a transaction type, accepting any letter case.
// Validation of raw input uses exact matching; this is for filters and flags.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// ParseRecurringStatus parses a recurring status, accepting any letter case.
func ParseRecurringStatus(s string) (RecurringStatus, error) {
	st := RecurringStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown recurring status %q", s)
	}
	return st, nil
}

// PaymentMethodNames returns the accepted payment methods joined for messages.
func PaymentMethodNames() string {
	names := make([]string, len(PaymentMethods))
	for i, p := range PaymentMethods {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
