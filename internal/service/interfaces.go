// Package service defines the contracts shared between the ledger and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// SortOrder controls the order of transactions returned by FindTransactions.
type SortOrder int

// Sort orders.
const (
	// SortDateDesc orders newest first, ties broken by creation time descending.
	SortDateDesc SortOrder = iota
	// SortDateAsc orders oldest first, ties broken by creation time ascending.
	SortDateAsc
)

// TransactionFilter defines filtering options for transaction queries.
// OwnerID is always required; every other field narrows the result when set.
type TransactionFilter struct {
	StartDate       *time.Time // Inclusive
	EndDate         *time.Time // Inclusive
	OwnerID         string
	Keyword         string // Case-insensitive substring of title or category
	Type            model.TransactionType
	RecurringStatus model.RecurringStatus
}

// FindOptions controls ordering and paging of FindTransactions.
// A zero Limit returns every match.
type FindOptions struct {
	Sort   SortOrder
	Limit  int
	Offset int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction writes
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	// InsertTransactions persists every transaction or none of them.
	InsertTransactions(ctx context.Context, txns []model.Transaction) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	// DeleteTransactions removes the owner's transactions among ids and
	// returns the ids that were actually deleted.
	DeleteTransactions(ctx context.Context, ownerID string, ids []string) ([]string, error)

	// Transaction reads
	GetTransactionByID(ctx context.Context, ownerID, id string) (*model.Transaction, error)
	FindTransactions(ctx context.Context, filter TransactionFilter, opts FindOptions) ([]model.Transaction, error)
	CountTransactions(ctx context.Context, filter TransactionFilter) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for external calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DateRange represents a time period with start and end dates.
// A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// IsOpen reports whether the range has no bounds at all.
func (r DateRange) IsOpen() bool {
	return r.Start == nil && r.End == nil
}
