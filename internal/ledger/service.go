// Package ledger implements transaction management on top of a Storage backend.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/validation"
	"github.com/google/uuid"
)

// Defaults applied by NewService.
const (
	DefaultMaxBatchSize    = 300
	DefaultDeleteChunkSize = 100
	DefaultDeleteWorkers   = 4
)

// ErrMissingOwner is returned when an operation is called without an owner.
var ErrMissingOwner = errors.New("owner id is required")

// Service manages the transactions of individual owners.
type Service struct {
	store           service.Storage
	now             func() time.Time
	newID           func() string
	maxBatchSize    int
	deleteChunkSize int
	deleteWorkers   int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides how new transaction ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithMaxBatchSize sets the largest batch BulkCreate accepts. Zero or less
// removes the limit.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		s.maxBatchSize = n
	}
}

// WithDeleteChunking controls how BulkDelete splits and parallelizes work.
func WithDeleteChunking(chunkSize, workers int) Option {
	return func(s *Service) {
		if chunkSize > 0 {
			s.deleteChunkSize = chunkSize
		}
		if workers > 0 {
			s.deleteWorkers = workers
		}
	}
}

// NewService creates a transaction service backed by store.
func NewService(store service.Storage, opts ...Option) *Service {
	s := &Service{
		store:           store,
		now:             time.Now,
		newID:           uuid.NewString,
		maxBatchSize:    DefaultMaxBatchSize,
		deleteChunkSize: DefaultDeleteChunkSize,
		deleteWorkers:   DefaultDeleteWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxBatchSize returns the configured BulkCreate ceiling; zero means unlimited.
func (s *Service) MaxBatchSize() int {
	return s.maxBatchSize
}

// Create validates raw and stores it as a new transaction.
func (s *Service) Create(ctx context.Context, ownerID string, raw validation.RawRecord) (*model.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	draft, err := validation.Validate(raw)
	if err != nil {
		return nil, err
	}

	txn := s.newTransaction(ownerID, draft, s.now().UTC())
	if err := s.store.InsertTransaction(ctx, &txn); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Debug("Created transaction", "id", txn.ID, "owner", ownerID, "type", txn.Type)
	return &txn, nil
}

// Get returns one of the owner's transactions. Transactions of other owners
// are reported as not found.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("transaction id is empty: %w", common.ErrNotFound)
	}
	return s.store.GetTransactionByID(ctx, ownerID, id)
}

// Update validates the fields present in raw, merges them into the stored
// transaction and refreshes its update time. An empty raw record returns the
// stored transaction untouched.
func (s *Service) Update(ctx context.Context, ownerID, id string, raw validation.RawRecord) (*model.Transaction, error) {
	patch, err := validation.ValidatePatch(raw)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return existing, nil
	}

	merged := patch.ApplyTo(existing.Draft())
	if err := validation.ValidateDraft(merged); err != nil {
		return nil, err
	}

	existing.Apply(merged)
	existing.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTransaction(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	return existing, nil
}

// Delete removes one of the owner's transactions.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("transaction id is empty: %w", common.ErrNotFound)
	}
	return s.store.DeleteTransaction(ctx, ownerID, id)
}

// Duplicate stores a copy of a transaction with a fresh id and timestamps.
// Every user-visible field, title included, is copied unchanged.
func (s *Service) Duplicate(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	original, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	dup := s.newTransaction(ownerID, original.Draft(), s.now().UTC())
	if err := s.store.InsertTransaction(ctx, &dup); err != nil {
		return nil, fmt.Errorf("failed to duplicate transaction %s: %w", id, err)
	}
	return &dup, nil
}

// BulkCreate validates every draft and then stores all of them atomically.
// Any invalid draft rejects the whole batch with a *validation.BatchError
// keyed by 1-based position.
func (s *Service) BulkCreate(ctx context.Context, ownerID string, drafts []model.TransactionDraft) ([]model.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if s.maxBatchSize > 0 && len(drafts) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d transactions, maximum is %d", common.ErrImportLimitExceeded, len(drafts), s.maxBatchSize)
	}

	drafts = append([]model.TransactionDraft(nil), drafts...)
	failures := make(map[int]*validation.Error)
	for i := range drafts {
		if drafts[i].RecurringStatus == "" {
			drafts[i].RecurringStatus = model.StatusNonRecurring
		}
		if err := validation.ValidateDraft(drafts[i]); err != nil {
			var verr *validation.Error
			if errors.As(err, &verr) {
				failures[i+1] = verr
				continue
			}
			return nil, err
		}
	}
	if len(failures) > 0 {
		return nil, &validation.BatchError{Failures: failures}
	}

	now := s.now().UTC()
	txns := make([]model.Transaction, len(drafts))
	for i, d := range drafts {
		txns[i] = s.newTransaction(ownerID, d, now)
	}

	if err := s.store.InsertTransactions(ctx, txns); err != nil {
		return nil, fmt.Errorf("failed to store %d transactions: %w", len(txns), err)
	}

	slog.Info("Created transactions in bulk", "owner", ownerID, "count", len(txns))
	return txns, nil
}

func (s *Service) newTransaction(ownerID string, d model.TransactionDraft, now time.Time) model.Transaction {
	txn := model.Transaction{
		ID:        s.newID(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	txn.Apply(d)
	return txn
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return ErrMissingOwner
	}
	return nil
}
