// Package importer maps spreadsheet-like rows onto transactions and commits
// them to the ledger in one atomic batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/validation"
)

// DefaultTickInterval is how often progress advances while the commit runs.
const DefaultTickInterval = 500 * time.Millisecond

// ErrNoRows is returned when a request carries nothing to import.
var ErrNoRows = errors.New("no rows to import")

// Creator persists a validated batch atomically.
type Creator interface {
	BulkCreate(ctx context.Context, ownerID string, drafts []model.TransactionDraft) ([]model.Transaction, error)
	MaxBatchSize() int
}

// Request describes one import.
type Request struct {
	Mapping  Mapping
	Defaults validation.RawRecord
	OwnerID  string
	// Columns is the source column order; it decides which column wins
	// when two map to the same field.
	Columns []string
	Rows    []Row
}

// RowResult is the outcome of validating one row. Row is 1-based.
type RowResult struct {
	Draft *model.TransactionDraft
	Error string
	Row   int
}

// RowErrors lists every rejected row by 1-based row number. Each message holds
// one "field: message" line per issue.
type RowErrors struct {
	Rows map[int]string
}

func (e *RowErrors) Error() string {
	if len(e.Rows) == 1 {
		return "1 row failed validation"
	}
	return fmt.Sprintf("%d rows failed validation", len(e.Rows))
}

// Is reports whether target is common.ErrValidationFailed.
func (e *RowErrors) Is(target error) bool {
	return target == common.ErrValidationFailed
}

// Numbers returns the failing row numbers in ascending order.
func (e *RowErrors) Numbers() []int {
	rows := make([]int, 0, len(e.Rows))
	for r := range e.Rows {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return rows
}

// Result summarizes a committed import.
type Result struct {
	Transactions []model.Transaction
	Rows         []RowResult
}

// Engine runs imports against a Creator.
type Engine struct {
	creator      Creator
	tickInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTickInterval sets how often progress advances during the commit. Zero
// disables ticking.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// NewEngine creates an import engine that commits through creator.
func NewEngine(creator Creator, opts ...Option) *Engine {
	e := &Engine{
		creator:      creator,
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Import validates every row and, if all pass, stores them in one batch.
// Nothing is stored when any row fails, the batch is too large or ctx is
// canceled before the commit. Progress may be nil.
func (e *Engine) Import(ctx context.Context, req Request, progress ProgressFunc) (res *Result, err error) {
	t := newTracker(progress)
	defer func() {
		if err != nil {
			t.reset()
		}
	}()

	if len(req.Rows) == 0 {
		return nil, ErrNoRows
	}
	t.advance(progressStart)

	results, err := e.validateRows(ctx, req, t)
	if err != nil {
		return nil, err
	}

	drafts := make([]model.TransactionDraft, len(results))
	for i, r := range results {
		drafts[i] = *r.Draft
	}

	if limit := e.creator.MaxBatchSize(); limit > 0 && len(drafts) > limit {
		return nil, fmt.Errorf("%w: %d rows, maximum is %d", common.ErrImportLimitExceeded, len(drafts), limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := t.tick(e.tickInterval)
	txns, err := e.creator.BulkCreate(ctx, req.OwnerID, drafts)
	stop()
	if err != nil {
		return nil, err
	}

	t.advance(progressDone)
	slog.Info("Import completed", "owner", req.OwnerID, "rows", len(req.Rows), "imported", len(txns))

	return &Result{Transactions: txns, Rows: results}, nil
}

// validateRows never stops at the first failure so every bad row is reported.
func (e *Engine) validateRows(ctx context.Context, req Request, t *tracker) ([]RowResult, error) {
	results := make([]RowResult, 0, len(req.Rows))
	failures := make(map[int]string)

	for i, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := i + 1
		draft, err := validation.Validate(req.Mapping.apply(row, req.Columns, req.Defaults))
		if err != nil {
			failures[n] = rowMessage(err)
		} else {
			results = append(results, RowResult{Row: n, Draft: &draft})
		}
		t.advance(validationProgress(n, len(req.Rows)))
	}

	if len(failures) > 0 {
		slog.Debug("Import rejected", "owner", req.OwnerID, "failed_rows", len(failures))
		return nil, &RowErrors{Rows: failures}
	}
	return results, nil
}

func rowMessage(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return strings.Join(verr.Messages(), "\n")
	}
	return err.Error()
}
