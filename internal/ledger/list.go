package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/validation"
)

// Pagination defaults.
const (
	DefaultPageSize   = 20
	DefaultPageNumber = 1
)

// ListFilter narrows the transactions returned by List. Empty fields match
// everything.
type ListFilter struct {
	Keyword         string
	Type            string
	RecurringStatus string
}

// Pagination selects a page of results. TotalCount and TotalPages are only
// populated on results.
type Pagination struct {
	PageSize   int
	PageNumber int
	TotalCount int
	TotalPages int
}

// ListResult is one page of an owner's transactions.
type ListResult struct {
	Transactions []model.Transaction
	Pagination   Pagination
}

// List returns the owner's transactions newest first, filtered and paged.
// Out-of-range page values fall back to the defaults.
func (s *Service) List(ctx context.Context, ownerID string, filter ListFilter, page Pagination) (*ListResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	storeFilter, err := buildFilter(ownerID, filter)
	if err != nil {
		return nil, err
	}

	page = normalizePage(page)

	total, err := s.store.CountTransactions(ctx, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	txns, err := s.store.FindTransactions(ctx, storeFilter, service.FindOptions{
		Sort:   service.SortDateDesc,
		Limit:  page.PageSize,
		Offset: (page.PageNumber - 1) * page.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if txns == nil {
		txns = []model.Transaction{}
	}

	page.TotalCount = total
	page.TotalPages = (total + page.PageSize - 1) / page.PageSize

	return &ListResult{Transactions: txns, Pagination: page}, nil
}

func normalizePage(p Pagination) Pagination {
	out := Pagination{PageSize: p.PageSize, PageNumber: p.PageNumber}
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageNumber <= 0 {
		out.PageNumber = DefaultPageNumber
	}
	return out
}

func buildFilter(ownerID string, f ListFilter) (service.TransactionFilter, error) {
	txnType, status, err := validation.ValidateFilter(f.Type, f.RecurringStatus)
	if err != nil {
		return service.TransactionFilter{}, err
	}
	return service.TransactionFilter{
		OwnerID:         ownerID,
		Keyword:         strings.TrimSpace(f.Keyword),
		Type:            txnType,
		RecurringStatus: status,
	}, nil
}
