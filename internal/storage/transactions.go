package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

const transactionColumns = `id, owner_id, title, description, amount, type, category, payment_method,
	date, recurring_status, recurring_interval, recurring_interval_count, created_at, updated_at`

const insertTransactionSQL = `INSERT INTO transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertTransaction saves a single transaction.
func (s *SQLStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(insertTransactionSQL), insertArgs(txn)...); err != nil {
		return storeErr("insert transaction", err)
	}
	return nil
}

// InsertTransactions saves all transactions in one database transaction.
// Either every row is written or none is.
func (s *SQLStorage) InsertTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(insertTransactionSQL))
	if err != nil {
		return storeErr("prepare statement", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		if _, err := stmt.ExecContext(ctx, insertArgs(&transactions[i])...); err != nil {
			return storeErr(fmt.Sprintf("insert transaction %s", transactions[i].ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction owned by ownerID.
func (s *SQLStorage) GetTransactionByID(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := s.dialect.rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND owner_id = ?`)
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get transaction", err)
	}
	return txn, nil
}

// FindTransactions returns the transactions matching filter in the requested order.
func (s *SQLStorage) FindTransactions(ctx context.Context, filter service.TransactionFilter, opts service.FindOptions) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(filter.OwnerID, "ownerID"); err != nil {
		return nil, err
	}

	where, args := s.whereClause(filter)

	var b strings.Builder
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where)
	switch opts.Sort {
	case service.SortDateAsc:
		b.WriteString(` ORDER BY date ASC, created_at ASC, id ASC`)
	default:
		b.WriteString(` ORDER BY date DESC, created_at DESC, id DESC`)
	}
	if opts.Limit > 0 {
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(b.String()), args...)
	if err != nil {
		return nil, storeErr("query transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, storeErr("scan transaction", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate transactions", err)
	}
	return transactions, nil
}

// CountTransactions returns how many transactions match filter.
func (s *SQLStorage) CountTransactions(ctx context.Context, filter service.TransactionFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(filter.OwnerID, "ownerID"); err != nil {
		return 0, err
	}

	where, args := s.whereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM transactions WHERE `+where), args...).Scan(&count)
	if err != nil {
		return 0, storeErr("count transactions", err)
	}
	return count, nil
}

// UpdateTransaction overwrites the editable fields of an existing transaction.
func (s *SQLStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	interval, count := recurrenceArgs(txn)
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		UPDATE transactions SET
			title = ?, description = ?, amount = ?, type = ?, category = ?, payment_method = ?,
			date = ?, recurring_status = ?, recurring_interval = ?, recurring_interval_count = ?,
			updated_at = ?
		WHERE id = ? AND owner_id = ?`),
		txn.Title, txn.Description, txn.Amount, string(txn.Type), txn.Category, string(txn.PaymentMethod),
		txn.Date.UTC(), string(txn.RecurringStatus), interval, count,
		txn.UpdatedAt.UTC(),
		txn.ID, txn.OwnerID,
	)
	if err != nil {
		return storeErr("update transaction", err)
	}
	return requireAffected(result, txn.ID)
}

// DeleteTransaction removes one transaction owned by ownerID.
func (s *SQLStorage) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM transactions WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return storeErr("delete transaction", err)
	}
	return requireAffected(result, id)
}

// DeleteTransactions removes the owner's transactions among ids and returns
// the ids that existed and were deleted.
func (s *SQLStorage) DeleteTransactions(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, s.dialect.rebind(`SELECT id FROM transactions WHERE owner_id = ? AND id IN (`+placeholders+`)`), args...)
	if err != nil {
		return nil, storeErr("find transactions to delete", err)
	}
	var found []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			_ = rows.Close()
			return nil, storeErr("scan transaction id", scanErr)
		}
		found = append(found, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate transaction ids", err)
	}

	if len(found) > 0 {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM transactions WHERE owner_id = ? AND id IN (`+placeholders+`)`), args...); err != nil {
			return nil, storeErr("delete transactions", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit transaction", err)
	}
	return found, nil
}

func (s *SQLStorage) whereClause(f service.TransactionFilter) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{f.OwnerID}

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		conds = append(conds, "("+s.dialect.keywordMatch("title")+" OR "+s.dialect.keywordMatch("category")+")")
		pattern := likePattern(casefold(kw))
		args = append(args, pattern, pattern)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.RecurringStatus != "" {
		conds = append(conds, "recurring_status = ?")
		args = append(args, string(f.RecurringStatus))
	}
	if f.StartDate != nil {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate.UTC())
	}
	return strings.Join(conds, " AND "), args
}

// likePattern escapes LIKE wildcards so the keyword matches literally.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr("read affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func recurrenceArgs(txn *model.Transaction) (sql.NullString, sql.NullInt64) {
	if txn.Recurrence == nil {
		return sql.NullString{}, sql.NullInt64{}
	}
	return sql.NullString{String: string(txn.Recurrence.Interval), Valid: true},
		sql.NullInt64{Int64: int64(txn.Recurrence.Count), Valid: true}
}

func insertArgs(txn *model.Transaction) []any {
	interval, count := recurrenceArgs(txn)
	return []any{
		txn.ID,
		txn.OwnerID,
		txn.Title,
		txn.Description,
		txn.Amount,
		string(txn.Type),
		txn.Category,
		string(txn.PaymentMethod),
		txn.Date.UTC(),
		string(txn.RecurringStatus),
		interval,
		count,
		txn.CreatedAt.UTC(),
		txn.UpdatedAt.UTC(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn           model.Transaction
		txnType       string
		paymentMethod string
		status        string
		interval      sql.NullString
		intervalCount sql.NullInt64
	)

	err := row.Scan(
		&txn.ID,
		&txn.OwnerID,
		&txn.Title,
		&txn.Description,
		&txn.Amount,
		&txnType,
		&txn.Category,
		&paymentMethod,
		&txn.Date,
		&status,
		&interval,
		&intervalCount,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = model.TransactionType(txnType)
	txn.PaymentMethod = model.PaymentMethod(paymentMethod)
	txn.RecurringStatus = model.RecurringStatus(status)
	if interval.Valid {
		txn.Recurrence = &model.RecurrenceRule{
			Interval: model.RecurringInterval(interval.String),
			Count:    int(intervalCount.Int64),
		}
	}
	txn.Date = txn.Date.UTC()
	txn.CreatedAt = txn.CreatedAt.UTC()
	txn.UpdatedAt = txn.UpdatedAt.UTC()
	return &txn, nil
}
