package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

const testOwner = "owner-1"

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create test transactions, one day apart starting at base.
func createTestTransactions(owner string, count int, base time.Time) []model.Transaction {
	txns := make([]model.Transaction, count)
	for i := 0; i < count; i++ {
		typ := model.TypeExpense
		if i%2 == 0 {
			typ = model.TypeIncome
		}
		created := base.Add(time.Duration(i) * time.Minute)
		txns[i] = model.Transaction{
			ID:              fmt.Sprintf("%s-txn-%03d", owner, i+1),
			OwnerID:         owner,
			Title:           fmt.Sprintf("Transaction #%d", i+1),
			Amount:          decimal.NewFromInt(int64(i+1) * 10).Add(decimal.RequireFromString("0.25")),
			Type:            typ,
			Category:        "Food",
			Date:            base.AddDate(0, 0, i),
			RecurringStatus: model.StatusNonRecurring,
			CreatedAt:       created,
			UpdatedAt:       created,
		}
	}
	return txns
}
