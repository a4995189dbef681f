// Package testutil provides shared test helpers: an isolated SQLite ledger and
// fluent builders for transaction fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// TestDB represents a migrated in-memory ledger database.
type TestDB struct {
	Storage *storage.SQLStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory SQLite ledger, runs migrations and seeds
// the given transactions. Cleanup is registered on t.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewTransaction("owner").Income("2500").On(2024, 3, 1).Build(),
//	)
func SetupTestDB(t *testing.T, seed ...model.Transaction) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, t: t}
	db.Seed(seed...)
	return db
}

// Seed inserts transactions or fails the test.
func (db *TestDB) Seed(txns ...model.Transaction) {
	db.t.Helper()
	if len(txns) == 0 {
		return
	}
	if err := db.Storage.InsertTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// MustGet returns a stored transaction or fails the test.
func (db *TestDB) MustGet(ownerID, id string) *model.Transaction {
	db.t.Helper()
	txn, err := db.Storage.GetTransactionByID(context.Background(), ownerID, id)
	if err != nil {
		db.t.Fatalf("failed to get transaction %s: %v", id, err)
	}
	return txn
}
