package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mock for Collection interface.
type mockCollection struct {
	insertOneFunc      func(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	insertManyFunc     func(ctx context.Context, documents []interface{}) (*mongo.InsertManyResult, error)
	findFunc           func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	countDocumentsFunc func(ctx context.Context, filter interface{}) (int64, error)
	replaceOneFunc     func(ctx context.Context, filter, replacement interface{}) (*mongo.UpdateResult, error)
	deleteOneFunc      func(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
	deleteManyFunc     func(ctx context.Context, filter interface{}) (*mongo.DeleteResult, error)
}

func (m *mockCollection) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if m.insertOneFunc != nil {
		return m.insertOneFunc(ctx, document)
	}
	return &mongo.InsertOneResult{}, nil
}

func (m *mockCollection) InsertMany(ctx context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if m.insertManyFunc != nil {
		return m.insertManyFunc(ctx, documents)
	}
	return &mongo.InsertManyResult{}, nil
}

func (m *mockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, opts...)
	}
	return mongo.NewCursorFromDocuments(nil, nil, nil)
}

func (m *mockCollection) CountDocuments(ctx context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	if m.countDocumentsFunc != nil {
		return m.countDocumentsFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, _ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if m.replaceOneFunc != nil {
		return m.replaceOneFunc(ctx, filter, replacement)
	}
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockCollection) DeleteOne(ctx context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if m.deleteOneFunc != nil {
		return m.deleteOneFunc(ctx, filter)
	}
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (m *mockCollection) DeleteMany(ctx context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	if m.deleteManyFunc != nil {
		return m.deleteManyFunc(ctx, filter)
	}
	return &mongo.DeleteResult{}, nil
}

// Mock for Transactor interface.
type mockTransactor struct {
	calls int
	err   error
}

func (m *mockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx)
}

type mockIndexes struct {
	models []mongo.IndexModel
}

func (m *mockIndexes) CreateMany(_ context.Context, models []mongo.IndexModel, _ ...*options.CreateIndexesOptions) ([]string, error) {
	m.models = models
	return []string{"a", "b", "c"}, nil
}

func sampleDocument(t *testing.T) transactionDocument {
	t.Helper()
	txn := createTestTransactions(testOwner, 1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))[0]
	txn.RecurringStatus = model.StatusRecurring
	txn.Recurrence = &model.RecurrenceRule{Interval: model.IntervalMonthly, Count: 1}
	doc, err := toDocument(&txn)
	require.NoError(t, err)
	return doc
}

func TestMongoStorage_DocumentRoundTrip(t *testing.T) {
	doc := sampleDocument(t)
	txn, err := doc.toModel()
	require.NoError(t, err)

	assert.Equal(t, "10.25", txn.Amount.String())
	assert.Equal(t, &model.RecurrenceRule{Interval: model.IntervalMonthly, Count: 1}, txn.Recurrence)
	assert.Equal(t, testOwner, txn.OwnerID)
}

func TestMongoStorage_InsertTransactionsUsesTransaction(t *testing.T) {
	var inserted []interface{}
	coll := &mockCollection{
		insertManyFunc: func(_ context.Context, documents []interface{}) (*mongo.InsertManyResult, error) {
			inserted = documents
			return &mongo.InsertManyResult{}, nil
		},
	}
	tx := &mockTransactor{}
	store := NewMongoStorageWith(coll, nil, tx)

	txns := createTestTransactions(testOwner, 3, time.Now())
	require.NoError(t, store.InsertTransactions(context.Background(), txns))
	assert.Equal(t, 1, tx.calls)
	assert.Len(t, inserted, 3)
}

func TestMongoStorage_InsertTransactionsFailure(t *testing.T) {
	tx := &mockTransactor{err: errors.New("transaction aborted")}
	store := NewMongoStorageWith(&mockCollection{}, nil, tx)

	err := store.InsertTransactions(context.Background(), createTestTransactions(testOwner, 2, time.Now()))
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestMongoStorage_GetTransactionByID(t *testing.T) {
	doc := sampleDocument(t)

	t.Run("found", func(t *testing.T) {
		coll := &mockCollection{
			findFunc: func(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
				f, ok := filter.(bson.M)
				require.True(t, ok)
				assert.Equal(t, testOwner, f["ownerId"])
				assert.Equal(t, int64(1), *opts[0].Limit)
				return mongo.NewCursorFromDocuments([]interface{}{doc}, nil, nil)
			},
		}
		store := NewMongoStorageWith(coll, nil, &mockTransactor{})

		txn, err := store.GetTransactionByID(context.Background(), testOwner, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, txn.ID)
		assert.Equal(t, doc.Title, txn.Title)
	})

	t.Run("missing", func(t *testing.T) {
		store := NewMongoStorageWith(&mockCollection{}, nil, &mockTransactor{})
		_, err := store.GetTransactionByID(context.Background(), testOwner, "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestMongoStorage_FindTransactions(t *testing.T) {
	doc := sampleDocument(t)
	var gotFilter bson.M
	var gotOpts *options.FindOptions
	coll := &mockCollection{
		findFunc: func(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
			gotFilter = filter.(bson.M)
			gotOpts = opts[0]
			return mongo.NewCursorFromDocuments([]interface{}{doc}, nil, nil)
		},
	}
	store := NewMongoStorageWith(coll, nil, &mockTransactor{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txns, err := store.FindTransactions(context.Background(), service.TransactionFilter{
		OwnerID:   testOwner,
		Keyword:   "rent",
		Type:      model.TypeExpense,
		StartDate: &start,
	}, service.FindOptions{Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, doc.ID, txns[0].ID)

	assert.Equal(t, "EXPENSE", gotFilter["type"])
	assert.Equal(t, bson.M{"$gte": start}, gotFilter["date"])
	assert.Equal(t, bson.A{
		bson.M{"title": primitive.Regex{Pattern: "(?i)rent"}},
		bson.M{"category": primitive.Regex{Pattern: "(?i)rent"}},
	}, gotFilter["$or"])
	require.NotNil(t, gotOpts.Limit)
	assert.Equal(t, int64(20), *gotOpts.Limit)
	assert.Equal(t, int64(40), *gotOpts.Skip)
}

func TestMongoStorage_UpdateAndDeleteNotFound(t *testing.T) {
	coll := &mockCollection{
		replaceOneFunc: func(context.Context, interface{}, interface{}) (*mongo.UpdateResult, error) {
			return &mongo.UpdateResult{MatchedCount: 0}, nil
		},
		deleteOneFunc: func(context.Context, interface{}) (*mongo.DeleteResult, error) {
			return &mongo.DeleteResult{DeletedCount: 0}, nil
		},
	}
	store := NewMongoStorageWith(coll, nil, &mockTransactor{})
	txn := createTestTransactions(testOwner, 1, time.Now())[0]

	assert.ErrorIs(t, store.UpdateTransaction(context.Background(), &txn), common.ErrNotFound)
	assert.ErrorIs(t, store.DeleteTransaction(context.Background(), testOwner, txn.ID), common.ErrNotFound)
}

func TestMongoStorage_DeleteTransactions(t *testing.T) {
	var deletedFilter bson.M
	coll := &mockCollection{
		findFunc: func(context.Context, interface{}, ...*options.FindOptions) (*mongo.Cursor, error) {
			return mongo.NewCursorFromDocuments([]interface{}{bson.M{"_id": "a"}, bson.M{"_id": "c"}}, nil, nil)
		},
		deleteManyFunc: func(_ context.Context, filter interface{}) (*mongo.DeleteResult, error) {
			deletedFilter = filter.(bson.M)
			return &mongo.DeleteResult{DeletedCount: 2}, nil
		},
	}
	store := NewMongoStorageWith(coll, nil, &mockTransactor{})

	deleted, err := store.DeleteTransactions(context.Background(), testOwner, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, deleted)
	assert.Equal(t, bson.M{"$in": []string{"a", "c"}}, deletedFilter["_id"])
}

func TestMongoStorage_Migrate(t *testing.T) {
	idx := &mockIndexes{}
	store := NewMongoStorageWith(&mockCollection{}, idx, &mockTransactor{})

	require.NoError(t, store.Migrate(context.Background()))
	assert.Len(t, idx.models, 3)
	assert.NoError(t, store.Close())
}
