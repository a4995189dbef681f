package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollectionName = "transactions"

// ---- Abstractions for Testability ----

// Collection is the subset of *mongo.Collection used by MongoStorage.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// IndexCreator creates collection indexes; mongo.IndexView satisfies it.
type IndexCreator interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

// Transactor runs fn inside a multi-document transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// sessionTransactor adapts *mongo.Client sessions to Transactor.
type sessionTransactor struct {
	client *mongo.Client
}

func (s sessionTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

var _ service.Storage = (*MongoStorage)(nil)

// MongoStorage implements the Storage interface on a MongoDB collection.
type MongoStorage struct {
	coll       Collection
	indexes    IndexCreator
	transactor Transactor
	disconnect func(ctx context.Context) error
}

// NewMongoStorage connects to MongoDB and uses the transactions collection of database.
// Atomic batch inserts require a replica set or sharded cluster.
func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	if err := validateString(uri, "uri"); err != nil {
		return nil, err
	}
	if err := validateString(database, "database"); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, storeErr("connect to MongoDB", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, storeErr("ping MongoDB", err)
	}
	slog.Debug("Connected to MongoDB", "database", database)

	coll := client.Database(database).Collection(mongoCollectionName)
	s := NewMongoStorageWith(coll, coll.Indexes(), sessionTransactor{client: client})
	s.disconnect = client.Disconnect
	return s, nil
}

// NewMongoStorageWith builds a MongoStorage from already constructed parts.
func NewMongoStorageWith(coll Collection, indexes IndexCreator, transactor Transactor) *MongoStorage {
	return &MongoStorage{coll: coll, indexes: indexes, transactor: transactor}
}

// transactionDocument is the BSON shape of a stored transaction.
type transactionDocument struct {
	Date            time.Time            `bson:"date"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
	ID              string               `bson:"_id"`
	OwnerID         string               `bson:"ownerId"`
	Title           string               `bson:"title"`
	Description     string               `bson:"description,omitempty"`
	Type            string               `bson:"type"`
	Category        string               `bson:"category"`
	PaymentMethod   string               `bson:"paymentMethod,omitempty"`
	RecurringStatus string               `bson:"recurringStatus"`
	Interval        string               `bson:"recurringInterval,omitempty"`
	Amount          primitive.Decimal128 `bson:"amount"`
	IntervalCount   int                  `bson:"recurringIntervalCount,omitempty"`
}

func toDocument(txn *model.Transaction) (transactionDocument, error) {
	amount, err := primitive.ParseDecimal128(txn.Amount.String())
	if err != nil {
		return transactionDocument{}, fmt.Errorf("%w: amount %s: %w", ErrInvalidTransaction, txn.Amount, err)
	}
	doc := transactionDocument{
		Date:            txn.Date.UTC(),
		CreatedAt:       txn.CreatedAt.UTC(),
		UpdatedAt:       txn.UpdatedAt.UTC(),
		ID:              txn.ID,
		OwnerID:         txn.OwnerID,
		Title:           txn.Title,
		Description:     txn.Description,
		Type:            string(txn.Type),
		Category:        txn.Category,
		PaymentMethod:   string(txn.PaymentMethod),
		RecurringStatus: string(txn.RecurringStatus),
		Amount:          amount,
	}
	if txn.Recurrence != nil {
		doc.Interval = string(txn.Recurrence.Interval)
		doc.IntervalCount = txn.Recurrence.Count
	}
	return doc, nil
}

func (d transactionDocument) toModel() (*model.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode amount of %s: %w", d.ID, err)
	}
	txn := &model.Transaction{
		Date:            d.Date.UTC(),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Amount:          amount,
		ID:              d.ID,
		OwnerID:         d.OwnerID,
		Title:           d.Title,
		Description:     d.Description,
		Type:            model.TransactionType(d.Type),
		Category:        d.Category,
		PaymentMethod:   model.PaymentMethod(d.PaymentMethod),
		RecurringStatus: model.RecurringStatus(d.RecurringStatus),
	}
	if d.Interval != "" {
		txn.Recurrence = &model.RecurrenceRule{Interval: model.RecurringInterval(d.Interval), Count: d.IntervalCount}
	}
	return txn, nil
}

// InsertTransaction saves a single transaction.
func (s *MongoStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	doc, err := toDocument(txn)
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return storeErr("insert transaction", err)
	}
	return nil
}

// InsertTransactions saves all transactions inside one MongoDB transaction.
func (s *MongoStorage) InsertTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(transactions))
	for i := range transactions {
		doc, err := toDocument(&transactions[i])
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		_, insertErr := s.coll.InsertMany(ctx, docs)
		return insertErr
	})
	if err != nil {
		return storeErr("insert transactions", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction owned by ownerID.
func (s *MongoStorage) GetTransactionByID(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	cursor, err := s.coll.Find(ctx, bson.M{"_id": id, "ownerId": ownerID}, options.Find().SetLimit(1))
	if err != nil {
		return nil, storeErr("get transaction", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, storeErr("get transaction", err)
		}
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	var doc transactionDocument
	if err := cursor.Decode(&doc); err != nil {
		return nil, storeErr("decode transaction", err)
	}
	return doc.toModel()
}

// FindTransactions returns the transactions matching filter in the requested order.
func (s *MongoStorage) FindTransactions(ctx context.Context, filter service.TransactionFilter, opts service.FindOptions) ([]model.Transaction, error) {
	if err := validateString(filter.OwnerID, "ownerID"); err != nil {
		return nil, err
	}

	dir := -1
	if opts.Sort == service.SortDateAsc {
		dir = 1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "date", Value: dir}, {Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit)).SetSkip(int64(max(opts.Offset, 0)))
	}

	cursor, err := s.coll.Find(ctx, mongoFilter(filter), findOpts)
	if err != nil {
		return nil, storeErr("query transactions", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var transactions []model.Transaction
	for cursor.Next(ctx) {
		var doc transactionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, storeErr("decode transaction", err)
		}
		txn, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := cursor.Err(); err != nil {
		return nil, storeErr("iterate transactions", err)
	}
	return transactions, nil
}

// CountTransactions returns how many transactions match filter.
func (s *MongoStorage) CountTransactions(ctx context.Context, filter service.TransactionFilter) (int, error) {
	if err := validateString(filter.OwnerID, "ownerID"); err != nil {
		return 0, err
	}
	n, err := s.coll.CountDocuments(ctx, mongoFilter(filter))
	if err != nil {
		return 0, storeErr("count transactions", err)
	}
	return int(n), nil
}

// UpdateTransaction replaces an existing transaction document.
func (s *MongoStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateTransaction(txn); err != nil {
		return err
	}
	doc, err := toDocument(txn)
	if err != nil {
		return err
	}

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": txn.ID, "ownerId": txn.OwnerID}, doc)
	if err != nil {
		return storeErr("update transaction", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes one transaction owned by ownerID.
func (s *MongoStorage) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return storeErr("delete transaction", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteTransactions removes the owner's transactions among ids and returns
// the ids that existed and were deleted.
func (s *MongoStorage) DeleteTransactions(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	filter := bson.M{"ownerId": ownerID, "_id": bson.M{"$in": ids}}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, storeErr("find transactions to delete", err)
	}
	var found []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &found); err != nil {
		return nil, storeErr("read transaction ids", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	deleted := make([]string, len(found))
	for i, f := range found {
		deleted[i] = f.ID
	}
	if _, err := s.coll.DeleteMany(ctx, bson.M{"ownerId": ownerID, "_id": bson.M{"$in": deleted}}); err != nil {
		return nil, storeErr("delete transactions", err)
	}
	return deleted, nil
}

// Migrate ensures the query indexes exist.
func (s *MongoStorage) Migrate(ctx context.Context) error {
	if s.indexes == nil {
		return nil
	}
	names, err := s.indexes.CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "recurringStatus", Value: 1}}},
	})
	if err != nil {
		return storeErr("create indexes", err)
	}
	slog.Info("Ensured MongoDB indexes", "indexes", names)
	return nil
}

// Close disconnects the client when this storage owns it.
func (s *MongoStorage) Close() error {
	if s.disconnect == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.disconnect(ctx)
}

func mongoFilter(f service.TransactionFilter) bson.M {
	filter := bson.M{"ownerId": f.OwnerID}
	if f.Keyword != "" {
		re := primitive.Regex{Pattern: common.KeywordPattern(f.Keyword)}
		filter["$or"] = bson.A{bson.M{"title": re}, bson.M{"category": re}}
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.RecurringStatus != "" {
		filter["recurringStatus"] = string(f.RecurringStatus)
	}
	if f.StartDate != nil || f.EndDate != nil {
		dateRange := bson.M{}
		if f.StartDate != nil {
			dateRange["$gte"] = f.StartDate.UTC()
		}
		if f.EndDate != nil {
			dateRange["$lte"] = f.EndDate.UTC()
		}
		filter["date"] = dateRange
	}
	return filter
}
