package mongo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"expensemanager/internal/core"
	"expensemanager/internal/ports"
	store "expensemanager/internal/storage/mongo"
)

// Mock for DataStore interface.
type mockDataStore struct {
	insertOneFunc        func(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	findOneFunc          func(ctx context.Context, filter interface{}) *mongo.SingleResult
	findFunc             func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	replaceOneFunc       func(ctx context.Context, filter, replacement interface{}) (*mongo.UpdateResult, error)
	findOneAndUpdateFunc func(ctx context.Context, filter, update interface{}) *mongo.SingleResult
}

func (m *mockDataStore) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if m.insertOneFunc != nil {
		return m.insertOneFunc(ctx, document)
	}
	return &mongo.InsertOneResult{}, nil
}

func (m *mockDataStore) FindOne(ctx context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if m.findOneFunc != nil {
		return m.findOneFunc(ctx, filter)
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (m *mockDataStore) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, opts...)
	}
	return mongo.NewCursorFromDocuments(nil, nil, nil)
}

func (m *mockDataStore) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, _ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if m.replaceOneFunc != nil {
		return m.replaceOneFunc(ctx, filter, replacement)
	}
	return &mongo.UpdateResult{}, nil
}

func (m *mockDataStore) DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (m *mockDataStore) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, _ ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	if m.findOneAndUpdateFunc != nil {
		return m.findOneAndUpdateFunc(ctx, filter, update)
	}
	return mongo.NewSingleResultFromDocument(bson.M{"_id": "expenses", "seq": int64(1)}, nil, nil)
}

// Mock for CollectionProvider interface.
type mockCollectionProvider struct {
	collections map[string]*mockDataStore
}

func (m *mockCollectionProvider) Collection(name string) store.DataStore {
	if ds, ok := m.collections[name]; ok {
		return ds
	}
	return &mockDataStore{}
}

func TestInsertAllocatesSequentialID(t *testing.T) {
	var inserted bson.M
	expenses := &mockDataStore{
		insertOneFunc: func(_ context.Context, document interface{}) (*mongo.InsertOneResult, error) {
			raw, err := bson.Marshal(document)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if err := bson.Unmarshal(raw, &inserted); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			return &mongo.InsertOneResult{InsertedID: inserted["_id"]}, nil
		},
	}
	counters := &mockDataStore{
		findOneAndUpdateFunc: func(_ context.Context, filter, _ interface{}) *mongo.SingleResult {
			if filter.(bson.M)["_id"] != "expenses" {
				t.Errorf("unexpected counter filter %v", filter)
			}
			return mongo.NewSingleResultFromDocument(bson.M{"_id": "expenses", "seq": int64(7)}, nil, nil)
		},
	}
	provider := &mockCollectionProvider{collections: map[string]*mockDataStore{
		store.ExpensesCollection: expenses,
		store.CountersCollection: counters,
	}}

	s := store.NewStore(provider)
	got, err := s.Insert(context.Background(), core.Expense{
		ExpenseDate:   "2024-05-01",
		Category:      "Travel",
		PaymentMethod: "Card",
		Amount:        decimal.NewNullDecimal(decimal.RequireFromString("99.90")),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got.ID != "EXP-0007" {
		t.Errorf("expected EXP-0007, got %s", got.ID)
	}
	if inserted["_id"] != int64(7) || inserted["category"] != "Travel" {
		t.Errorf("unexpected stored document %v", inserted)
	}
	if _, ok := inserted["amount"].(primitive.Decimal128); !ok {
		t.Errorf("amount should be stored as Decimal128, got %T", inserted["amount"])
	}
}

func TestInsertCounterError(t *testing.T) {
	counters := &mockDataStore{
		findOneAndUpdateFunc: func(context.Context, interface{}, interface{}) *mongo.SingleResult {
			return mongo.NewSingleResultFromDocument(bson.D{}, errors.New("counter down"), nil)
		},
	}
	s := store.NewStore(&mockCollectionProvider{collections: map[string]*mockDataStore{
		store.CountersCollection: counters,
	}})
	if _, err := s.Insert(context.Background(), core.Expense{}); err == nil {
		t.Fatal("expected error when the counter cannot be incremented")
	}
}

func TestGetDecodesAndMapsNotFound(t *testing.T) {
	amount, _ := primitive.ParseDecimal128("12.50")
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expenses := &mockDataStore{
		findOneFunc: func(_ context.Context, filter interface{}) *mongo.SingleResult {
			if filter.(bson.M)["_id"] != int64(3) {
				return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
			}
			return mongo.NewSingleResultFromDocument(bson.M{
				"_id": int64(3), "expense_date": "2024-05-01", "category": "Food",
				"amount": amount, "description": "Lunch", "payment_method": "Cash",
				"owner": "alice", "created_at": created,
			}, nil, nil)
		},
	}
	s := store.NewStore(&mockCollectionProvider{collections: map[string]*mockDataStore{
		store.ExpensesCollection: expenses,
	}})

	got, err := s.Get(context.Background(), "EXP-0003")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Food" || !got.Amount.Decimal.Equal(decimal.RequireFromString("12.5")) || !got.Creation.Equal(created) {
		t.Errorf("unexpected expense %+v", got)
	}

	if _, err := s.Get(context.Background(), "EXP-0004"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListBuildsFilterAndPage(t *testing.T) {
	var (
		gotFilter bson.M
		gotOpts   *options.FindOptions
	)
	expenses := &mockDataStore{
		findFunc: func(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
			gotFilter = filter.(bson.M)
			gotOpts = opts[0]
			return mongo.NewCursorFromDocuments([]interface{}{
				bson.M{"_id": int64(6), "expense_date": "2024-01-06", "category": "Travel", "payment_method": "Card"},
			}, nil, nil)
		},
	}
	s := store.NewStore(&mockCollectionProvider{collections: map[string]*mockDataStore{
		store.ExpensesCollection: expenses,
	}})

	got, err := s.List(context.Background(),
		core.ListFilter{From: "2024-01-01", To: "2024-01-10", Category: "Travel"}, 5, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "EXP-0006" || got[0].Amount.Valid {
		t.Fatalf("unexpected page %+v", got)
	}

	date := gotFilter["expense_date"].(bson.M)
	if date["$gte"] != "2024-01-01" || date["$lte"] != "2024-01-10" || gotFilter["category"] != "Travel" {
		t.Errorf("unexpected filter %v", gotFilter)
	}
	if _, ok := gotFilter["payment_method"]; ok {
		t.Errorf("empty payment method should not be filtered")
	}
	if *gotOpts.Skip != 5 || *gotOpts.Limit != 5 {
		t.Errorf("unexpected skip/limit %d/%d", *gotOpts.Skip, *gotOpts.Limit)
	}
}

func TestListFilterDocumentEmpty(t *testing.T) {
	if f := store.ListFilterDocument(core.ListFilter{}); len(f) != 0 {
		t.Errorf("expected empty filter, got %v", f)
	}
}

func TestSaveUserUpsertsRoles(t *testing.T) {
	var replaced bson.M
	users := &mockDataStore{
		replaceOneFunc: func(_ context.Context, _, replacement interface{}) (*mongo.UpdateResult, error) {
			raw, _ := bson.Marshal(replacement)
			_ = bson.Unmarshal(raw, &replaced)
			return &mongo.UpdateResult{UpsertedCount: 1}, nil
		},
	}
	s := store.NewStore(&mockCollectionProvider{collections: map[string]*mockDataStore{
		store.UsersCollection: users,
	}})

	err := s.SaveUser(context.Background(), core.User{
		Username: "admin", PasswordHash: "h", Enabled: true, Roles: []core.Role{core.SystemManager},
	})
	if err != nil {
		t.Fatalf("save user: %v", err)
	}
	roles, _ := replaced["roles"].(bson.A)
	if replaced["_id"] != "admin" || len(roles) != 1 || roles[0] != string(core.SystemManager) {
		t.Errorf("unexpected user document %v", replaced)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := store.NewStore(&mockCollectionProvider{})
	if _, err := s.GetSession(context.Background(), "missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
