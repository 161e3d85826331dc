// Package mongo stores expenses, users, sessions and the error log in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"expensemanager/internal/core"
	"expensemanager/internal/ports"
)

const (
	ExpensesCollection = "expenses"
	CountersCollection = "counters"
	UsersCollection    = "users"
	SessionsCollection = "sessions"
	ErrorLogCollection = "error_log"

	expenseCounterID = "expenses"
)

type (
	expenseDoc struct {
		Seq           int64                 `bson:"_id"`
		ExpenseDate   string                `bson:"expense_date"`
		Category      string                `bson:"category"`
		Amount        *primitive.Decimal128 `bson:"amount,omitempty"`
		Description   string                `bson:"description"`
		PaymentMethod string                `bson:"payment_method"`
		Owner         string                `bson:"owner"`
		CreatedAt     time.Time             `bson:"created_at"`
	}

	counterDoc struct {
		ID  string `bson:"_id"`
		Seq int64  `bson:"seq"`
	}

	userDoc struct {
		Username     string   `bson:"_id"`
		FullName     string   `bson:"full_name"`
		PasswordHash string   `bson:"password_hash"`
		Enabled      bool     `bson:"enabled"`
		Roles        []string `bson:"roles"`
	}

	sessionDoc struct {
		SID       string    `bson:"_id"`
		Username  string    `bson:"username"`
		FullName  string    `bson:"full_name"`
		CreatedAt time.Time `bson:"created_at"`
		ExpiresAt time.Time `bson:"expires_at"`
	}

	errorDoc struct {
		Title     string    `bson:"title"`
		Message   string    `bson:"message"`
		CreatedAt time.Time `bson:"created_at"`
	}
)

// Store implements the storage ports on a CollectionProvider.
type Store struct {
	provider CollectionProvider
	now      func() time.Time
}

var (
	_ ports.ExpenseRepository = (*Store)(nil)
	_ ports.UserStore         = (*Store)(nil)
	_ ports.SessionStore      = (*Store)(nil)
	_ ports.ErrorLog          = (*Store)(nil)
)

func NewStore(provider CollectionProvider) *Store {
	return &Store{provider: provider, now: time.Now}
}

// nextSeq atomically increments the expense counter document.
func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var c counterDoc
	err := s.provider.Collection(CountersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": expenseCounterID}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("allocate expense id: %w", err)
	}
	return c.Seq, nil
}

func (s *Store) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	// BSON datetimes carry millisecond precision.
	e.Creation = s.now().UTC().Truncate(time.Millisecond)
	doc := expenseDoc{
		Seq:           seq,
		ExpenseDate:   e.ExpenseDate,
		Category:      e.Category,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		Owner:         e.Owner,
		CreatedAt:     e.Creation,
	}
	if e.Amount.Valid {
		d, err := primitive.ParseDecimal128(e.Amount.Decimal.String())
		if err != nil {
			return core.Expense{}, fmt.Errorf("encode amount: %w", err)
		}
		doc.Amount = &d
	}

	if _, err := s.provider.Collection(ExpensesCollection).InsertOne(ctx, doc); err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	e.ID = core.FormatExpenseID(seq)
	return e, nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Expense, error) {
	seq, err := core.ParseExpenseID(id)
	if err != nil {
		return core.Expense{}, ports.ErrNotFound
	}
	var doc expenseDoc
	err = s.provider.Collection(ExpensesCollection).FindOne(ctx, bson.M{"_id": seq}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return doc.toExpense()
}

// ListFilterDocument translates a list filter into a query document.
func ListFilterDocument(f core.ListFilter) bson.M {
	filter := bson.M{}
	date := bson.M{}
	if f.From != "" {
		date["$gte"] = f.From
	}
	if f.To != "" {
		date["$lte"] = f.To
	}
	if len(date) > 0 {
		filter["expense_date"] = date
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.PaymentMethod != "" {
		filter["payment_method"] = f.PaymentMethod
	}
	return filter
}

func (s *Store) List(ctx context.Context, f core.ListFilter, offset, limit int) ([]core.Expense, error) {
	// A zero limit means "no limit" to the server.
	if limit <= 0 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return s.find(ctx, ListFilterDocument(f), opts)
}

func (s *Store) CreatedSince(ctx context.Context, since time.Time) ([]core.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"created_at": bson.M{"$gte": since.UTC()}}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]core.Expense, error) {
	cur, err := s.provider.Collection(ExpensesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	var docs []expenseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(docs))
	for _, d := range docs {
		e, err := d.toExpense()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d expenseDoc) toExpense() (core.Expense, error) {
	e := core.Expense{
		ID:            core.FormatExpenseID(d.Seq),
		ExpenseDate:   d.ExpenseDate,
		Category:      d.Category,
		Description:   d.Description,
		PaymentMethod: d.PaymentMethod,
		Owner:         d.Owner,
		Creation:      d.CreatedAt.UTC(),
	}
	if d.Amount != nil {
		amount, err := decimal.NewFromString(d.Amount.String())
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %s amount: %w", e.ID, err)
		}
		e.Amount = decimal.NewNullDecimal(amount)
	}
	return e, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (core.User, error) {
	var doc userDoc
	err := s.provider.Collection(UsersCollection).FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.User{}, ports.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", username, err)
	}
	return doc.toUser(), nil
}

func (s *Store) SaveUser(ctx context.Context, u core.User) error {
	doc := userDoc{
		Username:     u.Username,
		FullName:     u.FullName,
		PasswordHash: u.PasswordHash,
		Enabled:      u.Enabled,
		Roles:        make([]string, 0, len(u.Roles)),
	}
	for _, r := range u.Roles {
		doc.Roles = append(doc.Roles, string(r))
	}
	_, err := s.provider.Collection(UsersCollection).
		ReplaceOne(ctx, bson.M{"_id": u.Username}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.Username, err)
	}
	return nil
}

func (s *Store) ListUsersWithRole(ctx context.Context, role core.Role) ([]core.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.provider.Collection(UsersCollection).Find(ctx, bson.M{"roles": string(role)}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users with role %s: %w", role, err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]core.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toUser())
	}
	return users, nil
}

func (d userDoc) toUser() core.User {
	u := core.User{
		Username:     d.Username,
		FullName:     d.FullName,
		PasswordHash: d.PasswordHash,
		Enabled:      d.Enabled,
	}
	for _, r := range d.Roles {
		u.Roles = append(u.Roles, core.Role(r))
	}
	return u
}

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	doc := sessionDoc{
		SID:       sess.SID,
		Username:  sess.Username,
		FullName:  sess.FullName,
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	if _, err := s.provider.Collection(SessionsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sid string) (core.Session, error) {
	var doc sessionDoc
	err := s.provider.Collection(SessionsCollection).FindOne(ctx, bson.M{"_id": sid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Session{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	return core.Session{
		SID:       doc.SID,
		Username:  doc.Username,
		FullName:  doc.FullName,
		CreatedAt: doc.CreatedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	if _, err := s.provider.Collection(SessionsCollection).DeleteOne(ctx, bson.M{"_id": sid}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, title, message string) error {
	doc := errorDoc{Title: title, Message: message, CreatedAt: s.now().UTC()}
	if _, err := s.provider.Collection(ErrorLogCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("record error %q: %w", title, err)
	}
	return nil
}
