package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"expensemanager/internal/core"
	"expensemanager/internal/ports"
)

// SQLRepository implements every storage port on top of database/sql.
// Timestamps are stored as UTC unix microseconds.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

var (
	_ ports.ExpenseRepository = (*SQLRepository)(nil)
	_ ports.UserStore         = (*SQLRepository)(nil)
	_ ports.SessionStore      = (*SQLRepository)(nil)
	_ ports.ErrorLog          = (*SQLRepository)(nil)
)

// NewSQLiteRepository opens (and creates if needed) the sqlite file at dbPath
// and brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to url through the pgx driver.
func NewPostgresRepository(url string) (*SQLRepository, error) {
	return open(Postgres, url)
}

func open(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == SQLite {
		// modernc serialises writers per connection; one keeps sequence
		// allocation and foreign keys consistent.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.rebind(query)
}

const expenseColumns = "id, expense_date, category, amount, description, payment_method, owner, created_at"

func (r *SQLRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	created := time.Now().UTC()

	var amount any
	if e.Amount.Valid {
		amount = e.Amount.Decimal.String()
	}

	var seq int64
	err := r.db.QueryRowContext(ctx, r.q(`
		INSERT INTO expenses (expense_date, category, amount, description, payment_method, owner, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		e.ExpenseDate, e.Category, amount, e.Description, e.PaymentMethod, e.Owner, created.UnixMicro(),
	).Scan(&seq)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	e.ID = core.FormatExpenseID(seq)
	e.Creation = created

	slog.DebugContext(ctx, "Expense stored",
		"dialect", string(r.dialect),
		"expense_id", e.ID,
		"category", e.Category)

	return e, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	seq, err := core.ParseExpenseID(id)
	if err != nil {
		return core.Expense{}, ports.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, r.q("SELECT "+expenseColumns+" FROM expenses WHERE id = ?"), seq)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

// List applies the filter with inclusive date bounds and returns one page in
// insertion order.
func (r *SQLRepository) List(ctx context.Context, f core.ListFilter, offset, limit int) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	if f.From != "" {
		where = append(where, "expense_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "expense_date <= ?")
		args = append(args, f.To)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}

	query := "SELECT " + expenseColumns + " FROM expenses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	return r.queryExpenses(ctx, query, args...)
}

func (r *SQLRepository) CreatedSince(ctx context.Context, since time.Time) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE created_at >= ? ORDER BY id",
		since.UTC().UnixMicro())
}

func (r *SQLRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e       core.Expense
		seq     int64
		amount  sql.NullString
		created int64
	)
	if err := s.Scan(&seq, &e.ExpenseDate, &e.Category, &amount, &e.Description, &e.PaymentMethod, &e.Owner, &created); err != nil {
		return core.Expense{}, err
	}
	e.ID = core.FormatExpenseID(seq)
	e.Creation = time.UnixMicro(created).UTC()
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %s amount %q: %w", e.ID, amount.String, err)
		}
		e.Amount = decimal.NewNullDecimal(d)
	}
	return e, nil
}

func (r *SQLRepository) GetUser(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, r.q(
		"SELECT username, full_name, password_hash, enabled FROM users WHERE username = ?"), username,
	).Scan(&u.Username, &u.FullName, &u.PasswordHash, &u.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ports.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", username, err)
	}
	if u.Roles, err = r.rolesOf(ctx, username); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// SaveUser upserts the user and replaces its role set in one transaction.
func (r *SQLRepository) SaveUser(ctx context.Context, u core.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.q(`
		INSERT INTO users (username, full_name, password_hash, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			full_name = excluded.full_name,
			password_hash = excluded.password_hash,
			enabled = excluded.enabled`),
		u.Username, u.FullName, u.PasswordHash, u.Enabled)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.Username, err)
	}

	if _, err := tx.ExecContext(ctx, r.q("DELETE FROM user_roles WHERE username = ?"), u.Username); err != nil {
		return fmt.Errorf("clear roles for %s: %w", u.Username, err)
	}
	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx, r.q(
			"INSERT INTO user_roles (username, role) VALUES (?, ?) ON CONFLICT DO NOTHING"),
			u.Username, string(role)); err != nil {
			return fmt.Errorf("grant %s to %s: %w", role, u.Username, err)
		}
	}

	return tx.Commit()
}

func (r *SQLRepository) ListUsersWithRole(ctx context.Context, role core.Role) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT u.username, u.full_name, u.password_hash, u.enabled
		FROM users u
		JOIN user_roles ur ON ur.username = u.username
		WHERE ur.role = ?
		ORDER BY u.username`), string(role))
	if err != nil {
		return nil, fmt.Errorf("list users with role %s: %w", role, err)
	}

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.Username, &u.FullName, &u.PasswordHash, &u.Enabled); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].Roles, err = r.rolesOf(ctx, users[i].Username); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *SQLRepository) rolesOf(ctx context.Context, username string) ([]core.Role, error) {
	rows, err := r.db.QueryContext(ctx, r.q(
		"SELECT role FROM user_roles WHERE username = ? ORDER BY role"), username)
	if err != nil {
		return nil, fmt.Errorf("roles of %s: %w", username, err)
	}
	defer rows.Close()

	var roles []core.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, core.Role(role))
	}
	return roles, rows.Err()
}

func (r *SQLRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO sessions (sid, username, full_name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`),
		s.SID, s.Username, s.FullName, s.CreatedAt.UTC().UnixMicro(), s.ExpiresAt.UTC().UnixMicro())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetSession(ctx context.Context, sid string) (core.Session, error) {
	var (
		s                  core.Session
		created, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, r.q(
		"SELECT sid, username, full_name, created_at, expires_at FROM sessions WHERE sid = ?"), sid,
	).Scan(&s.SID, &s.Username, &s.FullName, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = time.UnixMicro(created).UTC()
	s.ExpiresAt = time.UnixMicro(expiresAt).UTC()
	return s, nil
}

func (r *SQLRepository) DeleteSession(ctx context.Context, sid string) error {
	if _, err := r.db.ExecContext(ctx, r.q("DELETE FROM sessions WHERE sid = ?"), sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLRepository) Record(ctx context.Context, title, message string) error {
	_, err := r.db.ExecContext(ctx, r.q(
		"INSERT INTO error_log (title, message, created_at) VALUES (?, ?, ?)"),
		title, message, time.Now().UTC().UnixMicro())
	if err != nil {
		return fmt.Errorf("record error %q: %w", title, err)
	}
	return nil
}
