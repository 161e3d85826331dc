package ports

import (
	"context"
	"errors"
	"time"

	"expensemanager/internal/core"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	// ExpenseRepository persists expense records. Insert assigns ID and
	// Creation; List returns records in insertion order.
	ExpenseRepository interface {
		Insert(ctx context.Context, e core.Expense) (core.Expense, error)
		Get(ctx context.Context, id string) (core.Expense, error)
		List(ctx context.Context, f core.ListFilter, offset, limit int) ([]core.Expense, error)
		// CreatedSince returns every expense whose creation is at or after since.
		CreatedSince(ctx context.Context, since time.Time) ([]core.Expense, error)
	}

	UserStore interface {
		GetUser(ctx context.Context, username string) (core.User, error)
		// SaveUser inserts the user or replaces an existing one.
		SaveUser(ctx context.Context, u core.User) error
		ListUsersWithRole(ctx context.Context, role core.Role) ([]core.User, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) error
		GetSession(ctx context.Context, sid string) (core.Session, error)
		DeleteSession(ctx context.Context, sid string) error
	}

	// ErrorLog is the durable, append-only sink for operational failures.
	ErrorLog interface {
		Record(ctx context.Context, title, message string) error
	}

	// Notifier surfaces a newly created expense to operators.
	Notifier interface {
		NotifyExpenseCreated(ctx context.Context, e core.Expense) error
	}
)
