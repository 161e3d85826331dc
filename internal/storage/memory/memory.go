package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"expensemanager/internal/core"
	"expensemanager/internal/ports"
)

// ErrorEntry is one recorded operational failure.
type ErrorEntry struct {
	Title     string
	Message   string
	CreatedAt time.Time
}

// Store keeps every record in process memory. It is meant for development
// and tests; nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	seq      int64
	items    []core.Expense
	users    map[string]core.User
	sessions map[string]core.Session
	errors   []ErrorEntry
	now      func() time.Time
}

var (
	_ ports.ExpenseRepository = (*Store)(nil)
	_ ports.UserStore         = (*Store)(nil)
	_ ports.SessionStore      = (*Store)(nil)
	_ ports.ErrorLog          = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:    map[string]core.User{},
		sessions: map[string]core.Session{},
		now:      time.Now,
	}
}

// SetClock overrides the creation timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Insert stores the expense and assigns its id and creation time.
func (s *Store) Insert(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.ID = core.FormatExpenseID(s.seq)
	e.Creation = s.now().UTC()
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, ports.ErrNotFound
}

func (s *Store) List(_ context.Context, f core.ListFilter, offset, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	skipped := 0
	for _, e := range s.items {
		if !f.Matches(e) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) CreatedSince(_ context.Context, since time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if !e.Creation.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetUser(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, ports.ErrNotFound
	}
	return u, nil
}

func (s *Store) SaveUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Roles = slices.Clone(u.Roles)
	s.users[u.Username] = u
	return nil
}

// ListUsersWithRole returns matching users ordered by username.
func (s *Store) ListUsersWithRole(_ context.Context, role core.Role) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.User
	for _, u := range s.users {
		if u.HasRole(role) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b core.User) int {
		switch {
		case a.Username < b.Username:
			return -1
		case a.Username > b.Username:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.SID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, sid string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return core.Session{}, ports.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

func (s *Store) Record(_ context.Context, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorEntry{Title: title, Message: message, CreatedAt: s.now().UTC()})
	return nil
}

// Errors returns a copy of the recorded error log.
func (s *Store) Errors() []ErrorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.errors)
}
