// Package auth authenticates users and manages their sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"expensemanager/internal/cache"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/ports"
)

// DefaultSessionTTL is used when the manager is built with a zero TTL.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrIncompleteCredentials = errors.New("Incomplete login details")
	ErrInvalidCredentials    = errors.New("Invalid login credentials")
	ErrUserDisabled          = errors.New("User disabled or missing")
	ErrSessionNotFound       = errors.New("session not found or expired")
)

// Manager checks passwords against the user store and issues sessions.
type Manager struct {
	users    ports.UserStore
	sessions ports.SessionStore
	cached   cache.Cache[core.Session]
	ttl      time.Duration
	now      func() time.Time
	newSID   func() string
}

func NewManager(users ports.UserStore, sessions ports.SessionStore, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		newSID:   uuid.NewString,
	}
}

// SetClock overrides the time source used for session expiry.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// WithSessionCache puts c in front of the session store for Resolve.
func (m *Manager) WithSessionCache(c cache.Cache[core.Session]) *Manager {
	m.cached = c
	return m
}

// HashPassword returns the bcrypt hash stored for a user.
func HashPassword(pwd string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Authenticate verifies usr/pwd and returns the enabled user.
func (m *Manager) Authenticate(ctx context.Context, usr, pwd string) (core.User, error) {
	usr = strings.TrimSpace(usr)
	if usr == "" || pwd == "" {
		return core.User{}, ErrIncompleteCredentials
	}

	u, err := m.users.GetUser(ctx, usr)
	if errors.Is(err, ports.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	if !u.Enabled {
		return core.User{}, ErrUserDisabled
	}
	return u, nil
}

// PostLogin opens a new session for an authenticated user.
func (m *Manager) PostLogin(ctx context.Context, u core.User) (core.Session, error) {
	now := m.now().UTC()
	sess := core.Session{
		SID:       m.newSID(),
		Username:  u.Username,
		FullName:  u.FullName,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	if m.cached != nil {
		m.cached.Set(sess.SID, sess)
	}
	return sess, nil
}

// Login is Authenticate followed by PostLogin.
func (m *Manager) Login(ctx context.Context, usr, pwd string) (core.Session, error) {
	u, err := m.Authenticate(ctx, usr, pwd)
	if err != nil {
		return core.Session{}, err
	}
	return m.PostLogin(ctx, u)
}

// Resolve returns the live session for sid. Expired sessions are removed.
func (m *Manager) Resolve(ctx context.Context, sid string) (core.Session, error) {
	if sid == "" {
		return core.Session{}, ErrSessionNotFound
	}
	sess, err := m.loadSession(ctx, sid)
	if err != nil {
		return core.Session{}, err
	}
	if sess.Expired(m.now()) {
		m.dropSession(ctx, sid)
		return core.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) loadSession(ctx context.Context, sid string) (core.Session, error) {
	if m.cached != nil {
		if sess, ok := m.cached.Get(sid); ok {
			return sess, nil
		}
	}
	sess, err := m.sessions.GetSession(ctx, sid)
	if errors.Is(err, ports.ErrNotFound) {
		return core.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load session: %w", err)
	}
	if m.cached != nil {
		m.cached.Set(sid, sess)
	}
	return sess, nil
}

func (m *Manager) dropSession(ctx context.Context, sid string) {
	if m.cached != nil {
		m.cached.Delete(sid)
	}
	if err := m.sessions.DeleteSession(ctx, sid); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Failed to delete expired session",
			log.FieldError, err)
	}
}

// Roles returns the roles currently held by username.
func (m *Manager) Roles(ctx context.Context, username string) ([]core.Role, error) {
	u, err := m.users.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	return u.Roles, nil
}

// UserSpec describes an account to create or update.
type UserSpec struct {
	Username string
	FullName string
	// Password may be empty when updating; the stored hash is kept.
	Password string
	Enabled  bool
	Roles    []core.Role
}

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required for a new user")
)

// SaveUser hashes the password and creates or replaces the account.
func SaveUser(ctx context.Context, users ports.UserStore, spec UserSpec) (core.User, error) {
	username := strings.TrimSpace(spec.Username)
	if username == "" {
		return core.User{}, ErrUsernameRequired
	}

	u := core.User{
		Username: username,
		FullName: strings.TrimSpace(spec.FullName),
		Enabled:  spec.Enabled,
	}
	if u.FullName == "" {
		u.FullName = username
	}
	for _, r := range spec.Roles {
		r = core.Role(strings.TrimSpace(string(r)))
		if r != "" && !u.HasRole(r) {
			u.Roles = append(u.Roles, r)
		}
	}

	switch {
	case spec.Password != "":
		hash, err := HashPassword(spec.Password)
		if err != nil {
			return core.User{}, err
		}
		u.PasswordHash = hash
	default:
		existing, err := users.GetUser(ctx, username)
		if errors.Is(err, ports.ErrNotFound) {
			return core.User{}, ErrPasswordRequired
		}
		if err != nil {
			return core.User{}, fmt.Errorf("load user: %w", err)
		}
		u.PasswordHash = existing.PasswordHash
	}

	if err := users.SaveUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}
