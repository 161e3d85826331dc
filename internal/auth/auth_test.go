package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"expensemanager/internal/cache"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/storage/memory"
)

func newTestManager(t *testing.T) (*Manager, *memory.Store) {
	t.Helper()
	store := memory.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ctx := context.Background()
	_ = store.SaveUser(ctx, core.User{Username: "alice", FullName: "Alice A", PasswordHash: string(hash), Enabled: true})
	_ = store.SaveUser(ctx, core.User{Username: "mallory", PasswordHash: string(hash), Enabled: false})
	return NewManager(store, store, time.Hour), store
}

func TestAuthenticate(t *testing.T) {
	m, _ := newTestManager(t)
	tests := []struct {
		name    string
		usr     string
		pwd     string
		wantErr error
	}{
		{"valid", "alice", "secret", nil},
		{"wrong password", "alice", "nope", ErrInvalidCredentials},
		{"unknown user", "bob", "secret", ErrInvalidCredentials},
		{"disabled user", "mallory", "secret", ErrUserDisabled},
		{"missing password", "alice", "", ErrIncompleteCredentials},
		{"missing user", " ", "secret", ErrIncompleteCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := m.Authenticate(context.Background(), tt.usr, tt.pwd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && u.Username != tt.usr {
				t.Errorf("unexpected user %+v", u)
			}
		})
	}
}

func TestLoginIssuesResolvableSession(t *testing.T) {
	m, _ := newTestManager(t)
	m.newSID = func() string { return "fixed-sid" }
	ctx := context.Background()

	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.SID != "fixed-sid" || sess.FullName != "Alice A" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != time.Hour {
		t.Errorf("expected 1h ttl, got %v", got)
	}

	back, err := m.Resolve(ctx, "fixed-sid")
	if err != nil || back.Username != "alice" {
		t.Fatalf("resolve: %+v err=%v", back, err)
	}
}

func TestResolveRejectsUnknownAndExpired(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Resolve(ctx, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("empty sid: %v", err)
	}
	if _, err := m.Resolve(ctx, "unknown"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown sid: %v", err)
	}

	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	m.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	if _, err := m.Resolve(ctx, sess.SID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired sid: %v", err)
	}
	if _, err := store.GetSession(ctx, sess.SID); err == nil {
		t.Errorf("expired session should be deleted")
	}
}

func TestResolveUsesSessionCache(t *testing.T) {
	m, store := newTestManager(t)
	sessions := cache.NewLRUCache[core.Session](10, time.Minute)
	m.WithSessionCache(sessions)
	ctx := context.Background()

	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sessions.Size() != 1 {
		t.Fatalf("login should populate the cache")
	}

	// Served from the cache even after the store loses the row.
	_ = store.DeleteSession(ctx, sess.SID)
	if _, err := m.Resolve(ctx, sess.SID); err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if s := sessions.Stats(); s.Hits != 1 {
		t.Errorf("expected one cache hit, got %+v", s)
	}

	m.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	if _, err := m.Resolve(ctx, sess.SID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired cached sid: %v", err)
	}
	if sessions.Size() != 0 {
		t.Errorf("expired session should be evicted from the cache")
	}
}

func TestHashPasswordVerifies(t *testing.T) {
	h, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("pw")) != nil {
		t.Fatal("hash does not verify")
	}
}

func TestSaveUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if _, err := SaveUser(ctx, store, UserSpec{Username: "  "}); !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}
	if _, err := SaveUser(ctx, store, UserSpec{Username: "root"}); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}

	u, err := SaveUser(ctx, store, UserSpec{
		Username: "root",
		Password: "pw",
		Enabled:  true,
		Roles:    []core.Role{core.SystemManager, " System Manager ", ""},
	})
	if err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if u.FullName != "root" || len(u.Roles) != 1 {
		t.Fatalf("unexpected user %+v", u)
	}

	m := NewManager(store, store, time.Hour)
	if _, err := m.Authenticate(ctx, "root", "pw"); err != nil {
		t.Fatalf("Authenticate after SaveUser: %v", err)
	}

	// Updating without a password keeps the hash.
	if _, err := SaveUser(ctx, store, UserSpec{Username: "root", FullName: "Root", Enabled: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := m.Authenticate(ctx, "root", "pw"); err != nil {
		t.Fatalf("password lost on update: %v", err)
	}
	stored, _ := store.GetUser(ctx, "root")
	if stored.FullName != "Root" || len(stored.Roles) != 0 {
		t.Errorf("roles should be replaced: %+v", stored)
	}
}

type stickySessions struct {
	*memory.Store
}

func (stickySessions) DeleteSession(context.Context, string) error {
	return errors.New("session table locked")
}

func TestResolveLogsFailedExpiredSessionDelete(t *testing.T) {
	_, store := newTestManager(t)
	m := NewManager(store, stickySessions{store}, time.Hour)

	var buf bytes.Buffer
	ctx := log.NewContext(context.Background(), log.New(log.Config{Output: &buf}))

	sess, err := m.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	m.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	if _, err := m.Resolve(ctx, sess.SID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired sid: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "session table locked") {
		t.Errorf("expected a WARN entry for the failed delete, got %q", out)
	}
}
