package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"task-tracker/internal/domain"
	"task-tracker/internal/repository/sqlite"
)

type fakeIssuer struct{}

func (fakeIssuer) Issue(user *domain.User) (string, time.Time, error) {
	return "token-" + user.Username, time.Now().Add(time.Hour), nil
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := sqlite.NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return store
}

func newTestUserService(store *sqlite.Store) *userService {
	svc := NewUserService(store, fakeIssuer{}).(*userService)
	svc.cost = bcrypt.MinCost
	return svc
}

func register(t *testing.T, users UserService, name string, role domain.Role) domain.Identity {
	t.Helper()
	session, err := users.Register(context.Background(), SignUp{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return domain.IdentityOf(session.User)
}
