package service

import (
	"context"
	"errors"
	"testing"

	"task-tracker/internal/domain"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	users := newTestUserService(newTestStore(t))

	session, err := users.Register(ctx, SignUp{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "password123",
		Role:     domain.RoleAuthor,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.Token != "token-alice" {
		t.Fatalf("unexpected token %q", session.Token)
	}
	if session.User.PasswordHash != "" {
		t.Fatalf("password hash must not leave the service")
	}
	if session.User.Email != "alice@example.com" || session.User.ID == 0 {
		t.Fatalf("unexpected user: %+v", session.User)
	}
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	users := newTestUserService(newTestStore(t))
	register(t, users, "alice", domain.RoleAuthor)

	tests := []struct {
		name string
		req  SignUp
		want error
	}{
		{"taken username", SignUp{Username: "alice", Email: "new@example.com", Password: "password123", Role: domain.RoleAuthor}, domain.ErrConflict},
		{"taken email", SignUp{Username: "alice2", Email: "ALICE@example.com", Password: "password123", Role: domain.RolePerformer}, domain.ErrConflict},
		{"bad email", SignUp{Username: "bob", Email: "not-an-email", Password: "password123", Role: domain.RolePerformer}, domain.ErrBadRequest},
		{"short password", SignUp{Username: "bob", Email: "bob@example.com", Password: "short", Role: domain.RolePerformer}, domain.ErrBadRequest},
		{"missing role", SignUp{Username: "bob", Email: "bob@example.com", Password: "password123"}, domain.ErrBadRequest},
		{"missing username", SignUp{Email: "bob@example.com", Password: "password123", Role: domain.RolePerformer}, domain.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := users.Register(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := newTestUserService(newTestStore(t))
	register(t, users, "alice", domain.RoleAuthor)

	session, err := users.Authenticate(ctx, " ALICE@example.com ", "password123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.User.Username != "alice" || session.User.Role != domain.RoleAuthor {
		t.Fatalf("unexpected user: %+v", session.User)
	}

	for _, creds := range [][2]string{
		{"alice@example.com", "wrong-password"},
		{"nobody@example.com", "password123"},
		{"", ""},
	} {
		_, err := users.Authenticate(ctx, creds[0], creds[1])
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%v: expected unauthorized, got %v", creds, err)
		}
		if err.Error() != "Incorrect email or password" {
			t.Fatalf("unexpected message %q", err.Error())
		}
	}
}

func TestListAuthors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	users := newTestUserService(store)
	tasks := NewTaskService(store)

	alice := register(t, users, "alice", domain.RoleAuthor)
	register(t, users, "bob", domain.RolePerformer)
	register(t, users, "carol", domain.RoleAuthor)

	if _, err := tasks.CreateTask(ctx, alice, NewTask{
		Title:       "Fix bug",
		Description: "desc",
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityHigh,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	authors, err := users.ListAuthors(ctx)
	if err != nil {
		t.Fatalf("list authors: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("expected two authors, got %d", len(authors))
	}
	if authors[0].User.Username != "alice" || len(authors[0].Tasks) != 1 {
		t.Fatalf("unexpected first author: %+v", authors[0])
	}
	if authors[1].User.Username != "carol" || len(authors[1].Tasks) != 0 {
		t.Fatalf("unexpected second author: %+v", authors[1])
	}
	if authors[0].User.PasswordHash != "" {
		t.Fatalf("password hash leaked")
	}
}
