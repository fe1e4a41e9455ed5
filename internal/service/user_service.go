package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"task-tracker/internal/domain"
	"task-tracker/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = domain.Errorf(domain.ErrUnauthorized, "Incorrect email or password")
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// SignUp is the registration input.
type SignUp struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Author is an AUTHOR user together with the tasks they own.
type Author struct {
	User  *domain.User
	Tasks []domain.Task
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, req SignUp) (*Session, error)
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	ListAuthors(ctx context.Context) ([]Author, error)
}

type userService struct {
	store  repository.Store
	tokens TokenIssuer
	cost   int
}

func NewUserService(store repository.Store, tokens TokenIssuer) UserService {
	return &userService{
		store:  store,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, req SignUp) (*Session, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	if username == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Username is required")
	}
	if email == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Errorf(domain.ErrBadRequest, "Email should be valid")
	}
	if password == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Password is required")
	}
	if len(password) < 8 {
		return nil, domain.Errorf(domain.ErrBadRequest, "Password must be at least 8 characters")
	}
	if !req.Role.Valid() {
		return nil, domain.Errorf(domain.ErrBadRequest, "Role is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		users := tx.Users()
		taken, err := users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return domain.Errorf(domain.ErrConflict, "Name %q already taken", username)
		}
		taken, err = users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return domain.Errorf(domain.ErrConflict, "Email %q already taken", email)
		}
		if err := users.Save(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.Errorf(domain.ErrConflict, "User %q already exists", username)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

func (s *userService) ListAuthors(ctx context.Context) ([]Author, error) {
	var authors []Author
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		users, err := tx.Users().ListByRole(ctx, domain.RoleAuthor)
		if err != nil {
			return err
		}
		authors = make([]Author, 0, len(users))
		for i := range users {
			tasks, err := tx.Tasks().ListByUser(ctx, users[i].ID)
			if err != nil {
				return err
			}
			authors = append(authors, Author{User: sanitizeUser(&users[i]), Tasks: tasks})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func (s *userService) session(user *domain.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: sanitizeUser(user), Token: token, ExpiresAt: exp}, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
