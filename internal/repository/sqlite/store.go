package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"task-tracker/internal/repository"
)

// Store implements repository.Store on a sqlite database.
type Store struct {
	db *sql.DB
	q  querier
	tx bool
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Init creates the schema. It is safe to call on every start.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, createTaskCommentsTable); err != nil {
		return fmt.Errorf("create task_comments table: %w", err)
	}
	return nil
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepository{q: s.q}
}

func (s *Store) Tasks() repository.TaskRepository {
	return &TaskRepository{q: s.q}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if err := fn(&Store{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

var _ repository.Store = (*Store)(nil)
