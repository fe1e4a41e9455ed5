package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"task-tracker/internal/domain"
	"task-tracker/internal/repository"
)

const (
	maxDescriptionLength = 100
	maxCommentLength     = 100
)

// NewTask is the input of TaskService.CreateTask.
type NewTask struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	// Comment, when non-empty, is appended as the first comment.
	Comment string
}

// TaskUpdate is a partial update: nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
}

// TaskFilter narrows a user's task listing. Nil fields do not filter.
type TaskFilter struct {
	Status   *domain.TaskStatus
	Priority *domain.TaskPriority
}

// TaskService enforces task ownership and the status lifecycle. Every
// operation takes the caller explicitly and runs in a single transaction.
type TaskService interface {
	CreateTask(ctx context.Context, caller domain.Identity, req NewTask) (*domain.Task, error)
	DeleteTask(ctx context.Context, caller domain.Identity, taskID int64) error
	AssignPerformer(ctx context.Context, caller domain.Identity, taskID, performerID int64) (*domain.Task, error)
	AddComment(ctx context.Context, caller domain.Identity, taskID int64, text string) (*domain.Comment, error)
	UpdateTask(ctx context.Context, caller domain.Identity, taskID int64, req TaskUpdate) (*domain.Task, error)
	UpdateStatus(ctx context.Context, caller domain.Identity, taskID int64, status domain.TaskStatus) (*domain.Task, error)

	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListCallerTasks(ctx context.Context, caller domain.Identity) ([]domain.Task, error)
	ListUserTasks(ctx context.Context, userID int64, filter TaskFilter, page repository.PageRequest) (domain.Page, error)
	ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error)
}

type taskService struct {
	store repository.Store
	now   func() time.Time
}

func NewTaskService(store repository.Store) TaskService {
	return &taskService{
		store: store,
		now:   time.Now,
	}
}

func (s *taskService) CreateTask(ctx context.Context, caller domain.Identity, req NewTask) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Description is required")
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, domain.Errorf(domain.ErrBadRequest, "Status is required")
	}
	if !req.Priority.Valid() {
		return nil, domain.Errorf(domain.ErrBadRequest, "Priority is required")
	}
	var comment *domain.Comment
	if strings.TrimSpace(req.Comment) != "" {
		c, err := s.newComment(caller, req.Comment)
		if err != nil {
			return nil, err
		}
		comment = c
	}

	var created *domain.Task
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := ensureTitleFree(ctx, tx, title, caller.UserID); err != nil {
			return err
		}

		task := &domain.Task{
			Title:       title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			Author:      domain.UserRef{ID: caller.UserID, Username: caller.Username},
			Comments:    []domain.Comment{},
		}
		if err := tx.Tasks().Save(ctx, task); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return titleConflict(title)
			}
			return err
		}
		if comment != nil {
			if err := tx.Tasks().AppendComment(ctx, task.ID, *comment); err != nil {
				return err
			}
		}

		loaded, err := tx.Tasks().FindByID(ctx, task.ID)
		if err != nil {
			return err
		}
		created = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *taskService) DeleteTask(ctx context.Context, caller domain.Identity, taskID int64) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		task, err := findOwned(ctx, tx, taskID, caller.UserID)
		if err != nil {
			return err
		}
		return tx.Tasks().Delete(ctx, task.ID)
	})
}

// AssignPerformer replaces the task's performer. The old assignment is
// dropped and the new one written by the same update, so no reader sees the
// task on two performers or on none.
func (s *taskService) AssignPerformer(ctx context.Context, caller domain.Identity, taskID, performerID int64) (*domain.Task, error) {
	var updated *domain.Task
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		task, err := findOwned(ctx, tx, taskID, caller.UserID)
		if err != nil {
			return err
		}

		performer, err := tx.Users().FindByIDAndRole(ctx, performerID, domain.RolePerformer)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Errorf(domain.ErrPerformerNotFound, "Performer with ID \"%d\" does not exist", performerID)
			}
			return err
		}

		task.Performer = &domain.UserRef{ID: performer.ID, Username: performer.Username}
		if err := tx.Tasks().Save(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *taskService) AddComment(ctx context.Context, caller domain.Identity, taskID int64, text string) (*domain.Comment, error) {
	comment, err := s.newComment(caller, text)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tasks().FindByIDAndEitherRole(ctx, taskID, caller.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Errorf(domain.ErrNotFound, "Task with ID \"%d\" does not exist for this user", taskID)
			}
			return err
		}
		return tx.Tasks().AppendComment(ctx, taskID, *comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *taskService) UpdateTask(ctx context.Context, caller domain.Identity, taskID int64, req TaskUpdate) (*domain.Task, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Title must not be blank")
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.Errorf(domain.ErrBadRequest, "Unknown status %q", *req.Status)
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, domain.Errorf(domain.ErrBadRequest, "Unknown priority %q", *req.Priority)
	}

	var updated *domain.Task
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		task, err := findOwned(ctx, tx, taskID, caller.UserID)
		if err != nil {
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title != task.Title {
				if err := ensureTitleFree(ctx, tx, title, task.Author.ID); err != nil {
					return err
				}
			}
			task.Title = title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Status != nil {
			task.Status = *req.Status
		}
		if req.Priority != nil {
			task.Priority = *req.Priority
		}

		if err := tx.Tasks().Save(ctx, task); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return titleConflict(task.Title)
			}
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus accepts any status from the assigned performer; there is no
// transition graph.
func (s *taskService) UpdateStatus(ctx context.Context, caller domain.Identity, taskID int64, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, domain.Errorf(domain.ErrBadRequest, "Status is required")
	}

	var updated *domain.Task
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		task, err := tx.Tasks().FindByIDAndPerformer(ctx, taskID, caller.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Errorf(domain.ErrNotFound, "Task with ID \"%d\" does not exist for this performer", taskID)
			}
			return err
		}
		task.Status = status
		if err := tx.Tasks().Save(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *taskService) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.store.Tasks().ListAll(ctx)
}

func (s *taskService) ListCallerTasks(ctx context.Context, caller domain.Identity) ([]domain.Task, error) {
	return s.store.Tasks().ListByUser(ctx, caller.UserID)
}

// ListUserTasks pages through the tasks a user authors or performs. Size has
// no upper bound.
func (s *taskService) ListUserTasks(ctx context.Context, userID int64, filter TaskFilter, page repository.PageRequest) (domain.Page, error) {
	if page.Page < 0 {
		return domain.Page{}, domain.Errorf(domain.ErrBadRequest, "Page index must not be less than zero")
	}
	if page.Size < 1 {
		return domain.Page{}, domain.Errorf(domain.ErrBadRequest, "Page size must not be less than one")
	}

	var result domain.Page
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Errorf(domain.ErrNotFound, "User with id \"%d\" does not exist", userID)
			}
			return err
		}

		tasks := tx.Tasks()
		var err error
		switch {
		case filter.Status != nil && filter.Priority != nil:
			result, err = tasks.PageByUserAndStatusAndPriority(ctx, userID, *filter.Status, *filter.Priority, page)
		case filter.Status != nil:
			result, err = tasks.PageByUserAndStatus(ctx, userID, *filter.Status, page)
		case filter.Priority != nil:
			result, err = tasks.PageByUserAndPriority(ctx, userID, *filter.Priority, page)
		default:
			result, err = tasks.PageByUser(ctx, userID, page)
		}
		return err
	})
	if err != nil {
		return domain.Page{}, err
	}
	return result, nil
}

func (s *taskService) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Tasks().FindByID(ctx, taskID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return taskNotFound(taskID)
			}
			return err
		}
		var err error
		comments, err = tx.Tasks().ListComments(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *taskService) newComment(caller domain.Identity, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Errorf(domain.ErrBadRequest, "Comment is required")
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return nil, domain.Errorf(domain.ErrBadRequest, "Comment is too big")
	}
	return &domain.Comment{
		Text:      text,
		Author:    caller.Username,
		Timestamp: s.now().UTC(),
	}, nil
}

// findOwned loads a task only when authorID owns it. Tasks owned by someone
// else are reported exactly like missing ones.
func findOwned(ctx context.Context, tx repository.Store, taskID, authorID int64) (*domain.Task, error) {
	task, err := tx.Tasks().FindByIDAndAuthor(ctx, taskID, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "Task with ID \"%d\" does not exist for this author", taskID)
		}
		return nil, err
	}
	return task, nil
}

func ensureTitleFree(ctx context.Context, tx repository.Store, title string, authorID int64) error {
	taken, err := tx.Tasks().ExistsByTitleAndAuthor(ctx, title, authorID)
	if err != nil {
		return err
	}
	if taken {
		return titleConflict(title)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return domain.Errorf(domain.ErrBadRequest, "Description is too big")
	}
	return nil
}

func titleConflict(title string) error {
	return domain.Errorf(domain.ErrConflict, "Task with name %q already exist", title)
}

func taskNotFound(taskID int64) error {
	return domain.Errorf(domain.ErrNotFound, "Task with ID \"%d\" does not exist", taskID)
}
