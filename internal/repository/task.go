package repository

import (
	"context"

	"task-tracker/internal/domain"
)

// PageRequest selects one page of a listing. Page is zero based.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the number of rows skipped before the page. It is only
// meaningful when Beyond reports false.
func (p PageRequest) Offset() int64 {
	return int64(p.Page) * int64(p.Size)
}

// Beyond reports whether the page starts at or after row total. It compares
// page counts so huge page indexes never overflow.
func (p PageRequest) Beyond(total int64) bool {
	if p.Size <= 0 || p.Page < 0 {
		return true
	}
	size := int64(p.Size)
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return int64(p.Page) >= pages
}

// TaskRepository is the task store. Tasks returned by the Find and List
// methods carry their comments.
type TaskRepository interface {
	Save(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	FindByIDAndAuthor(ctx context.Context, id, authorID int64) (*domain.Task, error)
	FindByIDAndPerformer(ctx context.Context, id, performerID int64) (*domain.Task, error)
	FindByIDAndEitherRole(ctx context.Context, id, userID int64) (*domain.Task, error)
	ExistsByTitleAndAuthor(ctx context.Context, title string, authorID int64) (bool, error)

	AppendComment(ctx context.Context, taskID int64, comment domain.Comment) error
	ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error)

	ListAll(ctx context.Context) ([]domain.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Task, error)
	PageByUser(ctx context.Context, userID int64, page PageRequest) (domain.Page, error)
	PageByUserAndStatus(ctx context.Context, userID int64, status domain.TaskStatus, page PageRequest) (domain.Page, error)
	PageByUserAndPriority(ctx context.Context, userID int64, priority domain.TaskPriority, page PageRequest) (domain.Page, error)
	PageByUserAndStatusAndPriority(ctx context.Context, userID int64, status domain.TaskStatus, priority domain.TaskPriority, page PageRequest) (domain.Page, error)
}
