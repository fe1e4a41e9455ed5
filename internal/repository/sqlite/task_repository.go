package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"task-tracker/internal/domain"
	"task-tracker/internal/repository"
)

const (
	createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	author_id INTEGER NOT NULL,
	performer_id INTEGER NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(author_id, title),
	FOREIGN KEY(author_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY(performer_id) REFERENCES users(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_performer_id ON tasks(performer_id);
`

	createTaskCommentsTable = `
CREATE TABLE IF NOT EXISTS task_comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id INTEGER NOT NULL,
	text TEXT NOT NULL,
	author TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_task_comments_task_id ON task_comments(task_id);
`

	selectTask = `
SELECT t.id, t.title, t.description, t.status, t.priority,
	t.author_id, a.username, t.performer_id, p.username,
	t.created_at, t.updated_at
FROM tasks t
JOIN users a ON a.id = t.author_id
LEFT JOIN users p ON p.id = t.performer_id`

	countTask = `
SELECT COUNT(*)
FROM tasks t`

	byUser = ` WHERE (t.author_id = ? OR t.performer_id = ?)`
)

type TaskRepository struct {
	q querier
}

// Save inserts the task when it has no id yet and updates it otherwise.
// Comments are written through AppendComment, never through Save.
func (r *TaskRepository) Save(ctx context.Context, task *domain.Task) error {
	now := time.Now().UTC()
	task.UpdatedAt = now

	var performerID any
	if task.Performer != nil {
		performerID = task.Performer.ID
	}

	if task.ID == 0 {
		task.CreatedAt = now
		res, err := r.q.ExecContext(ctx, `
INSERT INTO tasks (title, description, status, priority, author_id, performer_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.Title,
			task.Description,
			string(task.Status),
			string(task.Priority),
			task.Author.ID,
			performerID,
			task.CreatedAt,
			task.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert task: %w", repository.ErrDuplicate)
			}
			return fmt.Errorf("insert task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		task.ID = id
		return nil
	}

	res, err := r.q.ExecContext(ctx, `
UPDATE tasks
SET title=?, description=?, status=?, priority=?, performer_id=?, updated_at=?
WHERE id=?`,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		performerID,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update task: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update task: %w", err)
	}
	return requireAffected(res, "update task")
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM task_comments WHERE task_id=?`, id); err != nil {
		return fmt.Errorf("delete task comments: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(res, "delete task")
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	return r.findOne(ctx, selectTask+` WHERE t.id = ?`, id)
}

func (r *TaskRepository) FindByIDAndAuthor(ctx context.Context, id, authorID int64) (*domain.Task, error) {
	return r.findOne(ctx, selectTask+` WHERE t.id = ? AND t.author_id = ?`, id, authorID)
}

func (r *TaskRepository) FindByIDAndPerformer(ctx context.Context, id, performerID int64) (*domain.Task, error) {
	return r.findOne(ctx, selectTask+` WHERE t.id = ? AND t.performer_id = ?`, id, performerID)
}

func (r *TaskRepository) FindByIDAndEitherRole(ctx context.Context, id, userID int64) (*domain.Task, error) {
	return r.findOne(ctx, selectTask+` WHERE t.id = ? AND (t.author_id = ? OR t.performer_id = ?)`, id, userID, userID)
}

func (r *TaskRepository) ExistsByTitleAndAuthor(ctx context.Context, title string, authorID int64) (bool, error) {
	var found bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tasks WHERE title = ? AND author_id = ?)`,
		title, authorID,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("query task existence: %w", err)
	}
	return found, nil
}

func (r *TaskRepository) AppendComment(ctx context.Context, taskID int64, comment domain.Comment) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO task_comments (task_id, text, author, created_at)
VALUES (?, ?, ?, ?)`,
		taskID,
		comment.Text,
		comment.Author,
		comment.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT text, author, created_at
FROM task_comments
WHERE task_id=?
ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query task comments: %w", err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.Text, &c.Author, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]domain.Task, error) {
	return r.findMany(ctx, selectTask+` ORDER BY t.id ASC`)
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	return r.findMany(ctx, selectTask+byUser+` ORDER BY t.id ASC`, userID, userID)
}

func (r *TaskRepository) PageByUser(ctx context.Context, userID int64, page repository.PageRequest) (domain.Page, error) {
	return r.findPage(ctx, byUser, page, userID, userID)
}

func (r *TaskRepository) PageByUserAndStatus(ctx context.Context, userID int64, status domain.TaskStatus, page repository.PageRequest) (domain.Page, error) {
	return r.findPage(ctx, byUser+` AND t.status = ?`, page, userID, userID, string(status))
}

func (r *TaskRepository) PageByUserAndPriority(ctx context.Context, userID int64, priority domain.TaskPriority, page repository.PageRequest) (domain.Page, error) {
	return r.findPage(ctx, byUser+` AND t.priority = ?`, page, userID, userID, string(priority))
}

func (r *TaskRepository) PageByUserAndStatusAndPriority(ctx context.Context, userID int64, status domain.TaskStatus, priority domain.TaskPriority, page repository.PageRequest) (domain.Page, error) {
	return r.findPage(ctx, byUser+` AND t.status = ? AND t.priority = ?`, page, userID, userID, string(status), string(priority))
}

func (r *TaskRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Task, error) {
	task, err := scanTask(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	comments, err := r.ListComments(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	task.Comments = comments
	return task, nil
}

func (r *TaskRepository) findMany(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	// close before loading comments, the pool holds a single connection
	rows.Close()

	for i := range tasks {
		comments, err := r.ListComments(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Comments = comments
	}
	return tasks, nil
}

func (r *TaskRepository) findPage(ctx context.Context, where string, page repository.PageRequest, args ...any) (domain.Page, error) {
	result := domain.Page{Page: page.Page, Size: page.Size, Items: []domain.Task{}}

	if err := r.q.QueryRowContext(ctx, countTask+where, args...).Scan(&result.TotalItems); err != nil {
		return domain.Page{}, fmt.Errorf("count tasks: %w", err)
	}
	if page.Beyond(result.TotalItems) {
		return result, nil
	}

	pageArgs := append(append([]any{}, args...), page.Size, page.Offset())
	items, err := r.findMany(ctx, selectTask+where+` ORDER BY t.id ASC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return domain.Page{}, err
	}
	result.Items = items
	return result, nil
}

func scanTask(scanner rowScanner) (*domain.Task, error) {
	var (
		task              domain.Task
		status            string
		priority          string
		performerID       sql.NullInt64
		performerUsername sql.NullString
	)

	if err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&task.Author.ID,
		&task.Author.Username,
		&performerID,
		&performerUsername,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if notFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	if performerID.Valid {
		task.Performer = &domain.UserRef{ID: performerID.Int64, Username: performerUsername.String}
	}
	task.Comments = []domain.Comment{}

	return &task, nil
}

func requireAffected(res sql.Result, op string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if aff == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
