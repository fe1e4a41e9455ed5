package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"task-tracker/internal/domain"
	"task-tracker/internal/repository"
)

type fixture struct {
	tasks TaskService
	alice domain.Identity
	carol domain.Identity
	bob   domain.Identity
	dave  domain.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newTestStore(t)
	users := newTestUserService(store)
	return fixture{
		tasks: NewTaskService(store),
		alice: register(t, users, "alice", domain.RoleAuthor),
		carol: register(t, users, "carol", domain.RoleAuthor),
		bob:   register(t, users, "bob", domain.RolePerformer),
		dave:  register(t, users, "dave", domain.RolePerformer),
	}
}

func (f fixture) create(t *testing.T, caller domain.Identity, title string) *domain.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), caller, NewTask{
		Title:       title,
		Description: "desc",
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityMedium,
	})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return task
}

func (f fixture) commentCount(t *testing.T, taskID int64) int {
	t.Helper()
	comments, err := f.tasks.ListComments(context.Background(), taskID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	return len(comments)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.tasks.CreateTask(ctx, f.alice, NewTask{
		Title:       "Fix bug",
		Description: "crash on start",
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityHigh,
		Comment:     "first look",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Author.ID != f.alice.UserID || task.Performer != nil {
		t.Fatalf("unexpected ownership: %+v", task)
	}
	if len(task.Comments) != 1 || task.Comments[0].Author != "alice" {
		t.Fatalf("expected initial comment, got %+v", task.Comments)
	}

	_, err = f.tasks.CreateTask(ctx, f.alice, NewTask{
		Title:       "Fix bug",
		Description: "again",
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityLow,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for same author, got %v", err)
	}
	if err.Error() != `Task with name "Fix bug" already exist` {
		t.Fatalf("unexpected conflict message %q", err.Error())
	}

	f.create(t, f.carol, "Fix bug")
}

func TestCreateTaskValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		req  NewTask
	}{
		{"blank title", NewTask{Title: "  ", Description: "d", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityLow}},
		{"missing description", NewTask{Title: "t", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityLow}},
		{"long description", NewTask{Title: "t", Description: strings.Repeat("x", 101), Status: domain.TaskStatusPending, Priority: domain.TaskPriorityLow}},
		{"missing status", NewTask{Title: "t", Description: "d", Priority: domain.TaskPriorityLow}},
		{"unknown priority", NewTask{Title: "t", Description: "d", Status: domain.TaskStatusPending, Priority: "URGENT"}},
		{"long comment", NewTask{Title: "t", Description: "d", Status: domain.TaskStatusPending, Priority: domain.TaskPriorityLow, Comment: strings.Repeat("x", 101)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.tasks.CreateTask(ctx, f.alice, tt.req); !errors.Is(err, domain.ErrBadRequest) {
				t.Fatalf("expected bad request, got %v", err)
			}
		})
	}
}

func TestDeleteTaskOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.create(t, f.alice, "Fix bug")

	err := f.tasks.DeleteTask(ctx, f.carol, task.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}
	all, err := f.tasks.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("task must survive a foreign delete, have %d", len(all))
	}

	if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.bob.UserID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.tasks.DeleteTask(ctx, f.bob, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for the assigned performer, got %v", err)
	}
	if all, err := f.tasks.ListTasks(ctx); err != nil || len(all) != 1 {
		t.Fatalf("task must survive a performer delete, have %d (%v)", len(all), err)
	}

	if err := f.tasks.DeleteTask(ctx, f.alice, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.tasks.DeleteTask(ctx, f.alice, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestAssignPerformerMovesTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.create(t, f.alice, "Fix bug")

	assigned, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.bob.UserID)
	if err != nil {
		t.Fatalf("assign bob: %v", err)
	}
	if assigned.Performer == nil || assigned.Performer.ID != f.bob.UserID {
		t.Fatalf("expected bob as performer, got %+v", assigned.Performer)
	}

	if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.dave.UserID); err != nil {
		t.Fatalf("reassign to dave: %v", err)
	}

	bobs, err := f.tasks.ListCallerTasks(ctx, f.bob)
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	daves, err := f.tasks.ListCallerTasks(ctx, f.dave)
	if err != nil {
		t.Fatalf("list dave: %v", err)
	}
	if len(bobs) != 0 || len(daves) != 1 || daves[0].ID != task.ID {
		t.Fatalf("expected task moved to dave, bob=%d dave=%d", len(bobs), len(daves))
	}

	alices, err := f.tasks.ListCallerTasks(ctx, f.alice)
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	if len(alices) != 1 {
		t.Fatalf("author keeps the task, got %d", len(alices))
	}
}

func TestAssignPerformerRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.create(t, f.alice, "Fix bug")

	if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, 9999); !errors.Is(err, domain.ErrPerformerNotFound) {
		t.Fatalf("expected performer not found, got %v", err)
	}
	if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.carol.UserID); !errors.Is(err, domain.ErrPerformerNotFound) {
		t.Fatalf("an author cannot perform, got %v", err)
	}
	if _, err := f.tasks.AssignPerformer(ctx, f.carol, task.ID, f.bob.UserID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}

	mine, err := f.tasks.ListCallerTasks(ctx, f.bob)
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("rejected assignments must not stick, bob has %d", len(mine))
	}
}

func TestUpdateStatusByPerformerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.create(t, f.alice, "Fix bug")
	if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.dave.UserID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := f.tasks.UpdateStatus(ctx, f.dave, task.ID, domain.TaskStatusInProgress)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.TaskStatusInProgress {
		t.Fatalf("expected in progress, got %s", updated.Status)
	}

	if _, err := f.tasks.UpdateStatus(ctx, f.bob, task.ID, domain.TaskStatusCompleted); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for other performer, got %v", err)
	}
	if _, err := f.tasks.UpdateStatus(ctx, f.alice, task.ID, domain.TaskStatusCompleted); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for the author, got %v", err)
	}
	mine, err := f.tasks.ListCallerTasks(ctx, f.dave)
	if err != nil {
		t.Fatalf("list dave: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != domain.TaskStatusInProgress {
		t.Fatalf("rejected status updates must not stick, got %+v", mine)
	}

	// any transition is allowed, including going back
	if _, err := f.tasks.UpdateStatus(ctx, f.dave, task.ID, domain.TaskStatusPending); err != nil {
		t.Fatalf("move back to pending: %v", err)
	}
	if _, err := f.tasks.UpdateStatus(ctx, f.dave, task.ID, "DONE"); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for unknown status, got %v", err)
	}
}

func TestAddCommentParticipantsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.create(t, f.alice, "Fix bug")
	if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.bob.UserID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := f.tasks.AddComment(ctx, f.alice, task.ID, "from author"); err != nil {
		t.Fatalf("author comment: %v", err)
	}
	comment, err := f.tasks.AddComment(ctx, f.bob, task.ID, "  from performer  ")
	if err != nil {
		t.Fatalf("performer comment: %v", err)
	}
	if comment.Text != "from performer" || comment.Author != "bob" {
		t.Fatalf("unexpected comment: %+v", comment)
	}

	before := f.commentCount(t, task.ID)
	if _, err := f.tasks.AddComment(ctx, f.carol, task.ID, "drive-by"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for outsider, got %v", err)
	}
	if _, err := f.tasks.AddComment(ctx, f.dave, task.ID, "drive-by"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unassigned performer, got %v", err)
	}
	if _, err := f.tasks.AddComment(ctx, f.alice, task.ID, strings.Repeat("x", 101)); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for long comment, got %v", err)
	}
	if after := f.commentCount(t, task.ID); after != before || after != 2 {
		t.Fatalf("rejected comments must not be stored: before=%d after=%d", before, after)
	}

	if _, err := f.tasks.ListComments(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing task, got %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.create(t, f.alice, "Fix bug")
	f.create(t, f.alice, "Write docs")

	same := "Fix bug"
	high := domain.TaskPriorityHigh
	updated, err := f.tasks.UpdateTask(ctx, f.alice, task.ID, TaskUpdate{Title: &same, Priority: &high})
	if err != nil {
		t.Fatalf("update keeping title: %v", err)
	}
	if updated.Priority != domain.TaskPriorityHigh || updated.Title != "Fix bug" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	taken := "Write docs"
	if _, err := f.tasks.UpdateTask(ctx, f.alice, task.ID, TaskUpdate{Title: &taken}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on rename, got %v", err)
	}

	renamed := "Fix crash"
	if _, err := f.tasks.UpdateTask(ctx, f.carol, task.ID, TaskUpdate{Title: &renamed}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}

	long := strings.Repeat("x", 101)
	if _, err := f.tasks.UpdateTask(ctx, f.alice, task.ID, TaskUpdate{Description: &long}); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}

	updated, err = f.tasks.UpdateTask(ctx, f.alice, task.ID, TaskUpdate{Title: &renamed})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Title != "Fix crash" || updated.Priority != domain.TaskPriorityHigh {
		t.Fatalf("unexpected rename result: %+v", updated)
	}
}

func TestListUserTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var ids []int64
	for _, title := range []string{"a", "b", "c"} {
		task := f.create(t, f.alice, title)
		ids = append(ids, task.ID)
		if _, err := f.tasks.AssignPerformer(ctx, f.alice, task.ID, f.bob.UserID); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	if _, err := f.tasks.UpdateStatus(ctx, f.bob, ids[1], domain.TaskStatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	page, err := f.tasks.ListUserTasks(ctx, f.bob.UserID, TaskFilter{}, repository.PageRequest{Page: 0, Size: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 3 || len(page.Items) != 2 || page.TotalPages() != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}

	completed := domain.TaskStatusCompleted
	page, err = f.tasks.ListUserTasks(ctx, f.alice.UserID, TaskFilter{Status: &completed}, repository.PageRequest{Size: 10})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].Title != "b" {
		t.Fatalf("unexpected filtered page: %+v", page)
	}

	high := domain.TaskPriorityHigh
	page, err = f.tasks.ListUserTasks(ctx, f.alice.UserID, TaskFilter{Status: &completed, Priority: &high}, repository.PageRequest{Size: 10})
	if err != nil {
		t.Fatalf("list by status and priority: %v", err)
	}
	if page.TotalItems != 0 || len(page.Items) != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}

	if _, err := f.tasks.ListUserTasks(ctx, f.bob.UserID, TaskFilter{}, repository.PageRequest{Page: -1, Size: 10}); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for negative page, got %v", err)
	}
	if _, err := f.tasks.ListUserTasks(ctx, f.bob.UserID, TaskFilter{}, repository.PageRequest{Size: 0}); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for empty size, got %v", err)
	}
	far, err := f.tasks.ListUserTasks(ctx, f.bob.UserID, TaskFilter{}, repository.PageRequest{Page: math.MaxInt64/2 + 1, Size: 2})
	if err != nil {
		t.Fatalf("list far page: %v", err)
	}
	if len(far.Items) != 0 || far.TotalItems != 3 {
		t.Fatalf("far page must be empty with real totals, got %d items of %d", len(far.Items), far.TotalItems)
	}

	if _, err := f.tasks.ListUserTasks(ctx, 9999, TaskFilter{}, repository.PageRequest{Size: 10}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}
