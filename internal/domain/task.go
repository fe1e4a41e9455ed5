package domain

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

var taskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

// ParseTaskStatus accepts status names case-insensitively.
func ParseTaskStatus(s string) (TaskStatus, error) {
	want := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, status := range taskStatuses {
		if status == want {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown task status %q, accepted values are %v", s, taskStatuses)
}

func (s TaskStatus) Valid() bool {
	for _, status := range taskStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// TaskPriority is ordered: LOW < MEDIUM < HIGH.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

var taskPriorities = []TaskPriority{
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
}

func ParseTaskPriority(s string) (TaskPriority, error) {
	want := TaskPriority(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range taskPriorities {
		if p == want {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown task priority %q, accepted values are %v", s, taskPriorities)
}

func (p TaskPriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank returns the position of p in the priority order, or -1.
func (p TaskPriority) Rank() int {
	for i, candidate := range taskPriorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

// UserRef is a lightweight view of a user attached to a task.
type UserRef struct {
	ID       int64
	Username string
}

// Task is a unit of work owned by exactly one author.
type Task struct {
	ID          int64
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	Author      UserRef
	Performer   *UserRef
	Comments    []Comment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is immutable once appended to a task.
type Comment struct {
	Text      string
	Author    string
	Timestamp time.Time
}

// Page is one slice of a paginated task listing.
type Page struct {
	Items      []Task
	Page       int
	Size       int
	TotalItems int64
}

// TotalPages is zero when Size is zero.
func (p Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	size := int64(p.Size)
	pages := p.TotalItems / size
	if p.TotalItems%size != 0 {
		pages++
	}
	return int(pages)
}
