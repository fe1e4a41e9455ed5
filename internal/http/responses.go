package http

import (
	"time"

	"task-tracker/internal/domain"
	"task-tracker/internal/service"
)

type UserRefResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type CommentResponse struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

type TaskResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	Author      UserRefResponse     `json:"author"`
	Performer   *UserRefResponse    `json:"performer"`
	Comments    []CommentResponse   `json:"comments"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt string      `json:"created_at"`
}

type AuthorResponse struct {
	UserResponse
	Tasks []TaskResponse `json:"tasks"`
}

type SessionResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
}

type PageResponse struct {
	Content       []TaskResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
}

func taskToResponse(task domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Author:      UserRefResponse{ID: task.Author.ID, Username: task.Author.Username},
		Comments:    commentsToResponse(task.Comments),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
	if task.Performer != nil {
		resp.Performer = &UserRefResponse{ID: task.Performer.ID, Username: task.Performer.Username}
	}
	return resp
}

func tasksToResponse(tasks []domain.Task) []TaskResponse {
	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	return resp
}

func commentToResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		Text:      c.Text,
		Author:    c.Author,
		Timestamp: c.Timestamp.Format(time.RFC3339),
	}
}

func commentsToResponse(comments []domain.Comment) []CommentResponse {
	resp := make([]CommentResponse, len(comments))
	for i := range comments {
		resp[i] = commentToResponse(comments[i])
	}
	return resp
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func sessionToResponse(s *service.Session) SessionResponse {
	return SessionResponse{
		User:      userToResponse(s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}

func pageToResponse(p domain.Page) PageResponse {
	return PageResponse{
		Content:       tasksToResponse(p.Items),
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalItems,
		TotalPages:    p.TotalPages(),
	}
}
