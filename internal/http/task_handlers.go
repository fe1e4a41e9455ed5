package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/auth"
	"task-tracker/internal/domain"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

const (
	defaultPage = 0
	defaultSize = 10
)

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required,max=100"`
	Status      string `json:"status" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
	Comment     string `json:"comment" binding:"max=100"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description" binding:"omitempty,max=100"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type commentRequest struct {
	Comment string `json:"comment" binding:"required,max=100"`
}

func (h *Handler) createTask(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		h.writeError(c, err)
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), caller, service.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		Comment:     req.Comment,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(*task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), caller, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) assignPerformer(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	taskID, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}
	performerID, ok := h.pathID(c, "performerId")
	if !ok {
		return
	}

	task, err := h.tasks.AssignPerformer(c.Request.Context(), caller, taskID, performerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) addComment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	taskID, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	comment, err := h.tasks.AddComment(c.Request.Context(), caller, taskID, req.Comment)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentToResponse(*comment))
}

func (h *Handler) listComments(c *gin.Context) {
	taskID, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}

	comments, err := h.tasks.ListComments(c.Request.Context(), taskID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentsToResponse(comments))
}

func (h *Handler) updateTask(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	taskID, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	update := service.TaskUpdate{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status, err := parseStatus(*req.Status)
		if err != nil {
			h.writeError(c, err)
			return
		}
		update.Status = &status
	}
	if req.Priority != nil {
		priority, err := parsePriority(*req.Priority)
		if err != nil {
			h.writeError(c, err)
			return
		}
		update.Priority = &priority
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), caller, taskID, update)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) updateStatus(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	taskID, ok := h.pathID(c, "taskId")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	task, err := h.tasks.UpdateStatus(c.Request.Context(), caller, taskID, status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) listCallerTasks(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListCallerTasks(c.Request.Context(), caller)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) listUserTasks(c *gin.Context) {
	userID, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	size, err := queryInt(c, "size", defaultSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var filter service.TaskFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := parseStatus(raw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority, err := parsePriority(raw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		filter.Priority = &priority
	}

	result, err := h.tasks.ListUserTasks(c.Request.Context(), userID, filter, repository.PageRequest{Page: page, Size: size})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageToResponse(result))
}

func (h *Handler) listAuthors(c *gin.Context) {
	authors, err := h.users.ListAuthors(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]AuthorResponse, len(authors))
	for i, a := range authors {
		resp[i] = AuthorResponse{UserResponse: userToResponse(a.User), Tasks: tasksToResponse(a.Tasks)}
	}
	c.JSON(http.StatusOK, resp)
}

// caller returns the identity the policy admitted. Gated routes always have
// one; the branch guards routes registered without a matching rule.
func (h *Handler) caller(c *gin.Context) (domain.Identity, bool) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		h.writeError(c, domain.Errorf(domain.ErrUnauthorized, "Full authentication is required to access this resource"))
		return domain.Identity{}, false
	}
	return id, true
}

func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, domain.Errorf(domain.ErrBadRequest, "invalid %s", name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Errorf(domain.ErrBadRequest, "invalid %s %q", name, raw)
	}
	return v, nil
}

func parseStatus(raw string) (domain.TaskStatus, error) {
	status, err := domain.ParseTaskStatus(raw)
	if err != nil {
		return "", domain.Errorf(domain.ErrBadRequest, "%s", err.Error())
	}
	return status, nil
}

func parsePriority(raw string) (domain.TaskPriority, error) {
	priority, err := domain.ParseTaskPriority(raw)
	if err != nil {
		return "", domain.Errorf(domain.ErrBadRequest, "%s", err.Error())
	}
	return priority, nil
}
