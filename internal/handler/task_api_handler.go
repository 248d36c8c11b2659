package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskpanel/internal/access"
	"taskpanel/internal/export"
	"taskpanel/internal/lifecycle"
	"taskpanel/internal/middleware"
	"taskpanel/internal/model"
	"taskpanel/internal/repository"
)

const dateLayout = "2006-01-02"

type TaskAPIHandler struct {
	tasks repository.TaskRepositoryInterface
	guard *lifecycle.Guard
}

func NewTaskAPIHandler(tasks repository.TaskRepositoryInterface, guard *lifecycle.Guard) *TaskAPIHandler {
	return &TaskAPIHandler{tasks: tasks, guard: guard}
}

// TaskResponse is a task as returned by the API
type TaskResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	AssignedTo       string    `json:"assigned_to"`
	DueDate          *string   `json:"due_date"`
	Status           string    `json:"status"`
	CompletionReport *string   `json:"completion_report"`
	WorkedHours      *string   `json:"worked_hours"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TaskUpdateRequest is the body of PUT/PATCH /api/tasks/{id}. worked_hours
// accepts a JSON number or a string; any other field is ignored.
type TaskUpdateRequest struct {
	Status           *string         `json:"status"`
	CompletionReport *string         `json:"completion_report"`
	WorkedHours      json.RawMessage `json:"worked_hours" swaggertype:"string"`
}

// TaskReportResponse is the completion report of a task
type TaskReportResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	AssignedTo       string    `json:"assigned_to"`
	CompletionReport string    `json:"completion_report"`
	WorkedHours      string    `json:"worked_hours"`
	CompletedAt      time.Time `json:"completed_at"`
}

func toTaskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:               t.ID.String(),
		Title:            t.Title,
		Description:      t.Description,
		AssignedTo:       t.AssignedTo.String(),
		Status:           string(t.Status),
		CompletionReport: t.CompletionReport,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	if t.WorkedHours != nil {
		h := export.FormatHours(t.WorkedHours)
		resp.WorkedHours = &h
	}
	return resp
}

// rawHours turns the worked_hours JSON value into the guard's raw input. An
// absent field keeps the stored value and null clears it. Strings are
// unquoted; any other token is passed through as written so the guard
// reports it with the rest of the proposal.
func rawHours(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if bytes.Equal(raw, []byte("null")) {
		empty := ""
		return &empty
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	v := string(raw)
	return &v
}

// GetOwn godoc
// @Summary      List own tasks
// @Description  Tasks assigned to the current user, latest due date first
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   TaskResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /api/tasks [get]
func (h *TaskAPIHandler) GetOwn(c *gin.Context) {
	decision := access.Authorize(middleware.PrincipalFrom(c), access.ListOwnTasks, access.None())
	if !decision.Allow {
		respondDenied(c, decision)
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), *decision.Scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		response = append(response, toTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, response)
}

// loadTask reads the :id task, answering 400 or 404 itself when it cannot.
func (h *TaskAPIHandler) loadTask(c *gin.Context) (*model.Task, bool) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return nil, false
	}

	task, err := h.tasks.GetByID(c.Request.Context(), taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return nil, false
	}
	return task, true
}

// Update godoc
// @Summary      Update own task
// @Description  Change status, completion report or worked hours of a task assigned to the current user
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task ID"
// @Param        task  body      TaskUpdateRequest  true  "Fields to change"
// @Success      200   {object}  TaskResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/tasks/{id} [put]
// @Router       /api/tasks/{id} [patch]
func (h *TaskAPIHandler) Update(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	principal := middleware.PrincipalFrom(c)
	decision := access.Authorize(principal, access.CompleteOwnTask, access.OnTask(task))
	if !decision.Allow {
		respondDenied(c, decision)
		return
	}

	var req TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	prop := lifecycle.Proposal{
		CompletionReport: req.CompletionReport,
		WorkedHours:      rawHours(req.WorkedHours),
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		prop.Status = &status
	}

	outcome := h.guard.Propose(principal, *task, prop)
	if !outcome.Applied() {
		respondValidation(c, outcome.Errors)
		return
	}

	if err := h.tasks.Save(c.Request.Context(), &outcome.Task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(&outcome.Task))
}

// Report godoc
// @Summary      Task completion report
// @Description  Report of a completed task, for Admins of the assignee and SuperAdmins
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  TaskReportResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/tasks/{id}/report [get]
func (h *TaskAPIHandler) Report(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	decision := access.Authorize(middleware.PrincipalFrom(c), access.ViewTaskReport, access.OnTask(task))
	if !decision.Allow {
		respondDenied(c, decision)
		return
	}

	if !task.Completed() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task must be completed to view the report."})
		return
	}

	report := ""
	if task.CompletionReport != nil {
		report = *task.CompletionReport
	}
	c.JSON(http.StatusOK, TaskReportResponse{
		ID:               task.ID.String(),
		Title:            task.Title,
		AssignedTo:       task.Assignee.Username,
		CompletionReport: report,
		WorkedHours:      export.FormatHours(task.WorkedHours),
		CompletedAt:      task.UpdatedAt,
	})
}
