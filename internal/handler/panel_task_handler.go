package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
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

const (
	tasksPath     = "/panel/tasks"
	userTasksPath = "/panel/user/tasks"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// TaskForm is the create/edit task form used by Admins and SuperAdmins.
type TaskForm struct {
	Title            string `form:"title"`
	Description      string `form:"description"`
	AssignedTo       string `form:"assigned_to"`
	DueDate          string `form:"due_date"`
	Status           string `form:"status"`
	CompletionReport string `form:"completion_report"`
	WorkedHours      string `form:"worked_hours"`
}

// CompleteForm is the self-service completion form of a User.
type CompleteForm struct {
	CompletionReport string `form:"completion_report"`
	WorkedHours      string `form:"worked_hours"`
}

func taskFormFrom(t *model.Task) TaskForm {
	f := TaskForm{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		WorkedHours: export.FormatHours(t.WorkedHours),
	}
	if t.AssignedTo != uuid.Nil {
		f.AssignedTo = t.AssignedTo.String()
	}
	if t.DueDate != nil {
		f.DueDate = t.DueDate.Format(dateLayout)
	}
	if t.CompletionReport != nil {
		f.CompletionReport = *t.CompletionReport
	}
	return f
}

// proposal converts the form into a guard proposal. Problems the guard cannot
// see, such as an unknown assignee or a malformed date, are returned
// separately.
func (h *PanelHandler) proposal(ctx context.Context, form TaskForm) (lifecycle.Proposal, lifecycle.ValidationErrors, error) {
	var errs lifecycle.ValidationErrors
	prop := lifecycle.Proposal{
		Title:            &form.Title,
		Description:      &form.Description,
		CompletionReport: &form.CompletionReport,
		WorkedHours:      &form.WorkedHours,
	}

	if raw := strings.TrimSpace(form.AssignedTo); raw != "" {
		var assignee *model.User
		if id, err := uuid.Parse(raw); err == nil {
			u, err := h.users.GetByID(ctx, id)
			if err != nil {
				return prop, nil, err
			}
			assignee = u
		}
		if assignee == nil {
			errs = append(errs, lifecycle.NewError("assigned_to", lifecycle.CodeAssigneeInvalid))
		}
		prop.Assignee = assignee
	}

	if raw := strings.TrimSpace(form.DueDate); raw == "" {
		prop.ClearDueDate = true
	} else if d, err := time.Parse(dateLayout, raw); err == nil {
		prop.DueDate = &d
	} else {
		errs = append(errs, lifecycle.NewError("due_date", lifecycle.CodeDueDateInvalid))
	}

	if form.Status != "" {
		status := model.TaskStatus(form.Status)
		prop.Status = &status
	}
	return prop, errs, nil
}

func (h *PanelHandler) renderTaskForm(c *gin.Context, status int, title string, form TaskForm, errs lifecycle.ValidationErrors) {
	// Assignee choices are the users the principal may create tasks for.
	decision := access.Authorize(middleware.PrincipalFrom(c), access.CreateTask, access.None())
	scope := access.Scope{}
	if decision.Scope != nil {
		scope = *decision.Scope
	}
	assignees, err := h.users.List(c.Request.Context(), scope, model.RoleUser)
	if err != nil {
		h.serverError(c, "Failed to retrieve users", err)
		return
	}
	h.render(c, status, "task_form.html", gin.H{
		"Title":     title,
		"Form":      form,
		"Assignees": assignees,
		"Statuses":  model.Statuses,
		"Errors":    errs.ByField(),
	})
}

// loadTask reads the :id task for the panel pages.
func (h *PanelHandler) loadTask(c *gin.Context) (*model.Task, bool) {
	if !h.requireLogin(c) {
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.notFound(c, "Task")
		return nil, false
	}
	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		h.notFound(c, "Task")
		return nil, false
	}
	if err != nil {
		h.serverError(c, "Failed to retrieve task", err)
		return nil, false
	}
	return task, true
}

func (h *PanelHandler) ListTasks(c *gin.Context) {
	decision, ok := h.authorize(c, access.ListTasks, access.None())
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), *decision.Scope)
	if err != nil {
		h.serverError(c, "Failed to retrieve tasks", err)
		return
	}
	h.render(c, http.StatusOK, "task_list.html", gin.H{"Title": "Tasks", "Tasks": tasks})
}

func (h *PanelHandler) CreateTaskPage(c *gin.Context) {
	if _, ok := h.authorize(c, access.CreateTask, access.None()); !ok {
		return
	}
	h.renderTaskForm(c, http.StatusOK, "New task", TaskForm{Status: string(model.StatusPending)}, nil)
}

// CreateTask validates the form as a proposal against an empty pending task,
// so created tasks obey the same completion rules as edited ones.
func (h *PanelHandler) CreateTask(c *gin.Context) {
	if _, ok := h.authorize(c, access.CreateTask, access.None()); !ok {
		return
	}

	var form TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Invalid form")
		return
	}

	ctx := c.Request.Context()
	prop, errs, err := h.proposal(ctx, form)
	if err != nil {
		h.serverError(c, "Failed to retrieve assignee", err)
		return
	}

	outcome := h.guard.Propose(middleware.PrincipalFrom(c), model.Task{Status: model.StatusPending}, prop)
	errs = append(errs, outcome.Errors...)
	if len(errs) > 0 {
		h.renderTaskForm(c, http.StatusBadRequest, "New task", form, errs)
		return
	}

	task := outcome.Task
	task.CreatedAt = task.UpdatedAt
	if err := h.tasks.Create(ctx, &task); err != nil {
		h.serverError(c, "Failed to create task", err)
		return
	}

	redirectWithFlash(c, tasksPath, "Task created successfully.")
}

func (h *PanelHandler) EditTaskPage(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.EditTask, access.OnTask(task)); !ok {
		return
	}
	h.renderTaskForm(c, http.StatusOK, "Edit "+task.Title, taskFormFrom(task), nil)
}

func (h *PanelHandler) EditTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.EditTask, access.OnTask(task)); !ok {
		return
	}

	var form TaskForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Invalid form")
		return
	}

	ctx := c.Request.Context()
	title := "Edit " + task.Title
	prop, errs, err := h.proposal(ctx, form)
	if err != nil {
		h.serverError(c, "Failed to retrieve assignee", err)
		return
	}

	outcome := h.guard.Propose(middleware.PrincipalFrom(c), *task, prop)
	errs = append(errs, outcome.Errors...)
	if len(errs) > 0 {
		h.renderTaskForm(c, http.StatusBadRequest, title, form, errs)
		return
	}

	if err := h.tasks.Save(ctx, &outcome.Task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			h.notFound(c, "Task")
			return
		}
		h.serverError(c, "Failed to update task", err)
		return
	}

	redirectWithFlash(c, tasksPath, "Task updated successfully.")
}

func (h *PanelHandler) DeleteTaskPage(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.DeleteTask, access.OnTask(task)); !ok {
		return
	}
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Title":  "Delete task",
		"Name":   task.Title,
		"Cancel": tasksPath,
	})
}

func (h *PanelHandler) DeleteTask(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.DeleteTask, access.OnTask(task)); !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), task.ID); err != nil && !errors.Is(err, repository.ErrTaskNotFound) {
		h.serverError(c, "Failed to delete task", err)
		return
	}

	redirectWithFlash(c, tasksPath, "Task deleted successfully.")
}

func (h *PanelHandler) TaskReport(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.ViewTaskReport, access.OnTask(task)); !ok {
		return
	}
	h.render(c, http.StatusOK, "task_report.html", gin.H{"Title": "Report", "Task": task})
}

func (h *PanelHandler) completedTasks(c *gin.Context) ([]model.Task, bool) {
	if _, ok := h.authorize(c, access.ExportReports, access.None()); !ok {
		return nil, false
	}
	tasks, err := h.tasks.ListCompleted(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to retrieve tasks", err)
		return nil, false
	}
	return tasks, true
}

func (h *PanelHandler) ExportCSV(c *gin.Context) {
	tasks, ok := h.completedTasks(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, tasks); err != nil {
		h.serverError(c, "Failed to build report", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.CSVFileName+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *PanelHandler) ExportXLSX(c *gin.Context) {
	tasks, ok := h.completedTasks(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, tasks); err != nil {
		h.serverError(c, "Failed to build report", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.XLSXFileName+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *PanelHandler) UserTasks(c *gin.Context) {
	decision, ok := h.authorize(c, access.ListOwnTasks, access.None())
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), *decision.Scope)
	if err != nil {
		h.serverError(c, "Failed to retrieve tasks", err)
		return
	}
	h.render(c, http.StatusOK, "user_tasks.html", gin.H{"Title": "My tasks", "Tasks": tasks})
}

// ownTask loads the task for the completion pages. Completed tasks send the
// user back to the list with a notice.
func (h *PanelHandler) ownTask(c *gin.Context) (*model.Task, bool) {
	task, ok := h.loadTask(c)
	if !ok {
		return nil, false
	}
	if _, ok := h.authorize(c, access.CompleteOwnTask, access.OnTask(task)); !ok {
		return nil, false
	}
	if task.Completed() {
		redirectWithFlash(c, userTasksPath, "Task already completed.")
		return nil, false
	}
	return task, true
}

func (h *PanelHandler) renderComplete(c *gin.Context, status int, task *model.Task, form CompleteForm, errs lifecycle.ValidationErrors) {
	h.render(c, status, "complete_task.html", gin.H{
		"Title":  "Complete task",
		"Task":   task,
		"Form":   form,
		"Errors": errs.ByField(),
	})
}

func (h *PanelHandler) CompleteTaskPage(c *gin.Context) {
	task, ok := h.ownTask(c)
	if !ok {
		return
	}
	form := CompleteForm{WorkedHours: export.FormatHours(task.WorkedHours)}
	if task.CompletionReport != nil {
		form.CompletionReport = *task.CompletionReport
	}
	h.renderComplete(c, http.StatusOK, task, form, nil)
}

func (h *PanelHandler) CompleteTask(c *gin.Context) {
	task, ok := h.ownTask(c)
	if !ok {
		return
	}

	var form CompleteForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Invalid form")
		return
	}

	completed := model.StatusCompleted
	outcome := h.guard.Propose(middleware.PrincipalFrom(c), *task, lifecycle.Proposal{
		Status:           &completed,
		CompletionReport: &form.CompletionReport,
		WorkedHours:      &form.WorkedHours,
	})
	if !outcome.Applied() {
		h.renderComplete(c, http.StatusBadRequest, task, form, outcome.Errors)
		return
	}

	if err := h.tasks.Save(c.Request.Context(), &outcome.Task); err != nil {
		h.serverError(c, "Failed to update task", err)
		return
	}

	redirectWithFlash(c, userTasksPath, "Task marked as completed.")
}
