package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskpanel/internal/access"
	"taskpanel/internal/handler"
	"taskpanel/internal/lifecycle"
	"taskpanel/internal/middleware"
	"taskpanel/internal/model"
	"taskpanel/internal/repository"
)

var fixedNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func withPrincipal(u *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u != nil {
			c.Set(middleware.PrincipalKey, access.PrincipalFromUser(u))
		}
		c.Next()
	}
}

func setupTaskAPI(as *model.User) (*gin.Engine, *MockTaskRepository) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mockRepo := new(MockTaskRepository)
	taskHandler := handler.NewTaskAPIHandler(mockRepo, lifecycle.NewGuard(func() time.Time { return fixedNow }))

	api := r.Group("/api", withPrincipal(as))
	api.GET("/tasks", taskHandler.GetOwn)
	api.PUT("/tasks/:id", taskHandler.Update)
	api.PATCH("/tasks/:id", taskHandler.Update)
	api.GET("/tasks/:id/report", taskHandler.Report)
	return r, mockRepo
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func validationCodes(t *testing.T, resp *httptest.ResponseRecorder) []lifecycle.Code {
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Error)
	codes := make([]lifecycle.Code, len(body.Details))
	for i, d := range body.Details {
		codes[i] = d.Code
	}
	return codes
}

func TestGetOwn_ListsAssignedTasks(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	due := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	task := taskFor(w.u1, "Write docs", model.StatusPending)
	task.DueDate = &due
	mockRepo.On("List", mock.Anything, access.Scope{AssigneeID: &w.u1.ID}).Return([]model.Task{*task}, nil)

	// Act
	resp := doJSON(router, "GET", "/api/tasks", "")

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	var tasks []handler.TaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write docs", tasks[0].Title)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2025-05-01", *tasks[0].DueDate)
	assert.Nil(t, tasks[0].WorkedHours)
	mockRepo.AssertExpectations(t)
}

func TestGetOwn_AdminIsForbidden(t *testing.T) {
	// Arrange
	router, mockRepo := setupTaskAPI(newWorld().admin1)

	// Act
	resp := doJSON(router, "GET", "/api/tasks", "")

	// Assert
	assert.Equal(t, http.StatusForbidden, resp.Code)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGetOwn_Anonymous(t *testing.T) {
	router, _ := setupTaskAPI(nil)

	resp := doJSON(router, "GET", "/api/tasks", "")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUpdate_CompletesOwnTask(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	task := taskFor(w.u1, "Ship", model.StatusInProgress)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved *model.Task) bool {
		return saved.Status == model.StatusCompleted &&
			saved.CompletionReport != nil && *saved.CompletionReport == "Done" &&
			saved.WorkedHours != nil && *saved.WorkedHours == 3.5 &&
			saved.UpdatedAt.Equal(fixedNow)
	})).Return(nil)

	// Act
	resp := doJSON(router, "PATCH", "/api/tasks/"+task.ID.String(),
		`{"status":"COMPLETED","completion_report":"Done","worked_hours":3.5,"title":"ignored"}`)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	var body handler.TaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "COMPLETED", body.Status)
	assert.Equal(t, "Ship", body.Title)
	require.NotNil(t, body.WorkedHours)
	assert.Equal(t, "3.50", *body.WorkedHours)
	mockRepo.AssertExpectations(t)
}

func TestUpdate_WorkedHoursAsString(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	task := taskFor(w.u1, "Ship", model.StatusPending)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(saved *model.Task) bool {
		return saved.WorkedHours != nil && *saved.WorkedHours == 0
	})).Return(nil)

	// Act
	resp := doJSON(router, "PUT", "/api/tasks/"+task.ID.String(),
		`{"status":"COMPLETED","completion_report":"Nothing to do","worked_hours":"0"}`)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	mockRepo.AssertExpectations(t)
}

func TestUpdate_CompletionNeedsReportAndHours(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	task := taskFor(w.u1, "Ship", model.StatusPending)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "PATCH", "/api/tasks/"+task.ID.String(), `{"status":"COMPLETED"}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, []lifecycle.Code{lifecycle.CodeReportRequired, lifecycle.CodeHoursRequired}, validationCodes(t, resp))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdate_InvalidWorkedHours(t *testing.T) {
	w := newWorld()

	cases := []struct {
		name  string
		hours string
		code  lifecycle.Code
	}{
		{"negative", `-0.01`, lifecycle.CodeHoursNegative},
		{"text", `"abc"`, lifecycle.CodeHoursNotNumeric},
		{"boolean", `true`, lifecycle.CodeHoursNotNumeric},
		{"object", `{}`, lifecycle.CodeHoursNotNumeric},
		{"array", `[1]`, lifecycle.CodeHoursNotNumeric},
		{"too large", `10000`, lifecycle.CodeHoursOutOfRange},
		{"sub-cent", `"0.001"`, lifecycle.CodeHoursOutOfRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, mockRepo := setupTaskAPI(w.u1)
			task := taskFor(w.u1, "Ship", model.StatusPending)
			mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

			resp := doJSON(router, "PATCH", "/api/tasks/"+task.ID.String(),
				`{"status":"COMPLETED","completion_report":"r","worked_hours":`+tc.hours+`}`)

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, validationCodes(t, resp), tc.code)
			mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdate_NonNumericHoursCollectedWithOtherErrors(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	task := taskFor(w.u1, "Ship", model.StatusPending)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "PATCH", "/api/tasks/"+task.ID.String(), `{"status":"COMPLETED","worked_hours":true}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.ElementsMatch(t,
		[]lifecycle.Code{lifecycle.CodeReportRequired, lifecycle.CodeHoursNotNumeric},
		validationCodes(t, resp))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdate_AlreadyCompleted(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	task := taskFor(w.u1, "Ship", model.StatusCompleted)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "PATCH", "/api/tasks/"+task.ID.String(), `{"completion_report":"again"}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, []lifecycle.Code{lifecycle.CodeAlreadyCompleted}, validationCodes(t, resp))
}

func TestUpdate_OtherUsersTask(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u2)
	task := taskFor(w.u1, "Ship", model.StatusPending)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "PATCH", "/api/tasks/"+task.ID.String(), `{"status":"COMPLETED"}`)

	// Assert
	assert.Equal(t, http.StatusForbidden, resp.Code)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdate_NotFound(t *testing.T) {
	router, mockRepo := setupTaskAPI(newWorld().u1)
	id := uuid.New()
	mockRepo.On("GetByID", mock.Anything, id).Return(nil, repository.ErrTaskNotFound)

	resp := doJSON(router, "PATCH", "/api/tasks/"+id.String(), `{}`)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdate_InvalidID(t *testing.T) {
	router, _ := setupTaskAPI(newWorld().u1)

	resp := doJSON(router, "PATCH", "/api/tasks/not-a-uuid", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid task ID format")
}

func completedTaskFor(u *model.User) *model.Task {
	task := taskFor(u, "Audit", model.StatusCompleted)
	report := "Checked everything"
	hours := 2.0
	task.CompletionReport = &report
	task.WorkedHours = &hours
	task.UpdatedAt = fixedNow
	return task
}

func TestReport_ManagingAdmin(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.admin1)
	task := completedTaskFor(w.u1)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "GET", "/api/tasks/"+task.ID.String()+"/report", "")

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	var body handler.TaskReportResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.AssignedTo)
	assert.Equal(t, "Checked everything", body.CompletionReport)
	assert.Equal(t, "2.00", body.WorkedHours)
	assert.True(t, body.CompletedAt.Equal(fixedNow))
}

func TestReport_OtherAdminIsForbidden(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.admin2)
	task := completedTaskFor(w.u1)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "GET", "/api/tasks/"+task.ID.String()+"/report", "")

	// Assert
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "You do not manage this user")
}

func TestReport_NotCompleted(t *testing.T) {
	// Arrange
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.super)
	task := taskFor(w.u3, "Open", model.StatusInProgress)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	// Act
	resp := doJSON(router, "GET", "/api/tasks/"+task.ID.String()+"/report", "")

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Task must be completed to view the report.")
}

func TestReport_UserIsForbidden(t *testing.T) {
	w := newWorld()
	router, mockRepo := setupTaskAPI(w.u1)
	task := completedTaskFor(w.u1)
	mockRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	resp := doJSON(router, "GET", "/api/tasks/"+task.ID.String()+"/report", "")

	assert.Equal(t, http.StatusForbidden, resp.Code)
}
