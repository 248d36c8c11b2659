package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpanel/internal/access"
	"taskpanel/internal/model"
	"taskpanel/internal/repository"
)

var taskColumns = []string{"id", "title", "description", "assigned_to", "due_date", "status", "completion_report", "worked_hours", "created_at", "updated_at"}

func TestTaskRepository_GetByID(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE id = \$1 ORDER BY "tasks"."id" LIMIT`).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(taskID.String(), "Write report", "", userID.String(), nil, "COMPLETED", "done", 2.5, time.Now(), time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID.String(), "u1", "u1@example.com", "hash", "USER", nil, true, time.Now(), time.Now()))

	task, err := taskRepo.GetByID(context.Background(), taskID)

	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, model.StatusCompleted, task.Status)
	require.NotNil(t, task.CompletionReport)
	assert.Equal(t, "done", *task.CompletionReport)
	require.NotNil(t, task.WorkedHours)
	assert.Equal(t, 2.5, *task.WorkedHours)
	assert.Equal(t, "u1", task.Assignee.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	task, err := taskRepo.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.Nil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_List_AdminScope(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)
	adminID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE tasks.assigned_to IN \(SELECT "?id"? FROM "users" WHERE assigned_admin_id = \$1\) ORDER BY due_date DESC,\s?created_at DESC`).
		WithArgs(adminID.String()).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	tasks, err := taskRepo.List(context.Background(), access.Scope{AssignedAdminID: &adminID})

	assert.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_List_OwnTasks(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE tasks.assigned_to = \$1 ORDER BY due_date DESC`).
		WithArgs(userID.String()).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	tasks, err := taskRepo.List(context.Background(), access.Scope{AssigneeID: &userID})

	assert.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Save(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	report := "Finished"
	hours := 3.0
	task := &model.Task{
		ID:               uuid.New(),
		Title:            "Ship it",
		AssignedTo:       uuid.New(),
		Status:           model.StatusCompleted,
		CompletionReport: &report,
		WorkedHours:      &hours,
		UpdatedAt:        time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .*"completion_report"=.*"status"=.*"worked_hours"=.* WHERE id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := taskRepo.Save(context.Background(), task)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Save_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := taskRepo.Save(context.Background(), &model.Task{ID: uuid.New(), Status: model.StatusPending})

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Delete(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)
	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "tasks" WHERE id = \$1`).
		WithArgs(taskID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, taskRepo.Delete(context.Background(), taskID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Delete_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "tasks"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := taskRepo.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
