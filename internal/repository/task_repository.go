package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskpanel/internal/access"
	"taskpanel/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, scope access.Scope) ([]model.Task, error)
	Count(ctx context.Context, scope access.Scope) (int64, error)
	ListCompleted(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit("Assignee").Create(task).Error
}

// GetByID retrieves a task by its ID together with its assignee
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).Preload("Assignee").First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// List retrieves the tasks inside scope, latest due date first
func (r *TaskRepository) List(ctx context.Context, scope access.Scope) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Preload("Assignee").
		Scopes(taskScope(scope)).
		Order("due_date DESC").
		Order("created_at DESC").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

func (r *TaskRepository) Count(ctx context.Context, scope access.Scope) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).Scopes(taskScope(scope)).Count(&count).Error
	return count, err
}

// ListCompleted retrieves every completed task for report export
func (r *TaskRepository) ListCompleted(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("status = ?", model.StatusCompleted).
		Order("updated_at").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// Save writes every editable field of an already validated task in a single
// UPDATE, so status, report and hours land together or not at all.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"title":             task.Title,
		"description":       task.Description,
		"assigned_to":       task.AssignedTo,
		"due_date":          task.DueDate,
		"status":            task.Status,
		"completion_report": task.CompletionReport,
		"worked_hours":      task.WorkedHours,
		"updated_at":        task.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task by its ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
