package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

type Task struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title            string    `gorm:"not null"`
	Description      string
	AssignedTo       uuid.UUID  `gorm:"type:uuid;not null;index"`
	DueDate          *time.Time `gorm:"type:date"`
	Status           TaskStatus `gorm:"type:varchar(20);not null;index"`
	CompletionReport *string
	WorkedHours      *float64 `gorm:"type:decimal(6,2)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Assignee User `gorm:"foreignKey:AssignedTo;constraint:OnDelete:CASCADE"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	return nil
}

func (t *Task) Completed() bool {
	return t.Status == StatusCompleted
}
