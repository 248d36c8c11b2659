package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleUser       Role = "USER"
)

var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Label is the human-readable name shown in the panel.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "SuperAdmin"
	case RoleAdmin:
		return "Admin"
	case RoleUser:
		return "User"
	}
	return string(r)
}

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username        string    `gorm:"uniqueIndex;not null"`
	Email           string
	HashedPassword  string     `gorm:"not null"`
	Role            Role       `gorm:"type:varchar(20);not null;index"`
	AssignedAdminID *uuid.UUID `gorm:"type:uuid;index"`
	IsActive        bool       `gorm:"not null"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`

	AssignedAdmin *User `gorm:"foreignKey:AssignedAdminID;constraint:OnDelete:SET NULL"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ManagedBy reports whether u is a User assigned to the admin with the given id.
func (u *User) ManagedBy(adminID uuid.UUID) bool {
	return u != nil && u.AssignedAdminID != nil && *u.AssignedAdminID == adminID
}
