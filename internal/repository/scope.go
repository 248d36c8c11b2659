package repository

import (
	"gorm.io/gorm"

	"taskpanel/internal/access"
)

// taskScope narrows a tasks query to the rows an access decision allows.
func taskScope(s access.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.AssigneeID != nil {
			db = db.Where("tasks.assigned_to = ?", *s.AssigneeID)
		}
		if s.AssignedAdminID != nil {
			db = db.Where("tasks.assigned_to IN (?)",
				db.Session(&gorm.Session{NewDB: true}).Table("users").Select("id").Where("assigned_admin_id = ?", *s.AssignedAdminID))
		}
		return db
	}
}

// userScope narrows a users query the same way.
func userScope(s access.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(s.ExcludeRoles) > 0 {
			db = db.Where("users.role NOT IN ?", s.ExcludeRoles)
		}
		if s.AssignedAdminID != nil {
			db = db.Where("users.assigned_admin_id = ?", *s.AssignedAdminID)
		}
		if s.AssigneeID != nil {
			db = db.Where("users.id = ?", *s.AssigneeID)
		}
		return db
	}
}
