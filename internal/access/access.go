// Package access decides who may do what in the task panel.
//
// The whole policy lives in Authorize as one switch keyed on the action and
// the principal's role, so it can be read top to bottom.
package access

import (
	"github.com/google/uuid"

	"taskpanel/internal/model"
)

type Action string

const (
	ViewSuperDashboard Action = "VIEW_SUPER_DASHBOARD"
	ViewAdminDashboard Action = "VIEW_ADMIN_DASHBOARD"
	ListUsers          Action = "LIST_USERS"
	CreateUser         Action = "CREATE_USER"
	EditUser           Action = "EDIT_USER"
	DeleteUser         Action = "DELETE_USER"
	ListTasks          Action = "LIST_TASKS"
	CreateTask         Action = "CREATE_TASK"
	EditTask           Action = "EDIT_TASK"
	DeleteTask         Action = "DELETE_TASK"
	ViewTaskReport     Action = "VIEW_TASK_REPORT"
	ListOwnTasks       Action = "LIST_OWN_TASKS"
	CompleteOwnTask    Action = "COMPLETE_OWN_TASK"
	ExportReports      Action = "EXPORT_REPORTS"
)

var Actions = []Action{
	ViewSuperDashboard, ViewAdminDashboard,
	ListUsers, CreateUser, EditUser, DeleteUser,
	ListTasks, CreateTask, EditTask, DeleteTask, ViewTaskReport,
	ListOwnTasks, CompleteOwnTask, ExportReports,
}

type DenyReason string

const (
	ReasonNone            DenyReason = ""
	ReasonUnauthenticated DenyReason = "UNAUTHENTICATED"
	ReasonForbidden       DenyReason = "FORBIDDEN"
	ReasonNotManaged      DenyReason = "NOT_MANAGED"
	ReasonNoTarget        DenyReason = "NO_TARGET"
)

// Principal is the authenticated identity behind a request. The zero value is
// the anonymous principal.
type Principal struct {
	ID              uuid.UUID
	Username        string
	Role            model.Role
	AssignedAdminID *uuid.UUID
}

var Anonymous = Principal{}

func PrincipalFromUser(u *model.User) Principal {
	if u == nil {
		return Anonymous
	}
	return Principal{
		ID:              u.ID,
		Username:        u.Username,
		Role:            u.Role,
		AssignedAdminID: u.AssignedAdminID,
	}
}

func (p Principal) Authenticated() bool {
	return p.ID != uuid.Nil && p.Role.Valid()
}

// Target is the record an action addresses. Task targets must carry their
// Assignee so the managed-ownership check can read its assigned admin.
type Target struct {
	User *model.User
	Task *model.Task
}

func None() Target { return Target{} }

func OnUser(u *model.User) Target { return Target{User: u} }

func OnTask(t *model.Task) Target { return Target{Task: t} }

// Scope is the row-level filter for collection queries. Exactly one of the
// fields narrows the result; the zero Scope means every row.
type Scope struct {
	// AssignedAdminID keeps tasks whose assignee is managed by this admin, or,
	// for user scopes, users managed by this admin.
	AssignedAdminID *uuid.UUID
	// AssigneeID keeps tasks assigned to this user.
	AssigneeID *uuid.UUID
	// ExcludeRoles drops users with these roles.
	ExcludeRoles []model.Role
}

func (s Scope) All() bool {
	return s.AssignedAdminID == nil && s.AssigneeID == nil && len(s.ExcludeRoles) == 0
}

// Contains reports whether task t falls inside the scope. t.Assignee must be
// loaded when the scope filters by assigned admin.
func (s Scope) Contains(t *model.Task) bool {
	if s.AssigneeID != nil && t.AssignedTo != *s.AssigneeID {
		return false
	}
	if s.AssignedAdminID != nil && !t.Assignee.ManagedBy(*s.AssignedAdminID) {
		return false
	}
	return true
}

type Decision struct {
	Allow  bool
	Scope  *Scope
	Reason DenyReason
}

func allow() Decision { return Decision{Allow: true} }

func allowScoped(s Scope) Decision { return Decision{Allow: true, Scope: &s} }

func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Authorize decides whether p may perform action on target. It never fails:
// a missing permission is a Decision with Allow false and a Reason.
func Authorize(p Principal, action Action, target Target) Decision {
	if !p.Authenticated() {
		return deny(ReasonUnauthenticated)
	}

	switch action {
	case ViewSuperDashboard, ExportReports:
		if p.Role == model.RoleSuperAdmin {
			return allow()
		}

	case ViewAdminDashboard:
		if p.Role == model.RoleAdmin {
			return allowScoped(Scope{AssignedAdminID: idPtr(p.ID)})
		}

	case ListUsers:
		if p.Role == model.RoleSuperAdmin {
			return allowScoped(Scope{ExcludeRoles: []model.Role{model.RoleSuperAdmin}})
		}

	case CreateUser, EditUser, DeleteUser:
		if p.Role == model.RoleSuperAdmin {
			return allow()
		}

	case ListTasks:
		switch p.Role {
		case model.RoleSuperAdmin:
			return allowScoped(Scope{})
		case model.RoleAdmin:
			return allowScoped(Scope{AssignedAdminID: idPtr(p.ID)})
		}

	case CreateTask:
		// The target, when given, is the proposed assignee.
		switch p.Role {
		case model.RoleSuperAdmin:
			return allowScoped(Scope{})
		case model.RoleAdmin:
			if target.User != nil && !target.User.ManagedBy(p.ID) {
				return deny(ReasonNotManaged)
			}
			return allowScoped(Scope{AssignedAdminID: idPtr(p.ID)})
		}

	case EditTask, DeleteTask, ViewTaskReport:
		switch p.Role {
		case model.RoleSuperAdmin:
			return allow()
		case model.RoleAdmin:
			if target.Task == nil {
				return deny(ReasonNoTarget)
			}
			if !target.Task.Assignee.ManagedBy(p.ID) {
				return deny(ReasonNotManaged)
			}
			return allow()
		}

	case ListOwnTasks:
		if p.Role == model.RoleUser {
			return allowScoped(Scope{AssigneeID: idPtr(p.ID)})
		}

	case CompleteOwnTask:
		if p.Role == model.RoleUser {
			if target.Task == nil {
				return deny(ReasonNoTarget)
			}
			if target.Task.AssignedTo != p.ID {
				return deny(ReasonForbidden)
			}
			return allow()
		}
	}

	return deny(ReasonForbidden)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
