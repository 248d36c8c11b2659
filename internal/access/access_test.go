package access_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpanel/internal/access"
	"taskpanel/internal/model"
)

func newUser(role model.Role, admin *model.User) *model.User {
	u := &model.User{ID: uuid.New(), Username: string(role) + "-" + uuid.NewString()[:8], Role: role, IsActive: true}
	if admin != nil {
		id := admin.ID
		u.AssignedAdminID = &id
	}
	return u
}

func newTask(assignee *model.User) *model.Task {
	return &model.Task{ID: uuid.New(), Title: "task", AssignedTo: assignee.ID, Assignee: *assignee, Status: model.StatusPending}
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	for _, action := range access.Actions {
		d := access.Authorize(access.Anonymous, action, access.None())

		assert.False(t, d.Allow, action)
		assert.Equal(t, access.ReasonUnauthenticated, d.Reason, action)
	}
}

func TestAuthorize_RoleTable(t *testing.T) {
	super := access.PrincipalFromUser(newUser(model.RoleSuperAdmin, nil))
	admin := access.PrincipalFromUser(newUser(model.RoleAdmin, nil))
	user := access.PrincipalFromUser(newUser(model.RoleUser, nil))

	tests := []struct {
		action access.Action
		super  bool
		admin  bool
		user   bool
	}{
		{access.ViewSuperDashboard, true, false, false},
		{access.ViewAdminDashboard, false, true, false},
		{access.ListUsers, true, false, false},
		{access.CreateUser, true, false, false},
		{access.EditUser, true, false, false},
		{access.DeleteUser, true, false, false},
		{access.ListTasks, true, true, false},
		{access.CreateTask, true, true, false},
		{access.ExportReports, true, false, false},
		{access.ListOwnTasks, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.super, access.Authorize(super, tt.action, access.None()).Allow)
			assert.Equal(t, tt.admin, access.Authorize(admin, tt.action, access.None()).Allow)
			assert.Equal(t, tt.user, access.Authorize(user, tt.action, access.None()).Allow)
		})
	}
}

func TestAuthorize_ListUsersExcludesSuperAdmins(t *testing.T) {
	super := access.PrincipalFromUser(newUser(model.RoleSuperAdmin, nil))

	d := access.Authorize(super, access.ListUsers, access.None())

	require.True(t, d.Allow)
	require.NotNil(t, d.Scope)
	assert.Equal(t, []model.Role{model.RoleSuperAdmin}, d.Scope.ExcludeRoles)
}

func TestAuthorize_TaskOwnership(t *testing.T) {
	adminX := newUser(model.RoleAdmin, nil)
	adminY := newUser(model.RoleAdmin, nil)
	u1 := newUser(model.RoleUser, adminX)
	orphan := newUser(model.RoleUser, nil)

	x := access.PrincipalFromUser(adminX)
	y := access.PrincipalFromUser(adminY)
	super := access.PrincipalFromUser(newUser(model.RoleSuperAdmin, nil))

	task := newTask(u1)
	orphanTask := newTask(orphan)

	for _, action := range []access.Action{access.EditTask, access.DeleteTask, access.ViewTaskReport} {
		t.Run(string(action), func(t *testing.T) {
			assert.True(t, access.Authorize(x, action, access.OnTask(task)).Allow)

			d := access.Authorize(y, action, access.OnTask(task))
			assert.False(t, d.Allow)
			assert.Equal(t, access.ReasonNotManaged, d.Reason)

			d = access.Authorize(x, action, access.OnTask(orphanTask))
			assert.False(t, d.Allow)
			assert.Equal(t, access.ReasonNotManaged, d.Reason)

			assert.True(t, access.Authorize(super, action, access.OnTask(orphanTask)).Allow)
			assert.False(t, access.Authorize(access.PrincipalFromUser(u1), action, access.OnTask(task)).Allow)
		})
	}
}

func TestAuthorize_CreateTaskAssigneeRestriction(t *testing.T) {
	adminX := newUser(model.RoleAdmin, nil)
	adminY := newUser(model.RoleAdmin, nil)
	mine := newUser(model.RoleUser, adminX)
	theirs := newUser(model.RoleUser, adminY)
	x := access.PrincipalFromUser(adminX)

	assert.True(t, access.Authorize(x, access.CreateTask, access.OnUser(mine)).Allow)

	d := access.Authorize(x, access.CreateTask, access.OnUser(theirs))
	assert.False(t, d.Allow)
	assert.Equal(t, access.ReasonNotManaged, d.Reason)

	d = access.Authorize(x, access.CreateTask, access.None())
	require.True(t, d.Allow)
	require.NotNil(t, d.Scope.AssignedAdminID)
	assert.Equal(t, adminX.ID, *d.Scope.AssignedAdminID)

	super := access.PrincipalFromUser(newUser(model.RoleSuperAdmin, nil))
	assert.True(t, access.Authorize(super, access.CreateTask, access.OnUser(theirs)).Allow)
}

func TestAuthorize_CompleteOwnTask(t *testing.T) {
	u1 := newUser(model.RoleUser, nil)
	u2 := newUser(model.RoleUser, nil)
	task := newTask(u1)

	assert.True(t, access.Authorize(access.PrincipalFromUser(u1), access.CompleteOwnTask, access.OnTask(task)).Allow)

	d := access.Authorize(access.PrincipalFromUser(u2), access.CompleteOwnTask, access.OnTask(task))
	assert.False(t, d.Allow)
	assert.Equal(t, access.ReasonForbidden, d.Reason)

	admin := access.PrincipalFromUser(newUser(model.RoleAdmin, nil))
	assert.False(t, access.Authorize(admin, access.CompleteOwnTask, access.OnTask(task)).Allow)
}

func TestAuthorize_ListTasksScopes(t *testing.T) {
	adminX := newUser(model.RoleAdmin, nil)
	u1 := newUser(model.RoleUser, adminX)
	u2 := newUser(model.RoleUser, adminX)
	u3 := newUser(model.RoleUser, newUser(model.RoleAdmin, nil))
	orphan := newUser(model.RoleUser, nil)

	tasks := []*model.Task{newTask(u1), newTask(u2), newTask(u3), newTask(orphan)}

	t.Run("superadmin sees all including unassigned users", func(t *testing.T) {
		d := access.Authorize(access.PrincipalFromUser(newUser(model.RoleSuperAdmin, nil)), access.ListTasks, access.None())
		require.True(t, d.Allow)
		assert.True(t, d.Scope.All())
		for _, task := range tasks {
			assert.True(t, d.Scope.Contains(task))
		}
	})

	t.Run("admin sees managed users only", func(t *testing.T) {
		d := access.Authorize(access.PrincipalFromUser(adminX), access.ListTasks, access.None())
		require.True(t, d.Allow)

		var visible []uuid.UUID
		for _, task := range tasks {
			if d.Scope.Contains(task) {
				visible = append(visible, task.AssignedTo)
			}
		}
		assert.ElementsMatch(t, []uuid.UUID{u1.ID, u2.ID}, visible)
	})

	t.Run("user sees own tasks", func(t *testing.T) {
		d := access.Authorize(access.PrincipalFromUser(u1), access.ListOwnTasks, access.None())
		require.True(t, d.Allow)
		assert.True(t, d.Scope.Contains(tasks[0]))
		assert.False(t, d.Scope.Contains(tasks[1]))
	})
}

func TestAuthorize_DeletedAdminReleasesUsers(t *testing.T) {
	adminX := newUser(model.RoleAdmin, nil)
	adminY := newUser(model.RoleAdmin, nil)
	u1 := newUser(model.RoleUser, adminX)
	u2 := newUser(model.RoleUser, adminX)
	tasks := []*model.Task{newTask(u1), newTask(u2)}

	// Deleting X nulls the assignment on its users.
	u1.AssignedAdminID = nil
	u2.AssignedAdminID = nil
	for _, task := range tasks {
		task.Assignee.AssignedAdminID = nil
	}

	d := access.Authorize(access.PrincipalFromUser(adminY), access.ListTasks, access.None())
	require.True(t, d.Allow)
	for _, task := range tasks {
		assert.False(t, d.Scope.Contains(task))
		assert.False(t, access.Authorize(access.PrincipalFromUser(adminY), access.EditTask, access.OnTask(task)).Allow)
	}
}
