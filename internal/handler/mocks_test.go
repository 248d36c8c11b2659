package handler_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"taskpanel/internal/access"
	"taskpanel/internal/model"
)

// MockUserRepository is a testify mock of repository.UserRepositoryInterface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, scope access.Scope, roles ...model.Role) ([]model.User, error) {
	args := m.Called(ctx, scope, roles)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTaskRepository is a testify mock of repository.TaskRepositoryInterface
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, id)
	task := args.Get(0)
	if task == nil {
		return nil, args.Error(1)
	}
	return task.(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, scope access.Scope) ([]model.Task, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Count(ctx context.Context, scope access.Scope) (int64, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) ListCompleted(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Save(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// world is the panel of the usage scenarios: admin1 manages u1 and u2,
// admin2 manages u3.
type world struct {
	super, admin1, admin2 *model.User
	u1, u2, u3            *model.User
}

func newWorld() world {
	mk := func(name string, role model.Role, admin *model.User) *model.User {
		u := &model.User{ID: uuid.New(), Username: name, Role: role, IsActive: true}
		if admin != nil {
			id := admin.ID
			u.AssignedAdminID = &id
		}
		return u
	}
	w := world{}
	w.super = mk("root", model.RoleSuperAdmin, nil)
	w.admin1 = mk("admin1", model.RoleAdmin, nil)
	w.admin2 = mk("admin2", model.RoleAdmin, nil)
	w.u1 = mk("u1", model.RoleUser, w.admin1)
	w.u2 = mk("u2", model.RoleUser, w.admin1)
	w.u3 = mk("u3", model.RoleUser, w.admin2)
	return w
}

func taskFor(u *model.User, title string, status model.TaskStatus) *model.Task {
	return &model.Task{
		ID:         uuid.New(),
		Title:      title,
		AssignedTo: u.ID,
		Assignee:   *u,
		Status:     status,
	}
}
