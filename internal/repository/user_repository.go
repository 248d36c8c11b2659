package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskpanel/internal/access"
	"taskpanel/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, scope access.Scope, roles ...model.Role) ([]model.User, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Omit("AssignedAdmin").Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns the users inside scope, optionally restricted to roles,
// with their assigned admin loaded.
func (r *UserRepository) List(ctx context.Context, scope access.Scope, roles ...model.Role) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx).Preload("AssignedAdmin").Scopes(userScope(scope))
	if len(roles) > 0 {
		q = q.Where("users.role IN ?", roles)
	}
	err := q.Order("username").Find(&users).Error
	return users, err
}

func (r *UserRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// Update writes the editable account fields. A user that stops being an
// Admin releases the users it managed.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"username":          user.Username,
			"email":             user.Email,
			"hashed_password":   user.HashedPassword,
			"role":              user.Role,
			"assigned_admin_id": user.AssignedAdminID,
			"is_active":         user.IsActive,
		})
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if user.Role != model.RoleAdmin {
			return releaseManagedUsers(tx, user.ID)
		}
		return nil
	})
}

// Delete removes the user and the tasks assigned to it. Users managed by a
// deleted Admin keep existing with no assigned admin.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := releaseManagedUsers(tx, id); err != nil {
			return err
		}
		if err := tx.Where("assigned_to = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&model.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func releaseManagedUsers(tx *gorm.DB, adminID uuid.UUID) error {
	return tx.Model(&model.User{}).
		Where("assigned_admin_id = ?", adminID).
		Update("assigned_admin_id", nil).Error
}
