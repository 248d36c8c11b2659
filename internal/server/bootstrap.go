package server

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"taskpanel/internal/auth"
	"taskpanel/internal/lifecycle"
	"taskpanel/internal/model"
	"taskpanel/internal/repository"
)

// CreateSuperAdmin bootstraps an active SuperAdmin account. It runs the same
// account rules as the panel's user form.
func CreateSuperAdmin(ctx context.Context, db *gorm.DB, username, email, password string) (*model.User, error) {
	if errs := lifecycle.CheckUser(lifecycle.UserProposal{
		Username: username,
		Email:    email,
		Role:     model.RoleSuperAdmin,
		Password: password,
		Creating: true,
	}); len(errs) > 0 {
		return nil, errs
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		Role:           model.RoleSuperAdmin,
		IsActive:       true,
	}
	if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, lifecycle.ValidationErrors{lifecycle.NewError("username", lifecycle.CodeUsernameTaken)}
		}
		return nil, err
	}

	log.Printf("✅ SuperAdmin %q created", username)
	return user, nil
}
