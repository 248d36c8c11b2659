package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskpanel/internal/access"
	"taskpanel/internal/auth"
	"taskpanel/internal/lifecycle"
	"taskpanel/internal/model"
	"taskpanel/internal/repository"
)

const usersPath = "/panel/users"

// UserForm is the create/edit user form. is_active is a checkbox, so it
// arrives as "on" or not at all.
type UserForm struct {
	Username      string     `form:"username"`
	Email         string     `form:"email"`
	Role          model.Role `form:"role"`
	AssignedAdmin string     `form:"assigned_admin"`
	Password      string     `form:"password"`
	IsActive      string     `form:"is_active"`
}

func (f UserForm) active() bool {
	return f.IsActive == "on" || f.IsActive == "true"
}

func userFormFrom(u *model.User) UserForm {
	f := UserForm{Username: u.Username, Email: u.Email, Role: u.Role}
	if u.AssignedAdminID != nil {
		f.AssignedAdmin = u.AssignedAdminID.String()
	}
	if u.IsActive {
		f.IsActive = "on"
	}
	return f
}

func (h *PanelHandler) renderUserForm(c *gin.Context, status int, title string, form UserForm, creating bool, errs lifecycle.ValidationErrors) {
	admins, err := h.users.List(c.Request.Context(), access.Scope{}, model.RoleAdmin)
	if err != nil {
		h.serverError(c, "Failed to retrieve admins", err)
		return
	}
	h.render(c, status, "user_form.html", gin.H{
		"Title":    title,
		"Form":     form,
		"Creating": creating,
		"Roles":    model.Roles,
		"Admins":   admins,
		"Errors":   errs.ByField(),
	})
}

// resolveAdmin looks up the chosen assigned admin. An unknown id resolves to
// a user without a role so the account rules reject it.
func (h *PanelHandler) resolveAdmin(ctx context.Context, raw string) (*model.User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return &model.User{}, nil
	}
	admin, err := h.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return &model.User{}, nil
	}
	return admin, nil
}

// checkUser applies the account rules plus username uniqueness. self is the
// id of the edited user, uuid.Nil on create.
func (h *PanelHandler) checkUser(ctx context.Context, form UserForm, admin *model.User, self uuid.UUID) (lifecycle.ValidationErrors, error) {
	errs := lifecycle.CheckUser(lifecycle.UserProposal{
		Username:      form.Username,
		Email:         form.Email,
		Role:          form.Role,
		AssignedAdmin: admin,
		Password:      form.Password,
		Creating:      self == uuid.Nil,
	})

	if name := strings.TrimSpace(form.Username); name != "" {
		existing, err := h.users.FindByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != self {
			errs = append(errs, lifecycle.NewError("username", lifecycle.CodeUsernameTaken))
		}
	}
	return errs, nil
}

// applyUserForm copies a validated form onto u.
func applyUserForm(u *model.User, form UserForm, admin *model.User) error {
	u.Username = strings.TrimSpace(form.Username)
	u.Email = strings.TrimSpace(form.Email)
	u.Role = form.Role
	u.IsActive = form.active()
	u.AssignedAdminID = nil
	if admin != nil {
		u.AssignedAdminID = &admin.ID
	}
	if form.Password != "" {
		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			return err
		}
		u.HashedPassword = hash
	}
	return nil
}

func usernameTaken() lifecycle.ValidationErrors {
	return lifecycle.ValidationErrors{lifecycle.NewError("username", lifecycle.CodeUsernameTaken)}
}

func (h *PanelHandler) ListUsers(c *gin.Context) {
	decision, ok := h.authorize(c, access.ListUsers, access.None())
	if !ok {
		return
	}

	users, err := h.users.List(c.Request.Context(), *decision.Scope)
	if err != nil {
		h.serverError(c, "Failed to retrieve users", err)
		return
	}
	h.render(c, http.StatusOK, "user_list.html", gin.H{"Title": "Users", "Users": users})
}

func (h *PanelHandler) CreateUserPage(c *gin.Context) {
	if _, ok := h.authorize(c, access.CreateUser, access.None()); !ok {
		return
	}
	h.renderUserForm(c, http.StatusOK, "New user", UserForm{Role: model.RoleUser, IsActive: "on"}, true, nil)
}

func (h *PanelHandler) CreateUser(c *gin.Context) {
	if _, ok := h.authorize(c, access.CreateUser, access.None()); !ok {
		return
	}

	var form UserForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Invalid form")
		return
	}

	ctx := c.Request.Context()
	admin, err := h.resolveAdmin(ctx, form.AssignedAdmin)
	if err != nil {
		h.serverError(c, "Failed to retrieve admin", err)
		return
	}
	errs, err := h.checkUser(ctx, form, admin, uuid.Nil)
	if err != nil {
		h.serverError(c, "Failed to check username", err)
		return
	}
	if len(errs) > 0 {
		h.renderUserForm(c, http.StatusBadRequest, "New user", form, true, errs)
		return
	}

	user := &model.User{}
	if err := applyUserForm(user, form, admin); err != nil {
		h.serverError(c, "Failed to hash password", err)
		return
	}
	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			h.renderUserForm(c, http.StatusBadRequest, "New user", form, true, usernameTaken())
			return
		}
		h.serverError(c, "Failed to create user", err)
		return
	}

	redirectWithFlash(c, usersPath, "User created successfully.")
}

// loadUser reads the :id user for the user management pages.
func (h *PanelHandler) loadUser(c *gin.Context) (*model.User, bool) {
	if !h.requireLogin(c) {
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.notFound(c, "User")
		return nil, false
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serverError(c, "Failed to retrieve user", err)
		return nil, false
	}
	if user == nil {
		h.notFound(c, "User")
		return nil, false
	}
	return user, true
}

func (h *PanelHandler) EditUserPage(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.EditUser, access.OnUser(user)); !ok {
		return
	}
	h.renderUserForm(c, http.StatusOK, "Edit "+user.Username, userFormFrom(user), false, nil)
}

func (h *PanelHandler) EditUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.EditUser, access.OnUser(user)); !ok {
		return
	}

	var form UserForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "Invalid form")
		return
	}

	ctx := c.Request.Context()
	title := "Edit " + user.Username
	admin, err := h.resolveAdmin(ctx, form.AssignedAdmin)
	if err != nil {
		h.serverError(c, "Failed to retrieve admin", err)
		return
	}
	errs, err := h.checkUser(ctx, form, admin, user.ID)
	if err != nil {
		h.serverError(c, "Failed to check username", err)
		return
	}
	if len(errs) > 0 {
		h.renderUserForm(c, http.StatusBadRequest, title, form, false, errs)
		return
	}

	if err := applyUserForm(user, form, admin); err != nil {
		h.serverError(c, "Failed to hash password", err)
		return
	}
	switch err := h.users.Update(ctx, user); {
	case errors.Is(err, repository.ErrUsernameTaken):
		h.renderUserForm(c, http.StatusBadRequest, title, form, false, usernameTaken())
		return
	case errors.Is(err, repository.ErrUserNotFound):
		h.notFound(c, "User")
		return
	case err != nil:
		h.serverError(c, "Failed to update user", err)
		return
	}

	redirectWithFlash(c, usersPath, "User updated successfully.")
}

func deleteUserWarning(u *model.User) string {
	switch u.Role {
	case model.RoleAdmin:
		return "Users they manage will no longer have an assigned admin."
	case model.RoleUser:
		return "Tasks assigned to them will be deleted too."
	}
	return ""
}

func (h *PanelHandler) DeleteUserPage(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.DeleteUser, access.OnUser(user)); !ok {
		return
	}
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Title":   "Delete user",
		"Name":    user.Username,
		"Warning": deleteUserWarning(user),
		"Cancel":  usersPath,
	})
}

func (h *PanelHandler) DeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if _, ok := h.authorize(c, access.DeleteUser, access.OnUser(user)); !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.notFound(c, "User")
			return
		}
		h.serverError(c, "Failed to delete user", err)
		return
	}

	redirectWithFlash(c, usersPath, "User deleted successfully.")
}
