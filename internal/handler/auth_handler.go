package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskpanel/internal/auth"
	"taskpanel/internal/middleware"
	"taskpanel/internal/model"
)

// Credentials checks a username and password against the user store.
type Credentials interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type AuthHandler struct {
	users    Credentials
	issuer   *auth.Issuer
	denylist auth.Denylist
}

func NewAuthHandler(users Credentials, issuer *auth.Issuer, denylist auth.Denylist) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer, denylist: denylist}
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	AssignedAdminID *string `json:"assigned_admin_id,omitempty"`
}

// AuthResponse carries the issued token
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *model.User) UserResponse {
	resp := UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
	}
	if u.AssignedAdminID != nil {
		id := u.AssignedAdminID.String()
		resp.AssignedAdminID = &id
	}
	return resp
}

// authenticate returns the active user matching the credentials, or nil.
func authenticate(ctx context.Context, users Credentials, username, password string) (*model.User, error) {
	user, err := users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil || user == nil {
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.HashedPassword, password) {
		return nil, nil
	}
	return user, nil
}

// Login godoc
// @Summary      Log in
// @Description  Exchange a username and password for a JWT
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      LoginRequest  true  "Credentials"
// @Success      200          {object}  AuthResponse
// @Failure      400          {object}  ErrorResponse
// @Failure      401          {object}  ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := authenticate(c.Request.Context(), h.users, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.issuer.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}

// Logout godoc
// @Summary      Log out
// @Description  Revoke the current token
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := revoke(c.Request.Context(), h.denylist, claims); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func revoke(ctx context.Context, denylist auth.Denylist, claims *auth.Claims) error {
	if claims.ID == "" {
		return nil
	}
	if err := denylist.Revoke(ctx, claims.ID, claims.TTL(time.Now())); err != nil {
		log.Printf("⚠️  Failed to revoke token %s: %v", claims.ID, err)
		return err
	}
	return nil
}
