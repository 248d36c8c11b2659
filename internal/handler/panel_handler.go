package handler

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"taskpanel/internal/access"
	"taskpanel/internal/auth"
	"taskpanel/internal/lifecycle"
	"taskpanel/internal/middleware"
	"taskpanel/internal/model"
	"taskpanel/internal/repository"
)

const (
	loginPath   = "/panel/login"
	flashCookie = "flash"
)

// PanelHandler serves the server-rendered management panel. Every page maps
// to one access action; the session cookie carries the same JWT the API uses.
type PanelHandler struct {
	users    repository.UserRepositoryInterface
	tasks    repository.TaskRepositoryInterface
	issuer   *auth.Issuer
	denylist auth.Denylist
	guard    *lifecycle.Guard
}

func NewPanelHandler(
	users repository.UserRepositoryInterface,
	tasks repository.TaskRepositoryInterface,
	issuer *auth.Issuer,
	denylist auth.Denylist,
	guard *lifecycle.Guard,
) *PanelHandler {
	return &PanelHandler{
		users:    users,
		tasks:    tasks,
		issuer:   issuer,
		denylist: denylist,
		guard:    guard,
	}
}

// HomeFor is the landing page of each role after login.
func HomeFor(role model.Role) string {
	switch role {
	case model.RoleSuperAdmin:
		return "/panel/super/dashboard"
	case model.RoleAdmin:
		return "/panel/admin/dashboard"
	}
	return "/panel/user/tasks"
}

func (h *PanelHandler) render(c *gin.Context, status int, name string, data gin.H) {
	data["Principal"] = middleware.PrincipalFrom(c)
	data["Flash"] = popFlash(c)
	c.HTML(status, name, data)
}

// authorize runs the access check for the page and answers the denial
// itself: anonymous visitors go to the login page, everyone else gets 403.
func (h *PanelHandler) authorize(c *gin.Context, action access.Action, target access.Target) (access.Decision, bool) {
	d := access.Authorize(middleware.PrincipalFrom(c), action, target)
	if !d.Allow {
		h.deny(c, d)
	}
	return d, d.Allow
}

func (h *PanelHandler) deny(c *gin.Context, d access.Decision) {
	if d.Reason == access.ReasonUnauthenticated {
		c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		return
	}
	h.render(c, http.StatusForbidden, "error.html", gin.H{
		"Title":   "Forbidden",
		"Message": "You do not have permission to access this page.",
	})
}

// requireLogin sends anonymous visitors to the login page before any record
// is looked up.
func (h *PanelHandler) requireLogin(c *gin.Context) bool {
	if middleware.PrincipalFrom(c).Authenticated() {
		return true
	}
	h.deny(c, access.Decision{Reason: access.ReasonUnauthenticated})
	return false
}

func (h *PanelHandler) notFound(c *gin.Context, what string) {
	h.render(c, http.StatusNotFound, "error.html", gin.H{
		"Title":   "Not found",
		"Message": what + " not found.",
	})
}

func (h *PanelHandler) serverError(c *gin.Context, msg string, err error) {
	log.Printf("❌ %s: %v", msg, err)
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"Title":   "Server error",
		"Message": msg + ".",
	})
}

func setFlash(c *gin.Context, msg string) {
	c.SetCookie(flashCookie, msg, 60, "/panel", "", false, true)
}

func popFlash(c *gin.Context) string {
	msg, err := c.Cookie(flashCookie)
	if err != nil || msg == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/panel", "", false, true)
	return msg
}

func redirectWithFlash(c *gin.Context, path, msg string) {
	setFlash(c, msg)
	c.Redirect(http.StatusFound, path)
}

// safeNext only follows redirects that stay inside the panel.
func safeNext(next string) bool {
	return strings.HasPrefix(next, "/panel/") && !strings.HasPrefix(next, "//")
}

func (h *PanelHandler) LoginPage(c *gin.Context) {
	if p := middleware.PrincipalFrom(c); p.Authenticated() {
		c.Redirect(http.StatusFound, HomeFor(p.Role))
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{
		"Title":    "Log in",
		"Next":     c.Query("next"),
		"Username": "",
	})
}

func (h *PanelHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	next := c.PostForm("next")

	user, err := authenticate(c.Request.Context(), h.users, username, c.PostForm("password"))
	if err != nil {
		h.serverError(c, "Failed to retrieve user", err)
		return
	}
	if user == nil {
		h.render(c, http.StatusOK, "login.html", gin.H{
			"Title":    "Log in",
			"Next":     next,
			"Username": username,
			"Error":    "Please enter a correct username and password.",
		})
		return
	}

	token, err := h.issuer.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		h.serverError(c, "Failed to start session", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.issuer.Expiry().Seconds()), "/", "", false, true)

	if safeNext(next) {
		c.Redirect(http.StatusFound, next)
		return
	}
	c.Redirect(http.StatusFound, HomeFor(user.Role))
}

func (h *PanelHandler) Logout(c *gin.Context) {
	if claims := middleware.ClaimsFrom(c); claims != nil {
		// The cookie is cleared either way.
		_ = revoke(c.Request.Context(), h.denylist, claims)
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	redirectWithFlash(c, loginPath, "You have been logged out.")
}

func (h *PanelHandler) SuperDashboard(c *gin.Context) {
	if _, ok := h.authorize(c, access.ViewSuperDashboard, access.None()); !ok {
		return
	}

	ctx := c.Request.Context()
	counts := gin.H{"Title": "Dashboard"}
	for key, role := range map[string]model.Role{
		"UserCount":       model.RoleUser,
		"AdminCount":      model.RoleAdmin,
		"SuperAdminCount": model.RoleSuperAdmin,
	} {
		n, err := h.users.CountByRole(ctx, role)
		if err != nil {
			h.serverError(c, "Failed to count users", err)
			return
		}
		counts[key] = n
	}

	taskCount, err := h.tasks.Count(ctx, access.Scope{})
	if err != nil {
		h.serverError(c, "Failed to count tasks", err)
		return
	}
	counts["TaskCount"] = taskCount

	h.render(c, http.StatusOK, "super_dashboard.html", counts)
}

func (h *PanelHandler) AdminDashboard(c *gin.Context) {
	decision, ok := h.authorize(c, access.ViewAdminDashboard, access.None())
	if !ok {
		return
	}

	ctx := c.Request.Context()
	users, err := h.users.List(ctx, *decision.Scope, model.RoleUser)
	if err != nil {
		h.serverError(c, "Failed to retrieve users", err)
		return
	}
	tasks, err := h.tasks.List(ctx, *decision.Scope)
	if err != nil {
		h.serverError(c, "Failed to retrieve tasks", err)
		return
	}

	h.render(c, http.StatusOK, "admin_dashboard.html", gin.H{
		"Title": "Dashboard",
		"Users": users,
		"Tasks": tasks,
	})
}
