package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskpanel/internal/access"
	"taskpanel/internal/lifecycle"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error   string                      `json:"error"`
	Details []lifecycle.ValidationError `json:"details,omitempty"`
}

func deniedStatus(d access.Decision) int {
	if d.Reason == access.ReasonUnauthenticated {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

func deniedMessage(d access.Decision) string {
	switch d.Reason {
	case access.ReasonUnauthenticated:
		return "Not authenticated"
	case access.ReasonNotManaged:
		return "You do not manage this user"
	}
	return "You do not have permission to perform this action"
}

func respondDenied(c *gin.Context, d access.Decision) {
	c.JSON(deniedStatus(d), ErrorResponse{Error: deniedMessage(d)})
}

func respondValidation(c *gin.Context, errs lifecycle.ValidationErrors) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: errs})
}
