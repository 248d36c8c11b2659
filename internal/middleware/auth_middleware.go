package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskpanel/internal/access"
	"taskpanel/internal/auth"
	"taskpanel/internal/model"
)

const (
	UserIDKey    = "userID"
	ClaimsKey    = "claims"
	PrincipalKey = "principal"

	SessionCookie = "session"
)

// UserLookup resolves the user behind a token. The role and assigned admin
// are read fresh on every request because they can change at any time.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// JWTAuthMiddleware validates the bearer token and stores the user id and
// claims in the context.
func JWTAuthMiddleware(issuer *auth.Issuer, denylist auth.Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, userID, status, msg := verifyToken(c.Request.Context(), issuer, denylist, parts[1])
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// PrincipalMiddleware loads the user set by JWTAuthMiddleware and stores its
// principal. Missing or inactive users are rejected.
func PrincipalMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(UserIDKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID.(uuid.UUID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
			return
		}

		c.Set(PrincipalKey, access.PrincipalFromUser(user))
		c.Next()
	}
}

// PanelSession resolves the principal from the session cookie. Requests
// without a valid session continue as the anonymous principal so the access
// check decides what happens to them.
func PanelSession(issuer *auth.Issuer, denylist auth.Denylist, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, userID, status, _ := verifyToken(c.Request.Context(), issuer, denylist, token)
		if status != 0 {
			c.Next()
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if user != nil && user.IsActive {
			c.Set(UserIDKey, userID)
			c.Set(ClaimsKey, claims)
			c.Set(PrincipalKey, access.PrincipalFromUser(user))
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by the auth middlewares, or the
// anonymous principal.
func PrincipalFrom(c *gin.Context) access.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(access.Principal); ok {
			return p
		}
	}
	return access.Anonymous
}

func ClaimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func verifyToken(ctx context.Context, issuer *auth.Issuer, denylist auth.Denylist, token string) (*auth.Claims, uuid.UUID, int, string) {
	claims, err := issuer.ParseToken(token)
	if err != nil {
		return nil, uuid.Nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	if denylist != nil && claims.ID != "" {
		revoked, err := denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, uuid.Nil, http.StatusServiceUnavailable, "Token check unavailable"
		}
		if revoked {
			return nil, uuid.Nil, http.StatusUnauthorized, "Token has been revoked"
		}
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, uuid.Nil, http.StatusUnauthorized, "Invalid user ID in token"
	}
	return claims, userID, 0, ""
}
