package middleware

import (
	"net/http"
	"strings"

	"bookinventory/internal/auth"
	"bookinventory/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserID    = "userID"
	ctxUserRole  = "userRole"
	ctxUserEmail = "userEmail"
)

// RequireAuth validates the bearer access token and stores its claims on the context
func RequireAuth(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return RequireRole(issuer)
}

// RequireRole validates the bearer access token and checks that the user's role
// is in allowedRoles. An empty allowedRoles accepts any authenticated user.
func RequireRole(issuer *auth.TokenIssuer, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(c, http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(c, http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return
		}

		claims, err := issuer.Parse(parts[1], auth.TokenTypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(c, http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		if len(allowedRoles) > 0 && !roleAllowed(claims.Role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(c, http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxUserRole, claims.Role)
		c.Set(ctxUserEmail, claims.Email)

		c.Next()
	}
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// CurrentUserID returns the authenticated user's id, nil for anonymous requests
func CurrentUserID(c *gin.Context) *uuid.UUID {
	id, err := uuid.Parse(c.GetString(ctxUserID))
	if err != nil {
		return nil
	}
	return &id
}

// CurrentUserRole returns the role claim of the authenticated user
func CurrentUserRole(c *gin.Context) string {
	return c.GetString(ctxUserRole)
}
