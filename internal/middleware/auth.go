package middleware

import (
	"net/http"
	"strings"

	"vault-backend/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware validates vault JWTs and enforces role capabilities.
type AuthMiddleware struct {
	logger *logrus.Logger
}

func NewAuthMiddleware(logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{logger: logger}
}

// RequireAuth accepts any valid token and stores the principal and role in
// the request context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := a.authenticate(c)
		if !ok {
			return
		}
		c.Set("principal", claims.Principal)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole accepts only tokens carrying one of the given roles.
func (a *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := a.authenticate(c)
		if !ok {
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Set("principal", claims.Principal)
				c.Set("role", claims.Role)
				c.Next()
				return
			}
		}
		a.logger.WithFields(logrus.Fields{
			"path":      c.Request.URL.Path,
			"principal": claims.Principal,
			"role":      claims.Role,
		}).Warn("Capability check failed")
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "insufficient capability",
			"code":    "FORBIDDEN",
		})
		c.Abort()
	}
}

func (a *AuthMiddleware) authenticate(c *gin.Context) (*handlers.AuthClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		a.reject(c, "Missing Authorization header", "MISSING_AUTH_HEADER")
		return nil, false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		a.reject(c, "Authorization header must be in format: Bearer <token>", "INVALID_AUTH_FORMAT")
		return nil, false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		a.reject(c, "Token cannot be empty", "EMPTY_TOKEN")
		return nil, false
	}

	claims, err := handlers.ValidateJWTToken(tokenString)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"error":  err.Error(),
		}).Warn("JWT validation failed")
		a.reject(c, "Invalid or expired token", "INVALID_TOKEN")
		return nil, false
	}
	return claims, true
}

func (a *AuthMiddleware) reject(c *gin.Context, message, code string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
	c.Abort()
}

// Principal reads the authenticated principal from the request context.
func Principal(c *gin.Context) string {
	v, _ := c.Get("principal")
	principal, _ := v.(string)
	return principal
}

// Role reads the authenticated role from the request context.
func Role(c *gin.Context) string {
	v, _ := c.Get("role")
	role, _ := v.(string)
	return role
}
