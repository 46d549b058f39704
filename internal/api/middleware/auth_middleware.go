package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/service"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
	UserRoleKey             = "userRole"
	UserEmailKey            = "userEmail"
)

type TokenValidator interface {
	ValidateToken(token string) (*service.Principal, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
	logger *logrus.Logger
}

func NewAuthMiddleware(tokens TokenValidator, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Authenticate requires a valid Bearer token and stores the caller in the gin context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		principal, err := m.tokens.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(UserIDKey, principal.UserID)
		c.Set(UserRoleKey, principal.Role)
		c.Set(UserEmailKey, principal.Email)
		c.Next()
	}
}

// AuthorizeRole lets the request through only for the listed roles.
func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(UserRoleKey)
		userRole, isRole := role.(domain.Role)
		if !ok || !isRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		for _, r := range requiredRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		m.logger.WithFields(logrus.Fields{
			"user_id": c.GetInt(UserIDKey),
			"role":    userRole,
			"path":    c.FullPath(),
		}).Warn("role not allowed")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) int {
	return c.GetInt(UserIDKey)
}
