package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/internal/utils"
	"github.com/skyleg/emptyleg-backend/pkg/jwt"
)

// StaffContextKey is the key used to store staff information in Gin context
const StaffContextKey = "staff"

// StaffContext represents the authenticated staff member
type StaffContext struct {
	StaffID    uuid.UUID  `json:"staff_id"`
	Name       string     `json:"name"`
	Roles      []string   `json:"roles"`
	OperatorID *uuid.UUID `json:"operator_id,omitempty"`
}

// HasRole reports whether the staff member carries role
func (s StaffContext) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, errCode, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errCode,
		"message": message,
		"code":    code,
	})
}

// AuthMiddleware validates staff bearer tokens
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithFields(fields).Warn("Auth failed: missing authorization header")
			abortUnauthorized(c, "unauthorized", "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			logger.WithFields(fields).Warn("Auth failed: invalid authorization format")
			abortUnauthorized(c, "unauthorized", "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if jwt.IsExpiredError(err) {
				logger.WithFields(fields).WithError(err).Warn("Auth failed: token expired")
				abortUnauthorized(c, "token_expired", "Access token has expired", "TOKEN_EXPIRED")
			} else {
				logger.WithFields(fields).WithError(err).Warn("Auth failed: invalid token")
				abortUnauthorized(c, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			}
			return
		}

		c.Set(StaffContextKey, StaffContext{
			StaffID:    claims.StaffID,
			Name:       claims.Name,
			Roles:      claims.Roles,
			OperatorID: claims.OperatorID,
		})
		c.Next()
	}
}

// RequireRole creates a middleware that checks if staff has any of the required roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, exists := GetStaffContext(c)
		if !exists {
			abortUnauthorized(c, "unauthorized", "Staff context not found. Auth middleware may not be applied.", "MISSING_STAFF_CONTEXT")
			return
		}

		for _, role := range roles {
			if staff.HasRole(role) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
	}
}

// GetStaffContext retrieves the staff context from Gin context
func GetStaffContext(c *gin.Context) (StaffContext, bool) {
	value, exists := c.Get(StaffContextKey)
	if !exists {
		return StaffContext{}, false
	}
	staff, ok := value.(StaffContext)
	return staff, ok
}

// ActorFromContext builds the actor recorded against a transition.
// Requests without staff context are attributed to the client.
func ActorFromContext(c *gin.Context) models.Actor {
	actor := models.Actor{
		Role:      models.ActorRoleClient,
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	staff, ok := GetStaffContext(c)
	if !ok {
		return actor
	}

	id := staff.StaffID
	actor.ID = &id
	if staff.HasRole(jwt.RoleAdmin) {
		actor.Role = models.ActorRoleAdmin
	} else if staff.HasRole(jwt.RoleOperator) {
		actor.Role = models.ActorRoleOperator
		actor.OperatorID = staff.OperatorID
	}
	return actor
}
