package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OperatorChecker is satisfied by database.RecipientRepository
type OperatorChecker interface {
	IsActiveOperator(ctx context.Context, operatorID uuid.UUID) (bool, error)
}

// RequireActiveOperator checks that an operator token belongs to an active operator account.
// Must be used after AuthMiddleware.
func RequireActiveOperator(operators OperatorChecker, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, exists := GetStaffContext(c)
		if !exists {
			abortUnauthorized(c, "unauthorized", "Staff context not found", "MISSING_STAFF_CONTEXT")
			return
		}

		if staff.OperatorID == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "not_operator",
				"message": "Token is not bound to an operator account",
				"code":    "OPERATOR_REQUIRED",
			})
			return
		}

		active, err := operators.IsActiveOperator(c.Request.Context(), *staff.OperatorID)
		if err != nil {
			logger.WithError(err).WithField("operator_id", staff.OperatorID.String()).Error("Failed to verify operator account")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to verify operator account",
			})
			return
		}

		if !active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "operator_inactive",
				"message": "Operator account not found or inactive",
				"code":    "OPERATOR_INACTIVE",
			})
			return
		}

		c.Set("operator_id", *staff.OperatorID)
		c.Next()
	}
}
