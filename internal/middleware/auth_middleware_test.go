package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/models"
	"github.com/skyleg/emptyleg-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-access-secret-key-123456789"

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(testSecret, "emptyleg-staff", time.Hour)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func adminToken(t *testing.T, service *jwt.Service) string {
	token, err := service.GenerateAccessToken(jwt.StaffIdentity{StaffID: uuid.New(), Name: "Desk", Roles: []string{jwt.RoleAdmin}})
	require.NoError(t, err)
	return token
}

func operatorToken(t *testing.T, service *jwt.Service, operatorID uuid.UUID) string {
	token, err := service.GenerateAccessToken(jwt.StaffIdentity{StaffID: uuid.New(), Roles: []string{jwt.RoleOperator}, OperatorID: &operatorID})
	require.NoError(t, err)
	return token
}

func serve(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	router.GET("/protected", AuthMiddleware(jwtService, testLogger()), func(c *gin.Context) {
		staff, exists := GetStaffContext(c)
		require.True(t, exists)
		c.JSON(http.StatusOK, gin.H{"message": "success", "name": staff.Name})
	})

	w := serve(router, "/protected", "Bearer "+adminToken(t, jwtService))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
	assert.Contains(t, w.Body.String(), "Desk")
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	router := setupTestRouter()
	router.GET("/protected", AuthMiddleware(setupTestJWTService(), testLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	w := serve(router, "/protected", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	router := setupTestRouter()
	router.GET("/protected", AuthMiddleware(setupTestJWTService(), testLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	tests := []struct {
		name   string
		header string
	}{
		{"Missing Bearer", "some-token"},
		{"Wrong prefix", "Basic some-token"},
		{"Empty Bearer", "Bearer    "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, "/protected", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
		})
	}
}

func TestAuthMiddleware_InvalidAndExpiredTokens(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()
	router.GET("/protected", AuthMiddleware(jwtService, testLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	t.Run("Malformed token", func(t *testing.T) {
		w := serve(router, "/protected", "Bearer invalid.token.here")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("Wrong secret", func(t *testing.T) {
		other := jwt.NewService("wrong-secret-key", "emptyleg-staff", time.Hour)
		w := serve(router, "/protected", "Bearer "+adminToken(t, other))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("Expired", func(t *testing.T) {
		expired := jwt.NewService(testSecret, "emptyleg-staff", -time.Minute)
		w := serve(router, "/protected", "Bearer "+adminToken(t, expired))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "success"}) }

	router.GET("/admin", AuthMiddleware(jwtService, testLogger()), RequireRole(jwt.RoleAdmin), ok)
	router.GET("/staff", AuthMiddleware(jwtService, testLogger()), RequireRole(jwt.RoleAdmin, jwt.RoleOperator), ok)
	router.GET("/no-auth", RequireRole(jwt.RoleAdmin), ok)

	opToken := operatorToken(t, jwtService, uuid.New())

	t.Run("Admin allowed", func(t *testing.T) {
		w := serve(router, "/admin", "Bearer "+adminToken(t, jwtService))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Operator refused on admin route", func(t *testing.T) {
		w := serve(router, "/admin", "Bearer "+opToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
	})

	t.Run("Any of several roles", func(t *testing.T) {
		w := serve(router, "/staff", "Bearer "+opToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("No staff context", func(t *testing.T) {
		w := serve(router, "/no-auth", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_STAFF_CONTEXT")
	})
}

func TestGetStaffContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Context exists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expected := StaffContext{StaffID: uuid.New(), Roles: []string{jwt.RoleAdmin}}
		c.Set(StaffContextKey, expected)

		staff, exists := GetStaffContext(c)
		assert.True(t, exists)
		assert.Equal(t, expected, staff)
	})

	t.Run("Context wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(StaffContextKey, "wrong type")
		staff, exists := GetStaffContext(c)
		assert.False(t, exists)
		assert.Equal(t, StaffContext{}, staff)
	})
}

func TestActorFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newCtx := func() *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/", nil)
		c.Request.Header.Set("User-Agent", "test-agent")
		c.Request.Header.Set("X-Real-IP", "203.0.113.5")
		return c
	}

	t.Run("Anonymous request is the client", func(t *testing.T) {
		actor := ActorFromContext(newCtx())
		assert.Equal(t, models.ActorRoleClient, actor.Role)
		assert.Nil(t, actor.ID)
		assert.Equal(t, "203.0.113.5", actor.IPAddress)
		assert.Equal(t, "test-agent", actor.UserAgent)
	})

	t.Run("Admin", func(t *testing.T) {
		c := newCtx()
		staffID := uuid.New()
		c.Set(StaffContextKey, StaffContext{StaffID: staffID, Roles: []string{jwt.RoleAdmin}})

		actor := ActorFromContext(c)
		assert.Equal(t, models.ActorRoleAdmin, actor.Role)
		require.NotNil(t, actor.ID)
		assert.Equal(t, staffID, *actor.ID)
		assert.Nil(t, actor.OperatorID)
	})

	t.Run("Operator carries operator id", func(t *testing.T) {
		c := newCtx()
		operatorID := uuid.New()
		c.Set(StaffContextKey, StaffContext{StaffID: uuid.New(), Roles: []string{jwt.RoleOperator}, OperatorID: &operatorID})

		actor := ActorFromContext(c)
		assert.Equal(t, models.ActorRoleOperator, actor.Role)
		require.NotNil(t, actor.OperatorID)
		assert.Equal(t, operatorID, *actor.OperatorID)
	})
}

type fakeOperatorChecker struct {
	active bool
	err    error
}

func (f fakeOperatorChecker) IsActiveOperator(ctx context.Context, operatorID uuid.UUID) (bool, error) {
	return f.active, f.err
}

func TestRequireActiveOperator(t *testing.T) {
	jwtService := setupTestJWTService()
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "success"}) }

	build := func(checker OperatorChecker) *gin.Engine {
		router := setupTestRouter()
		router.GET("/op", AuthMiddleware(jwtService, testLogger()), RequireActiveOperator(checker, testLogger()), ok)
		return router
	}

	t.Run("Active operator", func(t *testing.T) {
		w := serve(build(fakeOperatorChecker{active: true}), "/op", "Bearer "+operatorToken(t, jwtService, uuid.New()))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Inactive operator", func(t *testing.T) {
		w := serve(build(fakeOperatorChecker{active: false}), "/op", "Bearer "+operatorToken(t, jwtService, uuid.New()))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "OPERATOR_INACTIVE")
	})

	t.Run("Token without operator id", func(t *testing.T) {
		w := serve(build(fakeOperatorChecker{active: true}), "/op", "Bearer "+adminToken(t, jwtService))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "OPERATOR_REQUIRED")
	})

	t.Run("Lookup failure", func(t *testing.T) {
		w := serve(build(fakeOperatorChecker{err: errors.New("db down")}), "/op", "Bearer "+operatorToken(t, jwtService, uuid.New()))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
