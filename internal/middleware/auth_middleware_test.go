package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/pkg/redis"
	"github.com/ikkim/staycert-backend/pkg/util"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	middleware := NewAuthMiddleware(testJWTSecret)
	return router, middleware
}

func generateTestToken(t *testing.T, userID uint, email string, role model.UserRole) string {
	tokens, err := util.GenerateTokenPair(
		userID,
		email,
		string(role),
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)
	return tokens.AccessToken
}

func actorHandler(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		c.Status(http.StatusTeapot)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": actor.UserID,
		"role":    actor.Role,
	})
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), actorHandler)

	token := generateTestToken(t, 7, "host@example.com", model.RoleHost)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role":"host"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_Authenticate_QueryToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/ws", authMiddleware.Authenticate(), actorHandler)

	token := generateTestToken(t, 3, "reviewer@example.com", model.RoleReviewer)

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reviewer"`)
}

func TestAuthMiddleware_Authenticate_NoToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), actorHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header is required")
	assert.Contains(t, w.Body.String(), "AUTH_UNAUTHORIZED")
}

func TestAuthMiddleware_Authenticate_InvalidFormat(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), actorHandler)

	tests := []struct {
		name   string
		header string
	}{
		{name: "Missing Bearer prefix", header: "invalid-token"},
		{name: "Wrong prefix", header: "Basic token123"},
		{name: "Empty token", header: "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID")
		})
	}
}

func TestAuthMiddleware_Authenticate_InvalidToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), actorHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestAuthMiddleware_Authenticate_ExpiredToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), actorHandler)

	tokens, err := util.GenerateTokenPair(1, "host@example.com", "host", testJWTSecret, -time.Minute, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_EXPIRED")
}

func TestAuthMiddleware_Authenticate_BlacklistedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	defer redis.SetClient(nil)

	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), actorHandler)

	token := generateTestToken(t, 1, "host@example.com", model.RoleHost)
	require.NoError(t, redis.BlacklistToken(context.Background(), token, time.Minute))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token has been revoked")
}

func TestAuthMiddleware_OptionalAuthenticate(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/verify", authMiddleware.OptionalAuthenticate(), actorHandler)

	req := httptest.NewRequest("GET", "/verify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code, "guest continues without an actor")

	req = httptest.NewRequest("GET", "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 5, "a@example.com", model.RoleAdmin))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/review",
		authMiddleware.Authenticate(),
		authMiddleware.RequireRole(model.RoleReviewer, model.RoleAdmin),
		actorHandler,
	)

	tests := []struct {
		name           string
		role           model.UserRole
		expectedStatus int
	}{
		{name: "Admin role", role: model.RoleAdmin, expectedStatus: http.StatusOK},
		{name: "Reviewer role", role: model.RoleReviewer, expectedStatus: http.StatusOK},
		{name: "Host role", role: model.RoleHost, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/review", nil)
			req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 1, "test@example.com", tt.role))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "Insufficient permissions")
			}
		})
	}
}

func TestContextGetters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, exists := GetUserID(c)
	assert.False(t, exists)
	_, exists = GetActor(c)
	assert.False(t, exists)

	c.Set(UserIDKey, uint(123))
	c.Set(UserEmailKey, "test@example.com")
	c.Set(UserRoleKey, model.RoleReviewer)

	email, exists := GetUserEmail(c)
	assert.True(t, exists)
	assert.Equal(t, "test@example.com", email)

	actor, exists := GetActor(c)
	assert.True(t, exists)
	assert.Equal(t, model.Actor{UserID: 123, Role: model.RoleReviewer}, actor)
	assert.True(t, actor.IsReviewer())
}
