//go:build unit

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutor-booking/internal/domain/user"
	"tutor-booking/internal/handler/middleware"
	"tutor-booking/internal/pkg/jwt"
	"tutor-booking/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(svc *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := middleware.NewAuthMiddleware(usecase.NewTokenValidator(svc))
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, _ := middleware.GetUserID(c)
		role, _ := middleware.GetUserRole(c)
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "role": role.String()})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	svc := jwt.NewService("unit-secret", time.Hour)
	router := newAuthRouter(svc)
	userID := uuid.New()
	token, err := svc.GenerateAccessToken(userID, user.RoleTutor)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
	}{
		{name: "bearer header", path: "/me", header: "Bearer " + token, wantCode: http.StatusOK},
		{name: "query token for websocket clients", path: "/me?token=" + token, wantCode: http.StatusOK},
		{name: "missing token", path: "/me", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/me", header: "Basic " + token, wantCode: http.StatusUnauthorized},
		{name: "garbage token", path: "/me", header: "Bearer nope", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, w.Body.String(), userID.String())
				assert.Contains(t, w.Body.String(), `"role":"tutor"`)
			} else {
				assert.Contains(t, w.Body.String(), `"kind":"unauthorized"`)
			}
		})
	}
}
