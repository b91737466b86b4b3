package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/auth"
	"github.com/adriaticbluegrowth/portal/internal/handlers"
	"github.com/adriaticbluegrowth/portal/internal/middleware"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/adriaticbluegrowth/portal/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *auth.TokenCodec) {
	t.Helper()

	codec, err := auth.NewTokenCodec("routes-test-secret-0123456789abcdef", time.Hour)
	require.NoError(t, err)

	authorizer := auth.NewAuthorizer(codec, nil, auth.RevocationConfig{}, nil)
	authHandler := handlers.NewAuthHandler(
		&handlers.MockAuthService{
			LogoutFunc: func(ctx context.Context, token string) error { return nil },
		},
		&handlers.MockRecoveryService{},
		auth.CookieConfig{},
		nil,
	)
	adminHandler := handlers.NewAdminHandler(&handlers.MockUserService{
		ListFunc: func(ctx context.Context, limit, offset int) (*services.UserList, error) {
			return &services.UserList{Limit: limit, Offset: offset}, nil
		},
	})

	router := chi.NewRouter()
	RegisterRoutes(router, authHandler, adminHandler, authorizer, middleware.RateLimitConfig{RequestsPerMinute: 100})
	return router, codec
}

func TestRoutes_AccessControl(t *testing.T) {
	router, codec := newTestRouter(t)

	tokenFor := func(role models.Role) string {
		token, _, err := codec.Issue("6f1c2d3e-0000-4000-8000-000000000001", "someone", role)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		method string
		path   string
		role   models.Role
		want   int
	}{
		{"me without session", http.MethodGet, "/auth/me", "", http.StatusUnauthorized},
		{"me with session", http.MethodGet, "/auth/me", models.RoleUser, http.StatusOK},
		{"admin list without session", http.MethodGet, "/admin/users", "", http.StatusUnauthorized},
		{"admin list as moderator", http.MethodGet, "/admin/users", models.RoleModerator, http.StatusForbidden},
		{"admin list as admin", http.MethodGet, "/admin/users", models.RoleAdmin, http.StatusOK},
		{"password change without session", http.MethodPut, "/profile/password", "", http.StatusUnauthorized},
		{"logout without session", http.MethodPost, "/auth/logout", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tokenFor(tt.role)})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
