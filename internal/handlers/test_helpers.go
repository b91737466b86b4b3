package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/auth"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/adriaticbluegrowth/portal/internal/services"
	pkghttp "github.com/adriaticbluegrowth/portal/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext attaches session claims as the Authorizer would.
func WithSessionContext(req *http.Request, userID, username string, role models.Role) *http.Request {
	claims := &models.SessionClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "test-jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	return req.WithContext(auth.WithSession(req.Context(), claims))
}

// WithURLParam sets a chi route parameter on the request.
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, login, password, ipAddress, userAgent string) (*services.LoginResult, error)
	LogoutFunc         func(ctx context.Context, token string) error
	RegisterFunc       func(ctx context.Context, username, email, password string) (*models.User, error)
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
}

func (m *MockAuthService) Login(ctx context.Context, login, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, login, password, ipAddress, userAgent)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token)
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, username, email, password)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

// MockRecoveryService implements RecoveryServiceInterface for testing
type MockRecoveryService struct {
	RequestResetFunc  func(ctx context.Context, email string) error
	CompleteResetFunc func(ctx context.Context, token, newPassword string) error
}

func (m *MockRecoveryService) RequestReset(ctx context.Context, email string) error {
	if m.RequestResetFunc == nil {
		return nil
	}
	return m.RequestResetFunc(ctx, email)
}

func (m *MockRecoveryService) CompleteReset(ctx context.Context, token, newPassword string) error {
	if m.CompleteResetFunc == nil {
		return models.ErrInvalidResetToken
	}
	return m.CompleteResetFunc(ctx, token, newPassword)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	ListFunc             func(ctx context.Context, limit, offset int) (*services.UserList, error)
	GetFunc              func(ctx context.Context, id string) (*models.User, error)
	SetRoleFunc          func(ctx context.Context, actorID, id string, role models.Role) (*models.User, error)
	DeleteFunc           func(ctx context.Context, actorID, id string) error
	AdminSetPasswordFunc func(ctx context.Context, actorID, id, password string) error
}

func (m *MockUserService) List(ctx context.Context, limit, offset int) (*services.UserList, error) {
	if m.ListFunc == nil {
		return &services.UserList{Users: []*models.User{}}, nil
	}
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*models.User, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockUserService) SetRole(ctx context.Context, actorID, id string, role models.Role) (*models.User, error) {
	if m.SetRoleFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetRoleFunc(ctx, actorID, id, role)
}

func (m *MockUserService) Delete(ctx context.Context, actorID, id string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, actorID, id)
}

func (m *MockUserService) AdminSetPassword(ctx context.Context, actorID, id, password string) error {
	if m.AdminSetPasswordFunc == nil {
		return models.ErrNotFound
	}
	return m.AdminSetPasswordFunc(ctx, actorID, id, password)
}
