package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/auth"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/adriaticbluegrowth/portal/internal/services"
	pkghttp "github.com/adriaticbluegrowth/portal/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, login, password, ipAddress, userAgent string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// RecoveryServiceInterface defines the password reset flow
type RecoveryServiceInterface interface {
	RequestReset(ctx context.Context, email string) error
	CompleteReset(ctx context.Context, token, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	recovery RecoveryServiceInterface
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
}

func NewAuthHandler(service AuthServiceInterface, recovery RecoveryServiceInterface, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		recovery: recovery,
		cookies:  cookies,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest accepts a username or an email address in Username.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,excludes=@"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Response DTOs

// UserResponse is the public view of an account. Password and reset state
// are never serialized.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type LoginResponse struct {
	User      *UserResponse `json:"user"`
	ExpiresAt string        `json:"expires_at"`
}

type SessionResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrWeakPassword):
			writeWeakPassword(w)
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username or email already in use")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration details")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles user login and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.service.Login(r.Context(), req.Username, req.Password, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid username or password")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, result.Token, h.cookies)

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		User:      toUserResponse(result.User),
		ExpiresAt: result.Claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout revokes the current session and clears the cookie. Always 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		_ = h.service.Logout(r.Context(), token)
	}

	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteMessage(w, "Logged out")
}

// Me returns the caller's session claims
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	resp := SessionResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role.String(),
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ForgotPassword starts a password reset. The response never reveals
// whether the email belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	if err := h.recovery.RequestReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Email is required")
			return
		}
	}

	pkghttp.WriteMessage(w, forgotPasswordMessage)
}

// ResetPassword completes a password reset with a mailed token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Token and password are required")
		return
	}

	err := h.recovery.CompleteReset(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrWeakPassword):
			writeWeakPassword(w)
		case errors.Is(err, models.ErrResetTokenExpired):
			pkghttp.WriteError(w, http.StatusBadRequest, "token_expired", "This reset link has expired. Please request a new one.")
		case errors.Is(err, models.ErrInvalidResetToken):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_token", "This reset link is invalid or has already been used.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteMessage(w, "Password has been reset. You can now log in.")
}

func writeWeakPassword(w http.ResponseWriter) {
	pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", "Password must be at least 6 characters and at most 72 bytes")
}
