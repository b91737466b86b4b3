package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/adriaticbluegrowth/portal/internal/auth"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/adriaticbluegrowth/portal/internal/services"
	pkghttp "github.com/adriaticbluegrowth/portal/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserServiceInterface defines admin user management
type UserServiceInterface interface {
	List(ctx context.Context, limit, offset int) (*services.UserList, error)
	Get(ctx context.Context, id string) (*models.User, error)
	SetRole(ctx context.Context, actorID, id string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, actorID, id string) error
	AdminSetPassword(ctx context.Context, actorID, id, password string) error
}

// AdminHandler serves the /admin/users endpoints. Routes are mounted behind
// RequireRole(admin).
type AdminHandler struct {
	service UserServiceInterface
}

func NewAdminHandler(service UserServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin moderator editor user"`
}

type SetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type UserListResponse struct {
	Users  []*UserResponse `json:"users"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListUsers handles GET /admin/users?limit=N&offset=M
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list users")
		return
	}

	resp := UserListResponse{
		Users:  make([]*UserResponse, 0, len(page.Users)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, u := range page.Users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// GetUser handles GET /admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// SetRole handles PUT /admin/users/{id}/role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.SetRole(r.Context(), actorID(r), chi.URLParam(r, "id"), models.Role(req.Role))
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		writeAdminError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetPassword handles POST /admin/users/{id}/set-password
func (h *AdminHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Password is required")
		return
	}

	if err := h.service.AdminSetPassword(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Password); err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteMessage(w, "Password updated")
}

func actorID(r *http.Request) string {
	if claims := auth.GetSessionFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrWeakPassword):
		writeWeakPassword(w)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid user id or role")
	case errors.Is(err, models.ErrSelfModification):
		pkghttp.WriteBadRequest(w, "Admins cannot demote or delete their own account")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
