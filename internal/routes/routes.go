package routes

import (
	"github.com/adriaticbluegrowth/portal/internal/auth"
	"github.com/adriaticbluegrowth/portal/internal/handlers"
	"github.com/adriaticbluegrowth/portal/internal/middleware"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	authorizer *auth.Authorizer,
	rateLimitConfig middleware.RateLimitConfig,
) {
	limited := middleware.RateLimitByIP(rateLimitConfig)

	// Public routes - no authentication required
	router.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/register", authHandler.Register)
		r.With(limited).Post("/login", authHandler.Login)
		r.With(limited).Post("/forgot-password", authHandler.ForgotPassword)
		r.With(limited).Post("/reset-password", authHandler.ResetPassword)

		// Logout succeeds with or without a live session
		r.Post("/logout", authHandler.Logout)

		r.With(authorizer.RequireAuth).Get("/me", authHandler.Me)
	})

	// Any authenticated user
	router.Group(func(r chi.Router) {
		r.Use(authorizer.RequireAuth)
		r.Put("/profile/password", authHandler.ChangePassword)
	})

	// Admin-only routes
	router.Route("/admin", func(r chi.Router) {
		r.Use(authorizer.RequireRole(models.RoleAdmin))

		r.Get("/users", adminHandler.ListUsers)
		r.Get("/users/{id}", adminHandler.GetUser)
		r.Put("/users/{id}/role", adminHandler.SetRole)
		r.Post("/users/{id}/set-password", adminHandler.SetPassword)
		r.Delete("/users/{id}", adminHandler.DeleteUser)
	})
}
