package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/adriaticbluegrowth/portal/internal/models"
	pkghttp "github.com/adriaticbluegrowth/portal/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// SessionContextKey is the key for storing session claims in context.
const SessionContextKey contextKey = "session"

// RevocationChecker reports whether a session id has been revoked.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // If true, deny access if revocation check fails; if false, allow access (fail open)
}

// Authorizer resolves the caller's session and enforces role guards.
type Authorizer struct {
	codec       *TokenCodec
	revocations RevocationChecker
	config      RevocationConfig
	logger      *slog.Logger
}

// NewAuthorizer builds an Authorizer. revocations may be nil.
func NewAuthorizer(codec *TokenCodec, revocations RevocationChecker, config RevocationConfig, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		codec:       codec,
		revocations: revocations,
		config:      config,
		logger:      logger,
	}
}

// Session resolves the caller from the request carrier. It returns
// models.ErrUnauthorized for a missing, invalid or revoked token and
// models.ErrServiceUnavailable when the revocation store is down and the
// authorizer fails closed.
func (a *Authorizer) Session(r *http.Request) (*models.SessionClaims, error) {
	if claims := GetSessionFromContext(r.Context()); claims != nil {
		return claims, nil
	}

	claims, err := a.codec.Verify(TokenFromRequest(r))
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	if a.revocations == nil {
		return claims, nil
	}

	revoked, err := a.revocations.IsTokenRevoked(r.Context(), claims.ID)
	if err != nil {
		a.logger.Warn("revocation check failed",
			slog.String("user_id", claims.UserID),
			slog.Bool("fail_closed", a.config.FailClosed),
			slog.String("error", err.Error()),
		)
		if a.config.FailClosed {
			return nil, models.ErrServiceUnavailable
		}
		return claims, nil
	}
	if revoked {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// Middleware attaches the session to the request context when one is
// present. It never rejects a request.
func (a *Authorizer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Session(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
	})
}

// RequireAuth rejects requests without a valid session with 401.
func (a *Authorizer) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
	})
}

// RequireRole rejects requests without a session (401) or whose role ranks
// below role (403).
func (a *Authorizer) RequireRole(role models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := a.authenticate(w, r)
			if !ok {
				return
			}

			if !HasRole(claims.Role, role) {
				pkghttp.WriteForbidden(w, "Forbidden")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}

func (a *Authorizer) authenticate(w http.ResponseWriter, r *http.Request) (*models.SessionClaims, bool) {
	claims, err := a.Session(r)
	if err != nil {
		if errors.Is(err, models.ErrServiceUnavailable) {
			pkghttp.WriteServiceUnavailable(w, "Unable to verify session")
			return nil, false
		}
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return nil, false
	}
	return claims, true
}

// WithSession returns a copy of ctx carrying claims.
func WithSession(ctx context.Context, claims *models.SessionClaims) context.Context {
	return context.WithValue(ctx, SessionContextKey, claims)
}

// GetSessionFromContext extracts session claims from ctx, or nil.
func GetSessionFromContext(ctx context.Context) *models.SessionClaims {
	claims, ok := ctx.Value(SessionContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
