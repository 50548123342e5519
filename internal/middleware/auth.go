// Package middleware provides HTTP middleware for the trading desk API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
)

// TokenVerifier validates a bearer token and resolves the live account, so a
// deactivated user is cut off even while their token is unexpired.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (user.User, error)
}

type actorKey struct{}

// AuthMiddleware authenticates requests with bearer tokens.
type AuthMiddleware struct {
	verifier  TokenVerifier
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates an authentication middleware. Requests to
// skipPaths pass through unauthenticated.
func NewAuthMiddleware(verifier TokenVerifier, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{
		verifier:  verifier,
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondError(w, r, errors.Unauthorized("invalid Authorization header format"))
			return
		}

		actor, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			m.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		ctx = context.WithValue(ctx, logging.UserIDKey, strconv.FormatInt(actor.ID, 10))
		ctx = context.WithValue(ctx, logging.RoleKey, string(actor.Role))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondError sends an error envelope without going through the handler
// stack.
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(serviceErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    serviceErr.Code,
			"message": serviceErr.Message,
		},
	})

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]any{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("authentication failed")
}

// ActorFromContext returns the authenticated account set by the auth
// middleware.
func ActorFromContext(ctx context.Context) (user.User, bool) {
	actor, ok := ctx.Value(actorKey{}).(user.User)
	return actor, ok
}

// WithActor stores an authenticated account in the context, primarily for
// tests.
func WithActor(ctx context.Context, actor user.User) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// RequireRole gates a handler on a role predicate such as
// user.Role.CanManageUsers.
func RequireRole(check func(user.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeEnvelopeError(w, errors.Unauthorized("authentication required"))
				return
			}
			if !check(actor.Role) {
				writeEnvelopeError(w, errors.PermissionDenied("role "+string(actor.Role)+" is not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeEnvelopeError(w http.ResponseWriter, serviceErr *errors.ServiceError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(serviceErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    serviceErr.Code,
			"message": serviceErr.Message,
		},
	})
}
