package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"onboard-gateway/internal/platform/middleware"
	"onboard-gateway/internal/transport/http/shared"
	dErrors "onboard-gateway/pkg/domain-errors"
)

// TokenValidator validates a session token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type contextKeyOperator struct{}

// Operator retrieves the authenticated operator username from the context.
func Operator(ctx context.Context) string {
	username, ok := ctx.Value(contextKeyOperator{}).(string)
	if !ok {
		return ""
	}
	return username
}

// RequireSession guards admin routes with a bearer session token.
func RequireSession(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "admin request without session token",
					"request_id", middleware.GetRequestID(ctx), "remote", middleware.ClientIP(r))
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "admin request with invalid session token",
					"request_id", middleware.GetRequestID(ctx), "error", err)
				shared.WriteError(w, err)
				return
			}

			ctx = context.WithValue(ctx, contextKeyOperator{}, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
