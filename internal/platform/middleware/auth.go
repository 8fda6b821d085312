package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "attestor/pkg/domain"
	"attestor/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns the caller identity it
// attests. Implemented by internal/jwt_token.
type TokenValidator interface {
	ValidateToken(token string) (id.Identity, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// verified caller identity into the context. Handlers read it back and pass
// it to services explicitly.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			caller, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				unauthorized(w, "invalid token")
				return
			}
			ctx := requestcontext.WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller retrieves the authenticated caller identity set by RequireAuth.
func GetCaller(ctx context.Context) id.Identity {
	return requestcontext.Caller(ctx)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
