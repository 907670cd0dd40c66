package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/segara/lending-engine/pkg/response"
)

type ContextKey string

const ClaimsKey ContextKey = "authClaims"

// Middleware authenticates requests with a Bearer token and stores the
// claims in the request context.
func Middleware(jwtService *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := jwtService.Validate(token)
			if err != nil {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects requests whose token does not carry the admin flag.
// Must run after Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := FromContext(r.Context())
		if claims == nil || !claims.IsAdmin {
			response.Forbidden(w, "Forbidden. You do not have permission for this operation")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the claims stored by Middleware, or nil.
func FromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}
