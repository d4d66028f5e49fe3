// Package rbac checks the role carried by a verified bearer token.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/middleware"
	"github.com/shashiranjanraj/orderly/pkg/response"
)

// HasRole lets a request through only when its token claims one of roles.
// It must run after middleware.Auth(true); without claims it answers 401.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := middleware.ClaimsFrom(r.Context())
			if !ok {
				response.Unauthorized(w, r, "A bearer token is required.")
				return
			}
			if !allowed[claims.Role] {
				logger.WithCtx(r.Context()).Warn("rbac: role denied", "subject", claims.Subject, "role", claims.Role)
				response.Forbidden(w, r, "The token's role may not perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
