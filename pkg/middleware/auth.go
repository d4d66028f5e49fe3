package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/orderly/pkg/auth"
	"github.com/shashiranjanraj/orderly/pkg/logger"
	"github.com/shashiranjanraj/orderly/pkg/response"
)

type claimsKey struct{}

// ClaimsFrom returns the verified token claims stored by Auth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// Auth rejects requests without a valid bearer token. When required is
// false the returned middleware lets everything through, so routes can be
// declared once and protected by configuration.
func Auth(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				response.Unauthorized(w, r, "A bearer token is required.")
				return
			}

			claims, err := auth.ValidateToken(token)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("auth: token rejected", "error", err)
				response.Unauthorized(w, r, "The bearer token is invalid or expired.")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
