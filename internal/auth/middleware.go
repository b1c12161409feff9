package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/platform/httpx"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the validated token claims, nil when the
// request carried no token.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return c
}

// Middleware resolves a Bearer token into a principal and stores it in the
// request context. Requests without a token pass through unauthenticated;
// the gate denies them later. A malformed or revoked token is rejected
// outright so clients learn to discard it.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httpx.ProblemKind(w, http.StatusUnauthorized, string(authz.ReasonUnauthenticated), "authorization header must use the Bearer scheme")
				return
			}

			claims, err := service.issuer.Parse(raw)
			if err != nil {
				httpx.ProblemKind(w, http.StatusUnauthorized, string(authz.ReasonUnauthenticated), "invalid or expired token")
				return
			}
			principal, err := service.Resolve(r.Context(), claims)
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					httpx.ProblemKind(w, http.StatusUnauthorized, string(authz.ReasonUnauthenticated), "invalid or expired token")
					return
				}
				logger.Error("resolve principal", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}

			ctx := authz.ContextWithPrincipal(r.Context(), principal)
			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
