package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edumetrics/edumetrics/internal/platform/httpx"
)

// Middleware wires gate checks into chi routes.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequirePermission denies the request unless the principal holds perm.
func (m Middleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if d := m.Gate.Authorize(p, perm); !d.Allow {
				RespondDecision(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership denies the request unless the principal may manage the
// resource addressed by the {id} URL parameter. resourceType must have a
// lookup registered in the gate's catalog.
func (m Middleware) RequireOwnership(resourceType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "resource id must be numeric")
				return
			}
			p := PrincipalFromContext(r.Context())
			d, err := m.Gate.AuthorizeOwnership(r.Context(), p, resourceType, id)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("ownership check", slog.String("resource", resourceType), slog.Int64("id", id), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !d.Allow {
				RespondDecision(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RespondDecision writes the transport representation of a denial.
func RespondDecision(w http.ResponseWriter, d Decision) {
	status := http.StatusForbidden
	switch d.Reason {
	case ReasonUnauthenticated, ReasonInactiveAccount:
		status = http.StatusUnauthorized
	case ReasonNotFound:
		status = http.StatusNotFound
	}
	httpx.ProblemKind(w, status, string(d.Reason), d.Detail)
}
