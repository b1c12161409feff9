package authz

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/edumetrics/edumetrics/internal/shared"
)

type staticDirectory struct{}

func (staticDirectory) FindTarget(ctx context.Context, id int64) (*TargetUser, error) {
	return nil, shared.ErrNotFound
}

func testRouter(t *testing.T, p *Principal, ownerID int64) http.Handler {
	t.Helper()
	catalog := NewCatalog()
	catalog.Register("evaluation", func(ctx context.Context, id int64) (*Resource, error) {
		if id == 404 {
			return nil, shared.ErrNotFound
		}
		school := int64(1)
		return &Resource{ID: id, OwnerID: ownerID, SchoolID: &school}, nil
	})
	gate := NewGate(staticDirectory{}, catalog)
	mw := Middleware{Gate: gate, Logger: slog.Default()}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequirePermission(PermEvaluationsUpdate))
		r.With(mw.RequireOwnership("evaluation")).Put("/evaluations/{id}", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestMiddlewareUnauthenticated(t *testing.T) {
	h := testRouter(t, nil, 7)
	rec := do(t, h, http.MethodPut, "/evaluations/1")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareMissingPermission(t *testing.T) {
	school := int64(1)
	p := &Principal{ID: 9, Active: true, Role: RoleStudent, SchoolID: &school}
	rec := do(t, testRouter(t, p, 7), http.MethodPut, "/evaluations/1")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareOwnerAllowed(t *testing.T) {
	school := int64(1)
	p := &Principal{ID: 7, Active: true, Role: RoleTeacher, SchoolID: &school}
	rec := do(t, testRouter(t, p, 7), http.MethodPut, "/evaluations/1")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareNonOwnerForbidden(t *testing.T) {
	school := int64(1)
	p := &Principal{ID: 8, Active: true, Role: RoleTeacher, SchoolID: &school}
	rec := do(t, testRouter(t, p, 7), http.MethodPut, "/evaluations/1")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareAdminBypassesOwnership(t *testing.T) {
	school := int64(1)
	p := &Principal{ID: 8, Active: true, Role: RoleAdmin, SchoolID: &school}
	rec := do(t, testRouter(t, p, 7), http.MethodPut, "/evaluations/1")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareMissingResourceIsNotFound(t *testing.T) {
	school := int64(1)
	p := &Principal{ID: 7, Active: true, Role: RoleTeacher, SchoolID: &school}
	rec := do(t, testRouter(t, p, 7), http.MethodPut, "/evaluations/404")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareRejectsNonNumericID(t *testing.T) {
	school := int64(1)
	p := &Principal{ID: 7, Active: true, Role: RoleTeacher, SchoolID: &school}
	rec := do(t, testRouter(t, p, 7), http.MethodPut, "/evaluations/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
