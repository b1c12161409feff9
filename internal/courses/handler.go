package courses

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/platform/httpx"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// Handler exposes course endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, authz: mw, validator: validator.New()}
}

// MountRoutes registers course routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCoursesRead))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCoursesCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCoursesUpdate))
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCoursesDelete))
		r.Delete("/{id}", h.Delete)
	})
}

// List returns courses scoped to the principal's school unless the
// principal's role spans every institution.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)

	var schoolID *int64
	if !p.Role.Global() {
		if p.SchoolID == nil {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"courses":    []Course{},
				"pagination": shared.NewPagination(page, perPage, 0),
			})
			return
		}
		schoolID = p.SchoolID
	} else if v := r.URL.Query().Get("school_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			schoolID = &id
		}
	}

	list, total, err := h.repo.List(r.Context(), schoolID, shared.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("list courses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"courses":    list,
		"pagination": shared.NewPagination(page, perPage, int(total)),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	course, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &course.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &req.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	course, err := h.repo.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create course", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	existing, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &existing.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	var req UpdateCourseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	course, err := h.repo.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update course", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	existing, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &existing.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "resource id must be numeric")
		return 0, false
	}
	return id, true
}
