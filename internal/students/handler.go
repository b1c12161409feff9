package students

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/courses"
	"github.com/edumetrics/edumetrics/internal/platform/httpx"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// Handler exposes student endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	courses   courses.Repository
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, courseRepo courses.Repository, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, courses: courseRepo, authz: mw, validator: validator.New()}
}

// MountRoutes registers student routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermStudentsRead))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermStudentsCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermStudentsUpdate))
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermStudentsDelete))
		r.Delete("/{id}", h.Delete)
	})
}

// List returns students scoped to the principal's school, optionally filtered
// by an accent-insensitive name or RUT search via the q parameter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)

	var schoolID *int64
	if !p.Role.Global() {
		if p.SchoolID == nil {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"students":   []Student{},
				"pagination": shared.NewPagination(page, perPage, 0),
			})
			return
		}
		schoolID = p.SchoolID
	}
	var courseID *int64
	if v := r.URL.Query().Get("course_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			courseID = &id
		}
	}

	all, err := h.repo.ListBySchool(r.Context(), schoolID, courseID)
	if err != nil {
		h.logger.Error("list students", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	query := Fold(strings.TrimSpace(r.URL.Query().Get("q")))
	filtered := all[:0:0]
	for _, s := range all {
		if matches(s, query) {
			filtered = append(filtered, s)
		}
	}

	pg := shared.NewPagination(page, perPage, len(filtered))
	start := pg.Offset()
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pg.PerPage
	if end > len(filtered) {
		end = len(filtered)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"students":   filtered[start:end],
		"pagination": pg,
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	student, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &student.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	course, err := h.courses.Get(r.Context(), req.CourseID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &course.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	id, err := h.repo.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create student", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	student, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
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
	var req UpdateStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.CourseID != nil {
		course, err := h.courses.Get(r.Context(), *req.CourseID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if d := h.authz.Gate.AuthorizeInstitution(p, &course.SchoolID); !d.Allow {
			authz.RespondDecision(w, d)
			return
		}
	}
	if err := h.repo.Update(r.Context(), id, req); err != nil {
		h.logger.Error("update student", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	student, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
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
