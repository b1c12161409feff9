package grades

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/platform/httpx"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// Handler exposes grade and answer endpoints.
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

// MountRoutes registers grade routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermGradesRead))
		r.Get("/", h.ListGrades)
		r.Get("/{id}", h.ShowGrade)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermGradesUpdate))
		r.With(h.authz.RequireOwnership("grade")).Put("/{id}", h.UpdateGrade)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermGradesDelete))
		r.With(h.authz.RequireOwnership("grade")).Delete("/{id}", h.DeleteGrade)
	})
}

// MountAnswerRoutes registers answer routes.
func (h *Handler) MountAnswerRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermAnswersRead))
		r.Get("/", h.ListAnswers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermAnswersCreate))
		r.Post("/", h.SubmitAnswer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermAnswersUpdate))
		r.With(h.authz.RequireOwnership("answer")).Put("/{id}", h.UpdateAnswer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermAnswersDelete))
		r.With(h.authz.RequireOwnership("answer")).Delete("/{id}", h.DeleteAnswer)
	})
}

// ListGrades returns grades scoped to the principal's school. Students see
// only their own grades regardless of filters.
func (h *Handler) ListGrades(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())

	var schoolID, applicationID, studentID *int64
	if !p.Role.Global() {
		if p.SchoolID == nil {
			httpx.JSON(w, http.StatusOK, []Grade{})
			return
		}
		schoolID = p.SchoolID
	}
	if v := r.URL.Query().Get("application_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			applicationID = &id
		}
	}
	if p.Role == authz.RoleStudent {
		sid, err := h.repo.StudentIDForUser(r.Context(), p.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.JSON(w, http.StatusOK, []Grade{})
				return
			}
			httpx.RespondError(w, err)
			return
		}
		studentID = &sid
	} else if v := r.URL.Query().Get("student_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			studentID = &id
		}
	}

	list, err := h.repo.ListGrades(r.Context(), schoolID, applicationID, studentID)
	if err != nil {
		h.logger.Error("list grades", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) ShowGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	d, err := h.authz.Gate.AuthorizeOwnership(r.Context(), p, "grade", id)
	if err != nil {
		h.logger.Error("grade ownership", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	grade, err := h.repo.GetGrade(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grade)
}

func (h *Handler) UpdateGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req UpdateGradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil || req.Score == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "score must be between 1.0 and 7.0")
		return
	}
	if err := h.repo.UpdateGradeScore(r.Context(), id, *req.Score); err != nil {
		httpx.RespondError(w, err)
		return
	}
	grade, err := h.repo.GetGrade(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grade)
}

func (h *Handler) DeleteGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteGrade(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAnswers returns the answer sheet for an application. Students only
// ever see their own answers.
func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	appID, err := strconv.ParseInt(r.URL.Query().Get("application_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "application_id is required")
		return
	}
	p := authz.PrincipalFromContext(r.Context())

	_, schoolID, err := h.repo.ApplicationState(r.Context(), appID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if d := h.authz.Gate.AuthorizeInstitution(p, &schoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}

	var studentID *int64
	if p.Role == authz.RoleStudent {
		sid, err := h.repo.StudentIDForUser(r.Context(), p.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.JSON(w, http.StatusOK, []Answer{})
				return
			}
			httpx.RespondError(w, err)
			return
		}
		studentID = &sid
	}

	list, err := h.repo.ListAnswers(r.Context(), appID, studentID)
	if err != nil {
		h.logger.Error("list answers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

// SubmitAnswer records a student's pick for one question. Students always
// submit for themselves; administrative roles may pass student_id to load
// an answer sheet on a pupil's behalf. Submissions against a closed
// application are rejected.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p := authz.PrincipalFromContext(r.Context())
	var studentID int64
	if p.Role == authz.RoleStudent {
		sid, err := h.repo.StudentIDForUser(r.Context(), p.ID)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		studentID = sid
	} else {
		if req.StudentID == nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "student_id is required")
			return
		}
		studentID = *req.StudentID
	}

	open, schoolID, err := h.repo.ApplicationState(r.Context(), req.ApplicationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if d := h.authz.Gate.AuthorizeInstitution(p, &schoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	if !open {
		httpx.Problem(w, http.StatusConflict, "Application Closed", "answers can no longer be submitted")
		return
	}

	answer, err := h.repo.SubmitAnswer(r.Context(), req.ApplicationID, studentID, req.QuestionID, req.OptionID)
	if err != nil {
		h.logger.Error("submit answer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, answer)
}

func (h *Handler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req UpdateAnswerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	answer, err := h.repo.GetAnswer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	open, _, err := h.repo.ApplicationState(r.Context(), answer.ApplicationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !open {
		httpx.Problem(w, http.StatusConflict, "Application Closed", "answers can no longer be changed")
		return
	}
	if err := h.repo.UpdateAnswerOption(r.Context(), id, req.OptionID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	answer, err = h.repo.GetAnswer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, answer)
}

func (h *Handler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteAnswer(r.Context(), id); err != nil {
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
