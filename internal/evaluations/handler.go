package evaluations

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/platform/httpx"
	"github.com/edumetrics/edumetrics/internal/shared"
	"github.com/edumetrics/edumetrics/jobs"
)

// TaskEnqueuer submits background tasks. Satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handler exposes evaluation, question, option and application endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	authz     authz.Middleware
	tasks     TaskEnqueuer
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, mw authz.Middleware, tasks TaskEnqueuer) *Handler {
	return &Handler{logger: logger, repo: repo, authz: mw, tasks: tasks, validator: validator.New()}
}

// MountRoutes registers evaluation routes, including the nested question
// and application creation endpoints where the {id} parameter addresses
// the parent evaluation.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermEvaluationsRead))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermEvaluationsCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermEvaluationsUpdate))
		r.With(h.authz.RequireOwnership("evaluation")).Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermEvaluationsDelete))
		r.With(h.authz.RequireOwnership("evaluation")).Delete("/{id}", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermQuestionsRead))
		r.Get("/{id}/questions", h.ListQuestions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermQuestionsCreate))
		r.With(h.authz.RequireOwnership("evaluation")).Post("/{id}/questions", h.CreateQuestion)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermApplicationsCreate))
		r.With(h.authz.RequireOwnership("evaluation")).Post("/{id}/applications", h.CreateApplication)
	})
}

// MountQuestionRoutes registers routes addressed by question id.
func (h *Handler) MountQuestionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermQuestionsUpdate))
		r.With(h.authz.RequireOwnership("question")).Put("/{id}", h.UpdateQuestion)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermQuestionsDelete))
		r.With(h.authz.RequireOwnership("question")).Delete("/{id}", h.DeleteQuestion)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermOptionsRead))
		r.Get("/{id}/options", h.ListOptions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermOptionsCreate))
		r.With(h.authz.RequireOwnership("question")).Post("/{id}/options", h.CreateOption)
	})
}

// MountOptionRoutes registers routes addressed by option id.
func (h *Handler) MountOptionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermOptionsUpdate))
		r.With(h.authz.RequireOwnership("option")).Put("/{id}", h.UpdateOption)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermOptionsDelete))
		r.With(h.authz.RequireOwnership("option")).Delete("/{id}", h.DeleteOption)
	})
}

// MountApplicationRoutes registers routes addressed by application id.
func (h *Handler) MountApplicationRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermApplicationsRead))
		r.Get("/", h.ListApplications)
		r.Get("/{id}", h.ShowApplication)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermApplicationsUpdate))
		r.With(h.authz.RequireOwnership("application")).Post("/{id}/close", h.CloseApplication)
	})
}

// List returns evaluations in the principal's school. Teachers see only
// their own evaluations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)

	var schoolID, teacherID *int64
	if !p.Role.Global() {
		if p.SchoolID == nil {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"evaluations": []Evaluation{},
				"pagination":  shared.NewPagination(page, perPage, 0),
			})
			return
		}
		schoolID = p.SchoolID
	}
	if !p.Role.Administrative() {
		teacherID = &p.ID
	}

	list, total, err := h.repo.List(r.Context(), schoolID, teacherID, shared.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("list evaluations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"evaluations": list,
		"pagination":  shared.NewPagination(page, perPage, int(total)),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	eval, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &eval.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	httpx.JSON(w, http.StatusOK, eval)
}

// Create registers a new evaluation. Teachers always own what they create;
// administrative roles may assign another teacher through teacher_id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEvaluationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	teacherID := p.ID
	if req.TeacherID != nil && p.Role.Administrative() {
		teacherID = *req.TeacherID
	}

	schoolID, err := h.repo.SubjectSchool(r.Context(), req.SubjectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if d := h.authz.Gate.AuthorizeInstitution(p, &schoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}

	id, err := h.repo.Create(r.Context(), req, teacherID)
	if err != nil {
		h.logger.Error("create evaluation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	eval, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, eval)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req UpdateEvaluationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.repo.Update(r.Context(), id, req); err != nil {
		h.logger.Error("update evaluation", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	eval, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, eval)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	eval, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, &eval.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	questions, err := h.repo.ListQuestions(r.Context(), id)
	if err != nil {
		h.logger.Error("list questions", slog.Int64("evaluation_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, questions)
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req CreateQuestionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	question, err := h.repo.CreateQuestion(r.Context(), id, req)
	if err != nil {
		h.logger.Error("create question", slog.Int64("evaluation_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, question)
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req UpdateQuestionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.repo.UpdateQuestion(r.Context(), id, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	question, err := h.repo.GetQuestion(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, question)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteQuestion(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	res, err := h.repo.QuestionResource(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, res.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	options, err := h.repo.ListOptions(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, options)
}

func (h *Handler) CreateOption(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req CreateOptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	option, err := h.repo.CreateOption(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, option)
}

func (h *Handler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req UpdateOptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.repo.UpdateOption(r.Context(), id, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteOption(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)

	var schoolID *int64
	if !p.Role.Global() {
		if p.SchoolID == nil {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"applications": []Application{},
				"pagination":   shared.NewPagination(page, perPage, 0),
			})
			return
		}
		schoolID = p.SchoolID
	}
	var evaluationID *int64
	if v := r.URL.Query().Get("evaluation_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			evaluationID = &id
		}
	}

	list, total, err := h.repo.ListApplications(r.Context(), schoolID, evaluationID, shared.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("list applications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"applications": list,
		"pagination":   shared.NewPagination(page, perPage, int(total)),
	})
}

func (h *Handler) ShowApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	res, err := h.repo.ApplicationResource(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	if d := h.authz.Gate.AuthorizeInstitution(p, res.SchoolID); !d.Allow {
		authz.RespondDecision(w, d)
		return
	}
	app, err := h.repo.GetApplication(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	var req CreateApplicationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	appliedOn, err := time.Parse("2006-01-02", req.AppliedOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "applied_on must be YYYY-MM-DD")
		return
	}
	app, err := h.repo.CreateApplication(r.Context(), id, req.CourseID, appliedOn)
	if err != nil {
		h.logger.Error("create application", slog.Int64("evaluation_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

// CloseApplication stops answer intake and queues a grade recalculation.
func (h *Handler) CloseApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := paramID(w, r)
	if !ok {
		return
	}
	app, err := h.repo.CloseApplication(r.Context(), id)
	if err != nil {
		h.logger.Error("close application", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	task, err := jobs.NewGradesRecalcTask(app.ID)
	if err != nil {
		h.logger.Error("build recalc task", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if _, err := h.tasks.EnqueueContext(r.Context(), task); err != nil {
		h.logger.Error("enqueue recalc", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func paramID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "resource id must be numeric")
		return 0, false
	}
	return id, true
}
