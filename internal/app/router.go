package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/edumetrics/edumetrics/internal/auth"
	"github.com/edumetrics/edumetrics/internal/courses"
	"github.com/edumetrics/edumetrics/internal/evaluations"
	"github.com/edumetrics/edumetrics/internal/grades"
	"github.com/edumetrics/edumetrics/internal/observability"
	"github.com/edumetrics/edumetrics/internal/roles"
	"github.com/edumetrics/edumetrics/internal/schools"
	"github.com/edumetrics/edumetrics/internal/students"
	"github.com/edumetrics/edumetrics/internal/subjects"
	"github.com/edumetrics/edumetrics/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     func(http.Handler) http.Handler
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	SchoolsHandler     *schools.Handler
	RolesHandler       *roles.Handler
	CoursesHandler     *courses.Handler
	SubjectsHandler    *subjects.Handler
	StudentsHandler    *students.Handler
	EvaluationsHandler *evaluations.Handler
	GradesHandler      *grades.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.AuthMiddleware)

		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/schools", params.SchoolsHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/courses", params.CoursesHandler.MountRoutes)
		r.Route("/subjects", params.SubjectsHandler.MountRoutes)
		r.Route("/students", params.StudentsHandler.MountRoutes)
		r.Route("/evaluations", params.EvaluationsHandler.MountRoutes)
		r.Route("/questions", params.EvaluationsHandler.MountQuestionRoutes)
		r.Route("/options", params.EvaluationsHandler.MountOptionRoutes)
		r.Route("/applications", params.EvaluationsHandler.MountApplicationRoutes)
		r.Route("/grades", params.GradesHandler.MountRoutes)
		r.Route("/answers", params.GradesHandler.MountAnswerRoutes)
	})

	return r
}
