package evaluations

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
	"github.com/edumetrics/edumetrics/jobs"
)

type stubRepo struct {
	Repository

	evaluations    map[int64]*Evaluation
	subjectSchools map[int64]int64
	created        []int64
	closed         []int64
	nextID         int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		evaluations:    make(map[int64]*Evaluation),
		subjectSchools: make(map[int64]int64),
		nextID:         100,
	}
}

func (s *stubRepo) Get(ctx context.Context, id int64) (*Evaluation, error) {
	e, ok := s.evaluations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return e, nil
}

func (s *stubRepo) SubjectSchool(ctx context.Context, subjectID int64) (int64, error) {
	school, ok := s.subjectSchools[subjectID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return school, nil
}

func (s *stubRepo) Create(ctx context.Context, req CreateEvaluationRequest, teacherID int64) (int64, error) {
	s.nextID++
	s.evaluations[s.nextID] = &Evaluation{
		ID: s.nextID, Title: req.Title, SubjectID: req.SubjectID,
		TeacherID: teacherID, SchoolID: 1,
	}
	s.created = append(s.created, teacherID)
	return s.nextID, nil
}

func (s *stubRepo) CloseApplication(ctx context.Context, id int64) (*Application, error) {
	now := time.Now()
	s.closed = append(s.closed, id)
	return &Application{ID: id, EvaluationID: 10, CourseID: 2, ClosedAt: &now}, nil
}

func (s *stubRepo) ApplicationResource(ctx context.Context, id int64) (*authz.Resource, error) {
	school := int64(1)
	return &authz.Resource{ID: id, OwnerID: 7, SchoolID: &school}, nil
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newTestHandler(t *testing.T, repo Repository, enq TaskEnqueuer) (*Handler, authz.Middleware) {
	t.Helper()
	catalog := authz.NewCatalog()
	if sr, ok := repo.(*stubRepo); ok {
		catalog.Register("application", sr.ApplicationResource)
	}
	gate := authz.NewGate(nil, catalog)
	mw := authz.Middleware{Gate: gate, Logger: slog.Default()}
	return NewHandler(slog.Default(), repo, mw, enq), mw
}

func principalCtx(r *http.Request, p *authz.Principal) *http.Request {
	return r.WithContext(authz.ContextWithPrincipal(r.Context(), p))
}

func TestCloseApplicationEnqueuesRecalc(t *testing.T) {
	repo := newStubRepo()
	enq := &stubEnqueuer{}
	h, _ := newTestHandler(t, repo, enq)

	r := chi.NewRouter()
	r.Route("/applications", h.MountApplicationRoutes)

	school := int64(1)
	p := &authz.Principal{ID: 7, Active: true, Role: authz.RoleTeacher, SchoolID: &school}

	req := principalCtx(httptest.NewRequest(http.MethodPost, "/applications/55/close", nil), p)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{55}, repo.closed)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, jobs.TaskGradesRecalc, enq.tasks[0].Type())

	var payload jobs.GradesRecalcPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, int64(55), payload.ApplicationID)
}

func TestCloseApplicationDeniedForNonOwner(t *testing.T) {
	repo := newStubRepo()
	enq := &stubEnqueuer{}
	h, _ := newTestHandler(t, repo, enq)

	r := chi.NewRouter()
	r.Route("/applications", h.MountApplicationRoutes)

	school := int64(1)
	p := &authz.Principal{ID: 8, Active: true, Role: authz.RoleTeacher, SchoolID: &school}

	req := principalCtx(httptest.NewRequest(http.MethodPost, "/applications/55/close", nil), p)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, repo.closed)
	require.Empty(t, enq.tasks)
}

func TestCreateEvaluationTeacherOwnsIt(t *testing.T) {
	repo := newStubRepo()
	repo.subjectSchools[3] = 1
	h, _ := newTestHandler(t, repo, &stubEnqueuer{})

	r := chi.NewRouter()
	r.Route("/evaluations", h.MountRoutes)

	school := int64(1)
	p := &authz.Principal{ID: 7, Active: true, Role: authz.RoleTeacher, SchoolID: &school}

	// A teacher naming someone else as owner is ignored.
	body := `{"title":"Prueba de fracciones","subject_id":3,"teacher_id":99}`
	req := principalCtx(httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(body)), p)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []int64{7}, repo.created)
}

func TestCreateEvaluationAdminMayAssignTeacher(t *testing.T) {
	repo := newStubRepo()
	repo.subjectSchools[3] = 1
	h, _ := newTestHandler(t, repo, &stubEnqueuer{})

	r := chi.NewRouter()
	r.Route("/evaluations", h.MountRoutes)

	school := int64(1)
	p := &authz.Principal{ID: 4, Active: true, Role: authz.RoleAdmin, SchoolID: &school}

	body := `{"title":"Prueba de fracciones","subject_id":3,"teacher_id":99}`
	req := principalCtx(httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(body)), p)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []int64{99}, repo.created)
}

func TestCreateEvaluationOtherSchoolDenied(t *testing.T) {
	repo := newStubRepo()
	repo.subjectSchools[3] = 2
	h, _ := newTestHandler(t, repo, &stubEnqueuer{})

	r := chi.NewRouter()
	r.Route("/evaluations", h.MountRoutes)

	school := int64(1)
	p := &authz.Principal{ID: 7, Active: true, Role: authz.RoleTeacher, SchoolID: &school}

	body := `{"title":"Prueba de fracciones","subject_id":3}`
	req := principalCtx(httptest.NewRequest(http.MethodPost, "/evaluations", strings.NewReader(body)), p)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, repo.created)
	require.Empty(t, repo.evaluations)
}
