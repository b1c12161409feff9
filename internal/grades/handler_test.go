package grades

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

type stubRepo struct {
	Repository

	students   map[int64]int64 // user id -> student id
	openApps   map[int64]bool
	appSchools map[int64]int64
	submitted  []Answer
	answers    []Answer
	grades     []Grade
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		students:   make(map[int64]int64),
		openApps:   make(map[int64]bool),
		appSchools: make(map[int64]int64),
	}
}

func (s *stubRepo) StudentIDForUser(ctx context.Context, userID int64) (int64, error) {
	id, ok := s.students[userID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

func (s *stubRepo) ApplicationState(ctx context.Context, applicationID int64) (bool, int64, error) {
	open, ok := s.openApps[applicationID]
	if !ok {
		return false, 0, shared.ErrNotFound
	}
	return open, s.appSchools[applicationID], nil
}

func (s *stubRepo) ListAnswers(ctx context.Context, applicationID int64, studentID *int64) ([]Answer, error) {
	var out []Answer
	for _, a := range s.answers {
		if a.ApplicationID != applicationID {
			continue
		}
		if studentID != nil && a.StudentID != *studentID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *stubRepo) SubmitAnswer(ctx context.Context, applicationID, studentID, questionID, optionID int64) (*Answer, error) {
	a := Answer{ID: int64(len(s.submitted) + 1), ApplicationID: applicationID, StudentID: studentID, QuestionID: questionID, OptionID: optionID}
	s.submitted = append(s.submitted, a)
	return &a, nil
}

func (s *stubRepo) ListGrades(ctx context.Context, schoolID, applicationID, studentID *int64) ([]Grade, error) {
	var out []Grade
	for _, g := range s.grades {
		if studentID != nil && g.StudentID != *studentID {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func newTestRouter(repo Repository) http.Handler {
	gate := authz.NewGate(nil, authz.NewCatalog())
	mw := authz.Middleware{Gate: gate, Logger: slog.Default()}
	h := NewHandler(slog.Default(), repo, mw)

	r := chi.NewRouter()
	r.Route("/grades", h.MountRoutes)
	r.Route("/answers", h.MountAnswerRoutes)
	return r
}

func asPrincipal(r *http.Request, p *authz.Principal) *http.Request {
	return r.WithContext(authz.ContextWithPrincipal(r.Context(), p))
}

func TestStudentSubmitsOwnAnswer(t *testing.T) {
	repo := newStubRepo()
	repo.students[20] = 5
	repo.openApps[1] = true
	repo.appSchools[1] = 1
	router := newTestRouter(repo)

	school := int64(1)
	p := &authz.Principal{ID: 20, Active: true, Role: authz.RoleStudent, SchoolID: &school}

	// student_id in the body is ignored for students
	body := `{"application_id":1,"question_id":3,"option_id":9,"student_id":999}`
	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/answers", strings.NewReader(body)), p)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.submitted, 1)
	require.Equal(t, int64(5), repo.submitted[0].StudentID)
}

func TestSubmitAnswerClosedApplicationRejected(t *testing.T) {
	repo := newStubRepo()
	repo.students[20] = 5
	repo.openApps[1] = false
	repo.appSchools[1] = 1
	router := newTestRouter(repo)

	school := int64(1)
	p := &authz.Principal{ID: 20, Active: true, Role: authz.RoleStudent, SchoolID: &school}

	body := `{"application_id":1,"question_id":3,"option_id":9}`
	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/answers", strings.NewReader(body)), p)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, repo.submitted)
}

func TestStudentSeesOnlyOwnGrades(t *testing.T) {
	repo := newStubRepo()
	repo.students[20] = 5
	repo.grades = []Grade{
		{ID: 1, StudentID: 5, Score: 6.2},
		{ID: 2, StudentID: 6, Score: 4.1},
	}
	router := newTestRouter(repo)

	school := int64(1)
	p := &authz.Principal{ID: 20, Active: true, Role: authz.RoleStudent, SchoolID: &school}

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/grades?student_id=6", nil), p)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"score":6.2`)
	require.NotContains(t, rec.Body.String(), `"score":4.1`)
}

func TestListAnswersOtherSchoolDenied(t *testing.T) {
	repo := newStubRepo()
	repo.openApps[1] = true
	repo.appSchools[1] = 2
	repo.answers = []Answer{{ID: 1, ApplicationID: 1, StudentID: 5, QuestionID: 3, OptionID: 9}}
	router := newTestRouter(repo)

	school := int64(1)
	p := &authz.Principal{ID: 30, Active: true, Role: authz.RoleTeacher, SchoolID: &school}

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/answers?application_id=1", nil), p)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), `"question_id"`)
}

func TestSubmitAnswerOtherSchoolDenied(t *testing.T) {
	repo := newStubRepo()
	repo.openApps[1] = true
	repo.appSchools[1] = 2
	router := newTestRouter(repo)

	school := int64(1)
	p := &authz.Principal{ID: 30, Active: true, Role: authz.RoleTeacher, SchoolID: &school}

	body := `{"application_id":1,"question_id":3,"option_id":9,"student_id":5}`
	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/answers", strings.NewReader(body)), p)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, repo.submitted)
}
