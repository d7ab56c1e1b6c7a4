package web

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
	"survey-system/internal/domain/user"
	jwtpkg "survey-system/internal/platform/jwt"
	"survey-system/internal/worker"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*user.User
	byName map[string]int64
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*user.User), byName: make(map[string]int64), nextID: 1}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	r.byName[u.Username] = u.ID
	return nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]user.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.users[u.ID]
	if !ok {
		return sql.ErrNoRows
	}
	delete(r.byName, old.Username)
	cp := *u
	r.users[u.ID] = &cp
	r.byName[u.Username] = u.ID
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

func newTestHandler(repo *fakeUserRepo) *Handler {
	return NewHandler(
		user.NewService(repo),
		nil, nil,
		jwtpkg.NewManager("secret", "test-issuer"),
		time.Hour,
		make(chan worker.SubmissionEvent, 1),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func newFullTestHandler(users *fakeUserRepo, surveys *fakeSurveyRepo, resps *fakeResponseRepo) *Handler {
	return NewHandler(
		user.NewService(users),
		survey.NewService(surveys),
		response.NewService(resps, surveys),
		jwtpkg.NewManager("secret", "test-issuer"),
		time.Hour,
		make(chan worker.SubmissionEvent, 1),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// fakeSurveyRepo holds a single pre-built survey tree; the mutation
// methods are unused by the pages under test.
type fakeSurveyRepo struct {
	surveys   map[int64]*survey.Survey
	questions map[int64]*survey.Question
	options   map[int64]*survey.AnswerOption
}

func newFakeSurveyRepo() *fakeSurveyRepo {
	return &fakeSurveyRepo{
		surveys:   make(map[int64]*survey.Survey),
		questions: make(map[int64]*survey.Question),
		options:   make(map[int64]*survey.AnswerOption),
	}
}

func (r *fakeSurveyRepo) Create(ctx context.Context, s *survey.Survey) error { return nil }

func (r *fakeSurveyRepo) GetByID(ctx context.Context, id int64) (*survey.Survey, error) {
	s, ok := r.surveys[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSurveyRepo) List(ctx context.Context, f survey.ListFilter) ([]survey.Survey, error) {
	return nil, nil
}

func (r *fakeSurveyRepo) Update(ctx context.Context, s *survey.Survey) error { return nil }
func (r *fakeSurveyRepo) Delete(ctx context.Context, id int64) error         { return nil }

func (r *fakeSurveyRepo) SetActive(ctx context.Context, id int64, active bool) error {
	s, ok := r.surveys[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.IsActive = active
	return nil
}

func (r *fakeSurveyRepo) CreateQuestion(ctx context.Context, q *survey.Question) error { return nil }

func (r *fakeSurveyRepo) GetQuestion(ctx context.Context, id int64) (*survey.Question, error) {
	q, ok := r.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (r *fakeSurveyRepo) ListQuestions(ctx context.Context, surveyID int64) ([]survey.Question, error) {
	var res []survey.Question
	for _, q := range r.questions {
		if q.SurveyID == surveyID {
			res = append(res, *q)
		}
	}
	return res, nil
}

func (r *fakeSurveyRepo) ListAllQuestions(ctx context.Context) ([]survey.Question, error) {
	return nil, nil
}

func (r *fakeSurveyRepo) UpdateQuestion(ctx context.Context, q *survey.Question) error { return nil }
func (r *fakeSurveyRepo) DeleteQuestion(ctx context.Context, id int64) error           { return nil }

func (r *fakeSurveyRepo) CreateOption(ctx context.Context, o *survey.AnswerOption) error { return nil }

func (r *fakeSurveyRepo) GetOption(ctx context.Context, id int64) (*survey.AnswerOption, error) {
	o, ok := r.options[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (r *fakeSurveyRepo) ListOptions(ctx context.Context, questionID int64) ([]survey.AnswerOption, error) {
	var res []survey.AnswerOption
	for _, o := range r.options {
		if o.QuestionID == questionID {
			res = append(res, *o)
		}
	}
	return res, nil
}

func (r *fakeSurveyRepo) ListAllOptions(ctx context.Context) ([]survey.AnswerOption, error) {
	return nil, nil
}

func (r *fakeSurveyRepo) UpdateOption(ctx context.Context, o *survey.AnswerOption) error { return nil }
func (r *fakeSurveyRepo) DeleteOption(ctx context.Context, id int64) error               { return nil }

// fakeResponseRepo serves the aggregation reads with canned counts.
type fakeResponseRepo struct {
	bySurvey   map[int64]int64
	byQuestion map[int64]int64
	byOption   map[int64]map[int64]int64
	texts      map[int64][]string
}

func (r *fakeResponseRepo) Create(ctx context.Context, resp *response.Response) error { return nil }

func (r *fakeResponseRepo) GetByID(ctx context.Context, id int64) (*response.Response, error) {
	return nil, sql.ErrNoRows
}

func (r *fakeResponseRepo) ListByUser(ctx context.Context, userID int64) ([]response.Response, error) {
	return nil, nil
}

func (r *fakeResponseRepo) ListBySurvey(ctx context.Context, surveyID int64) ([]response.Response, error) {
	return nil, nil
}

func (r *fakeResponseRepo) ListByQuestion(ctx context.Context, surveyID, questionID int64) ([]response.Response, error) {
	return nil, nil
}

func (r *fakeResponseRepo) CountBySurvey(ctx context.Context, surveyID int64) (int64, error) {
	return r.bySurvey[surveyID], nil
}

func (r *fakeResponseRepo) CountByQuestion(ctx context.Context, questionID int64) (int64, error) {
	return r.byQuestion[questionID], nil
}

func (r *fakeResponseRepo) CountByOption(ctx context.Context, questionID int64) (map[int64]int64, error) {
	return r.byOption[questionID], nil
}

func (r *fakeResponseRepo) TextAnswers(ctx context.Context, questionID int64) ([]string, error) {
	return r.texts[questionID], nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, username, password string, isStaff bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := repo.Create(context.Background(), &user.User{
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      isStaff,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestAnonymousRedirectsToLogin(t *testing.T) {
	h := newTestHandler(newFakeUserRepo())
	router := h.Routes()

	for _, path := range []string{"/surveys/1", "/surveys/1/results", "/profile", "/users"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303, got %d", path, rec.Code)
		}
		loc := rec.Header().Get("Location")
		if !strings.HasPrefix(loc, "/login?next=") {
			t.Fatalf("%s: expected login redirect, got %q", path, loc)
		}
		if got := loc[len("/login?next="):]; got != url.QueryEscape(path) {
			t.Fatalf("%s: next param %q does not round-trip", path, got)
		}
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "alice", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	form := url.Values{"username": {"alice"}, "password": {"secret"}, "next": {"/profile"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after login, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/profile" {
		t.Fatalf("expected redirect to next, got %q", loc)
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatalf("session cookie not set")
	}
	if !session.HttpOnly {
		t.Fatalf("session cookie must be http-only")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "alice", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the login page again, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			t.Fatalf("session cookie must not be set on failure")
		}
	}
	if !strings.Contains(rec.Body.String(), "invalid username or password") {
		t.Fatalf("error message missing from response")
	}
}

func TestStaffPagesForbiddenForMembers(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "member", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	token, err := h.jwtMgr.Generate(1, false, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	for _, path := range []string{"/users", "/surveys/new", "/users/1/edit"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for non-staff, got %d", path, rec.Code)
		}
	}
}

func TestLoginRejectsProtocolRelativeNext(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "alice", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	for _, next := range []string{"//evil.example", "//evil.example/path", "https://evil.example", ""} {
		form := url.Values{"username": {"alice"}, "password": {"secret"}, "next": {next}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("next=%q: expected 303, got %d", next, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Fatalf("next=%q: expected redirect to /, got %q", next, loc)
		}
	}
}

func TestMemberCanViewResults(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "member", "secret", false)

	surveys := newFakeSurveyRepo()
	surveys.surveys[1] = &survey.Survey{
		ID:        1,
		Title:     "Team Lunch",
		StartDate: survey.NewDate(2026, 1, 1),
		EndDate:   survey.NewDate(2030, 12, 31),
		IsActive:  true,
	}
	surveys.questions[10] = &survey.Question{ID: 10, SurveyID: 1, Text: "Attending?", Type: survey.TypeSingle}
	surveys.options[100] = &survey.AnswerOption{ID: 100, QuestionID: 10, Text: "Yes"}
	surveys.options[101] = &survey.AnswerOption{ID: 101, QuestionID: 10, Text: "No"}

	resps := &fakeResponseRepo{
		bySurvey:   map[int64]int64{1: 1},
		byQuestion: map[int64]int64{10: 1},
		byOption:   map[int64]map[int64]int64{10: {100: 1}},
	}

	h := newFullTestHandler(users, surveys, resps)
	router := h.Routes()

	token, err := h.jwtMgr.Generate(1, false, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/surveys/1/results", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an authenticated non-staff user, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Team Lunch") || !strings.Contains(body, "Yes") {
		t.Fatalf("results page missing survey content: %q", body)
	}
}

func TestProfileUpdatesOwnAccount(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "alice", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	token, err := h.jwtMgr.Generate(1, false, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	form := url.Values{"username": {"alice2"}, "email": {"alice@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after profile update, got %d", rec.Code)
	}
	u, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Username != "alice2" || u.Email != "alice@example.com" {
		t.Fatalf("profile not updated: %+v", u)
	}
}

func TestProfileUpdateRejectsTakenUsername(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "alice", "secret", false)
	seedUser(t, repo, "bob", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	token, err := h.jwtMgr.Generate(1, false, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	form := url.Values{"username": {"bob"}, "email": {""}}
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	u, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("username must stay unchanged on conflict, got %q", u.Username)
	}
}

func TestAdminEditsUser(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret", true)
	seedUser(t, repo, "member", "secret", false)
	h := newTestHandler(repo)
	router := h.Routes()

	token, err := h.jwtMgr.Generate(1, true, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/2/edit", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the edit page, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "member") {
		t.Fatalf("edit page does not show the user being edited")
	}

	form := url.Values{
		"username": {"member"},
		"email":    {"member@example.com"},
		"password": {"newsecret"},
	}
	req = httptest.NewRequest(http.MethodPost, "/users/2/edit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 after edit, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/users" {
		t.Fatalf("expected redirect to /users, got %q", loc)
	}
	u, err := repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Email != "member@example.com" {
		t.Fatalf("email not updated: %+v", u)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newsecret")) != nil {
		t.Fatalf("password was not reset")
	}
}
