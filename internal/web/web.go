// Package web is the server-rendered HTML surface. It shares the
// domain services with the REST API but speaks cookies, forms and
// redirects instead of JSON.
package web

import (
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
	"survey-system/internal/domain/user"
	api "survey-system/internal/http"
	jwtpkg "survey-system/internal/platform/jwt"
	"survey-system/internal/worker"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "session"
const flashCookie = "flash"

var pages = map[string]*template.Template{}

func init() {
	names := []string{
		"index.html", "login.html", "register.html", "profile.html",
		"survey_detail.html", "survey_results.html", "survey_form.html",
		"question_form.html", "users.html", "user_form.html",
	}
	for _, name := range names {
		pages[name] = template.Must(template.ParseFS(templateFS,
			"templates/base.html", "templates/"+name))
	}
}

type Handler struct {
	users      *user.Service
	surveys    *survey.Service
	resps      *response.Service
	jwtMgr     *jwtpkg.Manager
	sessionTTL time.Duration
	subCh      chan<- worker.SubmissionEvent
	logger     *slog.Logger
}

func NewHandler(
	users *user.Service,
	surveys *survey.Service,
	resps *response.Service,
	jwtMgr *jwtpkg.Manager,
	sessionTTL time.Duration,
	subCh chan<- worker.SubmissionEvent,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		users:      users,
		surveys:    surveys,
		resps:      resps,
		jwtMgr:     jwtMgr,
		sessionTTL: sessionTTL,
		subCh:      subCh,
		logger:     logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.index)
	r.Get("/login", h.loginPage)
	r.Post("/login", h.login)
	r.Get("/register", h.registerPage)
	r.Post("/register", h.register)
	r.Post("/logout", h.logout)

	r.Get("/profile", h.requireUser(h.profile))
	r.Post("/profile", h.requireUser(h.updateProfile))
	r.Post("/profile/password", h.requireUser(h.changePassword))

	r.Get("/surveys/{id}", h.requireUser(h.surveyDetail))
	r.With(api.RateLimitSubmissions(rate.Every(time.Minute/30), 10)).
		Post("/surveys/{id}/submit", h.requireUser(h.submitSurvey))
	r.Get("/surveys/{id}/results", h.requireUser(h.surveyResults))

	r.Get("/surveys/new", h.requireStaff(h.newSurveyPage))
	r.Post("/surveys/new", h.requireStaff(h.createSurvey))
	r.Get("/surveys/{id}/edit", h.requireStaff(h.editSurveyPage))
	r.Post("/surveys/{id}/edit", h.requireStaff(h.editSurvey))
	r.Post("/surveys/{id}/delete", h.requireStaff(h.deleteSurvey))
	r.Get("/surveys/{id}/questions/new", h.requireStaff(h.newQuestionPage))
	r.Post("/surveys/{id}/questions/new", h.requireStaff(h.createQuestion))

	r.Get("/users", h.requireStaff(h.listUsers))
	r.Get("/users/new", h.requireStaff(h.newUserPage))
	r.Post("/users/new", h.requireStaff(h.createUser))
	r.Get("/users/{id}/edit", h.requireStaff(h.editUserPage))
	r.Post("/users/{id}/edit", h.requireStaff(h.editUser))
	r.Post("/users/{id}/delete", h.requireStaff(h.deleteUser))

	return r
}

// viewer is the authenticated user behind the current request, loaded
// from the session cookie. A missing or invalid cookie means anonymous.
type viewer struct {
	*user.User
}

func (h *Handler) viewer(r *http.Request) (viewer, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return viewer{}, false
	}
	claims, err := h.jwtMgr.Parse(c.Value)
	if err != nil {
		return viewer{}, false
	}
	u, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		return viewer{}, false
	}
	return viewer{User: u}, true
}

type pageHandler func(w http.ResponseWriter, r *http.Request, v viewer)

func (h *Handler) requireUser(next pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := h.viewer(r)
		if !ok {
			redirectToLogin(w, r)
			return
		}
		next(w, r, v)
	}
}

func (h *Handler) requireStaff(next pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := h.viewer(r)
		if !ok {
			redirectToLogin(w, r)
			return
		}
		if !v.IsStaff {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r, v)
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

// pageData is what every template receives. Data carries the
// page-specific payload.
type pageData struct {
	Viewer *user.User
	Flash  string
	Error  string
	Data   any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, pd pageData) {
	if pd.Viewer == nil {
		if v, ok := h.viewer(r); ok {
			pd.Viewer = v.User
		}
	}
	if pd.Flash == "" {
		pd.Flash = popFlash(w, r)
	}
	tmpl, ok := pages[name]
	if !ok {
		h.logger.Error("missing template", "name", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", pd); err != nil {
		h.logger.Error("render failed", "template", name, "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error("page failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	})
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

func (h *Handler) setSession(w http.ResponseWriter, u *user.User) error {
	token, err := h.jwtMgr.Generate(u.ID, u.IsStaff, h.sessionTTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
