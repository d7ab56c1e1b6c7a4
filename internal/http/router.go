package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
	"survey-system/internal/domain/user"
	jwtpkg "survey-system/internal/platform/jwt"
	"survey-system/internal/worker"
)

type Handler struct {
	userSvc    *user.Service
	surveySvc  *survey.Service
	respSvc    *response.Service
	jwtMgr     *jwtpkg.Manager
	sessionTTL time.Duration
	subCh      chan<- worker.SubmissionEvent
	db         *sql.DB
}

func NewHandler(
	userSvc *user.Service,
	surveySvc *survey.Service,
	respSvc *response.Service,
	jwtMgr *jwtpkg.Manager,
	sessionTTL time.Duration,
	subCh chan<- worker.SubmissionEvent,
	db *sql.DB,
) *Handler {
	return &Handler{
		userSvc:    userSvc,
		surveySvc:  surveySvc,
		respSvc:    respSvc,
		jwtMgr:     jwtMgr,
		sessionTTL: sessionTTL,
		subCh:      subCh,
		db:         db,
	}
}

// NewRouter wires the REST API plus the operational endpoints. The
// HTML surface is mounted separately by the caller.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(Session(h.jwtMgr))

		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)

		// reads open to everyone, authenticated or not
		r.Get("/surveys", h.handleListSurveys)
		r.Get("/surveys/{id}", h.handleGetSurvey)
		r.Get("/surveys/{id}/questions", h.handleSurveyQuestions)
		r.Get("/questions", h.handleListQuestions)
		r.Get("/questions/{id}", h.handleGetQuestion)
		r.Get("/answers", h.handleListOptions)
		r.Get("/answers/{id}", h.handleGetOption)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)

			r.Post("/logout", h.handleLogout)
			r.Post("/change-password", h.handleChangePassword)

			r.Get("/responses", h.handleListResponses)
			r.Get("/responses/{id}", h.handleGetResponse)
			r.With(RateLimitSubmissions(rate.Every(time.Minute/30), 10)).
				Post("/responses", h.handleCreateResponse)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireStaff)

			r.Post("/reset-password", h.handleResetPassword)

			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Get("/users/{id}", h.handleGetUser)
			r.Put("/users/{id}", h.handleUpdateUser)
			r.Patch("/users/{id}", h.handleUpdateUser)
			r.Delete("/users/{id}", h.handleDeleteUser)

			r.Post("/surveys", h.handleCreateSurvey)
			r.Put("/surveys/{id}", h.handleUpdateSurvey)
			r.Patch("/surveys/{id}", h.handleUpdateSurvey)
			r.Delete("/surveys/{id}", h.handleDeleteSurvey)

			r.Post("/questions", h.handleCreateQuestion)
			r.Put("/questions/{id}", h.handleUpdateQuestion)
			r.Patch("/questions/{id}", h.handleUpdateQuestion)
			r.Delete("/questions/{id}", h.handleDeleteQuestion)

			r.Post("/answers", h.handleCreateOption)
			r.Put("/answers/{id}", h.handleUpdateOption)
			r.Patch("/answers/{id}", h.handleUpdateOption)
			r.Delete("/answers/{id}", h.handleDeleteOption)

			r.Get("/surveys/{id}/statistics", h.handleSurveyStatistics)
			r.Get("/surveys/{id}/answers", h.handleSurveyAnswers)
			r.Get("/surveys/{id}/questions/{questionID}/answers", h.handleSurveyAnswersByQuestion)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
