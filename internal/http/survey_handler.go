package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"survey-system/internal/domain/survey"
	"survey-system/internal/platform/apperr"
)

type createSurveyRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartDate   survey.Date `json:"start_date"`
	EndDate     survey.Date `json:"end_date"`
}

type updateSurveyRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	StartDate   *survey.Date `json:"start_date"`
	EndDate     *survey.Date `json:"end_date"`
	IsActive    *bool        `json:"is_active"`
}

// @Summary     List surveys
// @Tags        surveys
// @Produce     json
// @Param       question  query  int64   false  "only surveys containing this question"
// @Param       ordering  query  string  false  "start_date, -start_date, end_date or -end_date"
// @Success     200  {array}  survey.Survey
// @Router      /api/surveys [get]
func (h *Handler) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	f := survey.ListFilter{OrderBy: r.URL.Query().Get("ordering")}
	if q := r.URL.Query().Get("question"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			errorResponse(w, apperr.BadRequest("invalid_input", "invalid question filter", err))
			return
		}
		f.QuestionID = &id
	}

	surveys, err := h.surveySvc.List(r.Context(), f)
	if err != nil {
		errorResponse(w, err)
		return
	}

	now := time.Now()
	for i := range surveys {
		if err := h.surveySvc.RefreshStatus(r.Context(), &surveys[i], now); err != nil {
			errorResponse(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, surveys)
}

func (h *Handler) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

func (h *Handler) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var req createSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	sv := &survey.Survey{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := h.surveySvc.Create(r.Context(), sv); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

// @Summary     Update a survey
// @Description start_date is immutable; a differing incoming value is
// @Description dropped and reported in ignored_fields.
// @Tags        surveys
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path  int64                true  "Survey ID"
// @Param       request  body  updateSurveyRequest  true  "Partial update"
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  map[string]string  "validation error"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/surveys/{id} [patch]
func (h *Handler) handleUpdateSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	var req updateSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	sv, ignored, err := h.surveySvc.Update(r.Context(), id, survey.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    req.IsActive,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	resp := map[string]any{"survey": sv}
	if len(ignored) > 0 {
		resp["ignored_fields"] = ignored
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	if err := h.surveySvc.Delete(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSurveyQuestions(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	questions, err := h.surveySvc.Questions(r.Context(), sv.ID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// loadSurvey fetches the survey named by the id path param and runs
// the lifecycle evaluation, so every read observes a fresh is_active.
func (h *Handler) loadSurvey(w http.ResponseWriter, r *http.Request) (*survey.Survey, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return nil, false
	}

	sv, err := h.surveySvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return nil, false
	}
	if err := h.surveySvc.RefreshStatus(r.Context(), sv, time.Now()); err != nil {
		errorResponse(w, err)
		return nil, false
	}
	return sv, true
}
