package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"survey-system/internal/domain/response"
	"survey-system/internal/platform/apperr"
	"survey-system/internal/worker"
)

type createResponseRequest struct {
	QuestionID       int64   `json:"question_id"`
	SelectedOptionID *int64  `json:"selected_option_id"`
	TextResponse     *string `json:"text_response"`
}

// @Summary     Submit a response
// @Tags        responses
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body  createResponseRequest  true  "Response payload"
// @Success     201  {object}  response.Response
// @Failure     400  {object}  map[string]string  "validation error"
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Failure     404  {object}  map[string]string  "question not found"
// @Router      /api/responses [post]
func (h *Handler) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	var req createResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.QuestionID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "question_id is required", nil))
		return
	}

	userID, _ := callerID(r)
	resp, err := h.respSvc.Create(r.Context(), userID, response.CreateInput{
		QuestionID:       req.QuestionID,
		SelectedOptionID: req.SelectedOptionID,
		TextResponse:     req.TextResponse,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	q, err := h.surveySvc.GetQuestion(r.Context(), resp.QuestionID)
	if err == nil {
		select {
		case h.subCh <- worker.SubmissionEvent{SurveyID: q.SurveyID, UserID: userID, Rows: 1}:
		default:
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// handleListResponses returns only the caller's own rows; there is no
// cross-user visibility on this resource.
func (h *Handler) handleListResponses(w http.ResponseWriter, r *http.Request) {
	userID, _ := callerID(r)
	responses, err := h.respSvc.ListOwn(r.Context(), userID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	resp, err := h.respSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	userID, _ := callerID(r)
	if resp.UserID == nil || *resp.UserID != userID {
		// other users' rows do not exist as far as the caller can tell
		errorResponse(w, sql.ErrNoRows)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary     Survey statistics
// @Tags        surveys
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Survey ID"
// @Success     200  {object}  response.SurveyStats
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Failure     403  {object}  map[string]string  "forbidden"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/surveys/{id}/statistics [get]
func (h *Handler) handleSurveyStatistics(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	stats, err := h.respSvc.Statistics(r.Context(), sv.ID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSurveyAnswers(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	responses, err := h.respSvc.ListBySurvey(r.Context(), sv.ID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) handleSurveyAnswersByQuestion(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}
	questionID, err := parseIDParam(r, "questionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid question id", err))
		return
	}

	responses, err := h.respSvc.ListByQuestion(r.Context(), sv.ID, questionID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}
