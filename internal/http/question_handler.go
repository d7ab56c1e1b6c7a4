package api

import (
	"encoding/json"
	"net/http"

	"survey-system/internal/domain/survey"
	"survey-system/internal/platform/apperr"
)

type createQuestionRequest struct {
	SurveyID int64  `json:"survey_id"`
	Text     string `json:"text"`
	Type     string `json:"question_type"`
}

type updateQuestionRequest struct {
	SurveyID *int64  `json:"survey_id"`
	Text     *string `json:"text"`
	Type     *string `json:"question_type"`
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.surveySvc.AllQuestions(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	q, err := h.surveySvc.GetQuestion(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	q := &survey.Question{SurveyID: req.SurveyID, Text: req.Text, Type: req.Type}
	if err := h.surveySvc.CreateQuestion(r.Context(), q); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	var req updateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	q, err := h.surveySvc.UpdateQuestion(r.Context(), id, survey.QuestionUpdate{
		SurveyID: req.SurveyID,
		Text:     req.Text,
		Type:     req.Type,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	if err := h.surveySvc.DeleteQuestion(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
