package api

import (
	"encoding/json"
	"net/http"

	"survey-system/internal/domain/survey"
	"survey-system/internal/platform/apperr"
)

type createOptionRequest struct {
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
}

type updateOptionRequest struct {
	QuestionID *int64  `json:"question_id"`
	Text       *string `json:"text"`
}

func (h *Handler) handleListOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.surveySvc.AllOptions(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) handleGetOption(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	o, err := h.surveySvc.GetOption(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleCreateOption(w http.ResponseWriter, r *http.Request) {
	var req createOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	o := &survey.AnswerOption{QuestionID: req.QuestionID, Text: req.Text}
	if err := h.surveySvc.CreateOption(r.Context(), o); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) handleUpdateOption(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	var req updateOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	o, err := h.surveySvc.UpdateOption(r.Context(), id, survey.OptionUpdate{
		QuestionID: req.QuestionID,
		Text:       req.Text,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid id", err))
		return
	}

	if err := h.surveySvc.DeleteOption(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
