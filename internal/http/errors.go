package api

import (
	"database/sql"
	"errors"
	"net/http"

	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
	"survey-system/internal/domain/user"
	"survey-system/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrUsernameTaken):
		return apperr.BadRequest("username_taken", "username already taken", err)
	case errors.Is(err, user.ErrWrongPassword):
		return apperr.BadRequest("wrong_password", "old password does not match", err)
	case errors.Is(err, user.ErrMissingFields):
		return apperr.BadRequest("missing_fields", "username and password required", err)
	case errors.Is(err, survey.ErrTitleRequired):
		return apperr.BadRequest("title_required", "title is required", err)
	case errors.Is(err, survey.ErrTextRequired):
		return apperr.BadRequest("text_required", "text is required", err)
	case errors.Is(err, survey.ErrInvalidDates):
		return apperr.BadRequest("invalid_dates", "end_date must be after start_date", err)
	case errors.Is(err, survey.ErrInvalidType):
		return apperr.BadRequest("invalid_question_type", "question_type must be single, multiple or text", err)
	case errors.Is(err, survey.ErrBadReference):
		return apperr.BadRequest("bad_reference", "referenced resource does not exist", err)
	case errors.Is(err, response.ErrInvalidResponse):
		return apperr.BadRequest("invalid_response", "exactly one of selected_option_id and text_response must be set", err)
	case errors.Is(err, response.ErrTypeMismatch):
		return apperr.BadRequest("type_mismatch", "response kind does not match question type", err)
	case errors.Is(err, response.ErrOptionNotInQuestion):
		return apperr.BadRequest("invalid_option", "option does not belong to question", err)
	case errors.Is(err, response.ErrQuestionNotInSurvey):
		return apperr.BadRequest("invalid_question", "question does not belong to survey", err)
	case errors.Is(err, response.ErrSurveyClosed):
		return apperr.BadRequest("survey_closed", "survey is closed, responses are no longer accepted", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
