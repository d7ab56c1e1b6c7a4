package response

import (
	"context"
	"time"

	"survey-system/internal/domain/survey"
)

// Response links a user to a question with either a selected option or
// a free-text answer, never both. UserID survives user deletion as nil
// so history stays anonymous instead of disappearing.
type Response struct {
	ID               int64     `json:"id"`
	QuestionID       int64     `json:"question_id"`
	SelectedOptionID *int64    `json:"selected_option_id,omitempty"`
	TextResponse     *string   `json:"text_response,omitempty"`
	UserID           *int64    `json:"user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, r *Response) error
	GetByID(ctx context.Context, id int64) (*Response, error)
	ListByUser(ctx context.Context, userID int64) ([]Response, error)
	ListBySurvey(ctx context.Context, surveyID int64) ([]Response, error)
	ListByQuestion(ctx context.Context, surveyID, questionID int64) ([]Response, error)

	CountBySurvey(ctx context.Context, surveyID int64) (int64, error)
	CountByQuestion(ctx context.Context, questionID int64) (int64, error)
	CountByOption(ctx context.Context, questionID int64) (map[int64]int64, error)
	TextAnswers(ctx context.Context, questionID int64) ([]string, error)
}

// SurveyStore is the slice of the survey repository the response
// service needs; *postgres.SurveyRepo satisfies it.
type SurveyStore interface {
	GetByID(ctx context.Context, id int64) (*survey.Survey, error)
	GetQuestion(ctx context.Context, id int64) (*survey.Question, error)
	GetOption(ctx context.Context, id int64) (*survey.AnswerOption, error)
	ListQuestions(ctx context.Context, surveyID int64) ([]survey.Question, error)
	ListOptions(ctx context.Context, questionID int64) ([]survey.AnswerOption, error)
}
