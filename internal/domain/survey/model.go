package survey

import (
	"context"
	"time"
)

type Survey struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expired reports whether the survey's end date lies strictly before
// the calendar day of now. It is a pure predicate; persisting the
// flipped flag is the caller's job via Service.RefreshStatus.
func (s *Survey) Expired(now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.EndDate.Time.Before(today)
}

const (
	TypeSingle   = "single"
	TypeMultiple = "multiple"
	TypeText     = "text"
)

func ValidQuestionType(t string) bool {
	return t == TypeSingle || t == TypeMultiple || t == TypeText
}

type Question struct {
	ID       int64  `json:"id"`
	SurveyID int64  `json:"survey_id"`
	Text     string `json:"text"`
	Type     string `json:"question_type"`
}

// Choice reports whether the question carries answer options.
func (q *Question) Choice() bool {
	return q.Type == TypeSingle || q.Type == TypeMultiple
}

type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
}

// ListFilter narrows and orders survey listings. QuestionID filters to
// surveys containing that question; OrderBy is one of
// start_date, -start_date, end_date, -end_date.
type ListFilter struct {
	QuestionID *int64
	OrderBy    string
}

type Repository interface {
	Create(ctx context.Context, s *Survey) error
	GetByID(ctx context.Context, id int64) (*Survey, error)
	List(ctx context.Context, f ListFilter) ([]Survey, error)
	Update(ctx context.Context, s *Survey) error
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error

	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	ListQuestions(ctx context.Context, surveyID int64) ([]Question, error)
	ListAllQuestions(ctx context.Context) ([]Question, error)
	UpdateQuestion(ctx context.Context, q *Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	CreateOption(ctx context.Context, o *AnswerOption) error
	GetOption(ctx context.Context, id int64) (*AnswerOption, error)
	ListOptions(ctx context.Context, questionID int64) ([]AnswerOption, error)
	ListAllOptions(ctx context.Context) ([]AnswerOption, error)
	UpdateOption(ctx context.Context, o *AnswerOption) error
	DeleteOption(ctx context.Context, id int64) error
}
