package survey

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrTextRequired  = errors.New("text required")
	ErrInvalidDates  = errors.New("end_date must be after start_date")
	ErrInvalidType   = errors.New("invalid question type")
	// ErrBadReference is returned by repositories when an insert or
	// update points at a row that does not exist.
	ErrBadReference = errors.New("referenced row does not exist")
)

// sort keys accepted by List; anything else falls back to start_date,
// matching the lenient behavior of the HTML list page.
var orderings = map[string]bool{
	"start_date": true, "-start_date": true,
	"end_date": true, "-end_date": true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, sv *Survey) error {
	if sv.Title == "" {
		return ErrTitleRequired
	}
	if err := validateDates(sv.StartDate, sv.EndDate); err != nil {
		return err
	}
	sv.IsActive = true
	return s.repo.Create(ctx, sv)
}

func (s *Service) Get(ctx context.Context, id int64) (*Survey, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Survey, error) {
	if !orderings[f.OrderBy] {
		f.OrderBy = "start_date"
	}
	return s.repo.List(ctx, f)
}

// UpdateInput carries a partial survey update. Nil fields keep the
// stored value.
type UpdateInput struct {
	Title       *string
	Description *string
	StartDate   *Date
	EndDate     *Date
	IsActive    *bool
}

// Update applies in to the stored survey. The start date is immutable:
// an incoming value that differs from the stored one is dropped and
// reported back in the ignored list instead of silently vanishing.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Survey, []string, error) {
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var ignored []string
	if in.StartDate != nil && !in.StartDate.Equal(cur.StartDate.Time) {
		ignored = append(ignored, "start_date")
	}
	if in.Title != nil {
		cur.Title = *in.Title
	}
	if in.Description != nil {
		cur.Description = *in.Description
	}
	if in.EndDate != nil {
		cur.EndDate = *in.EndDate
	}
	if in.IsActive != nil {
		cur.IsActive = *in.IsActive
	}

	if cur.Title == "" {
		return nil, nil, ErrTitleRequired
	}
	if err := validateDates(cur.StartDate, cur.EndDate); err != nil {
		return nil, nil, err
	}

	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, nil, err
	}
	return cur, ignored, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// RefreshStatus flips is_active to false once the end date has passed
// and persists the flip. Repeated calls after expiry are no-ops.
// Callers invoke it on every read path; there is no scheduler.
func (s *Service) RefreshStatus(ctx context.Context, sv *Survey, now time.Time) error {
	if !sv.IsActive || !sv.Expired(now) {
		return nil
	}
	sv.IsActive = false
	return s.repo.SetActive(ctx, sv.ID, false)
}

func (s *Service) CreateQuestion(ctx context.Context, q *Question) error {
	if q.Text == "" {
		return ErrTextRequired
	}
	if !ValidQuestionType(q.Type) {
		return ErrInvalidType
	}
	return s.repo.CreateQuestion(ctx, q)
}

func (s *Service) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	return s.repo.GetQuestion(ctx, id)
}

func (s *Service) Questions(ctx context.Context, surveyID int64) ([]Question, error) {
	if _, err := s.repo.GetByID(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.repo.ListQuestions(ctx, surveyID)
}

func (s *Service) AllQuestions(ctx context.Context) ([]Question, error) {
	return s.repo.ListAllQuestions(ctx)
}

type QuestionUpdate struct {
	SurveyID *int64
	Text     *string
	Type     *string
}

func (s *Service) UpdateQuestion(ctx context.Context, id int64, in QuestionUpdate) (*Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.SurveyID != nil {
		q.SurveyID = *in.SurveyID
	}
	if in.Text != nil {
		q.Text = *in.Text
	}
	if in.Type != nil {
		q.Type = *in.Type
	}
	if q.Text == "" {
		return nil, ErrTextRequired
	}
	if !ValidQuestionType(q.Type) {
		return nil, ErrInvalidType
	}
	if err := s.repo.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id int64) error {
	return s.repo.DeleteQuestion(ctx, id)
}

func (s *Service) CreateOption(ctx context.Context, o *AnswerOption) error {
	if o.Text == "" {
		return ErrTextRequired
	}
	return s.repo.CreateOption(ctx, o)
}

func (s *Service) GetOption(ctx context.Context, id int64) (*AnswerOption, error) {
	return s.repo.GetOption(ctx, id)
}

func (s *Service) Options(ctx context.Context, questionID int64) ([]AnswerOption, error) {
	return s.repo.ListOptions(ctx, questionID)
}

func (s *Service) AllOptions(ctx context.Context) ([]AnswerOption, error) {
	return s.repo.ListAllOptions(ctx)
}

type OptionUpdate struct {
	QuestionID *int64
	Text       *string
}

func (s *Service) UpdateOption(ctx context.Context, id int64, in OptionUpdate) (*AnswerOption, error) {
	o, err := s.repo.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.QuestionID != nil {
		o.QuestionID = *in.QuestionID
	}
	if in.Text != nil {
		o.Text = *in.Text
	}
	if o.Text == "" {
		return nil, ErrTextRequired
	}
	if err := s.repo.UpdateOption(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) DeleteOption(ctx context.Context, id int64) error {
	return s.repo.DeleteOption(ctx, id)
}

func validateDates(start, end Date) error {
	if start.IsZero() || end.IsZero() {
		return ErrInvalidDates
	}
	if !end.After(start.Time) {
		return ErrInvalidDates
	}
	return nil
}
