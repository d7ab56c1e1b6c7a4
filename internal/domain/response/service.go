package response

import (
	"context"
	"errors"
	"time"

	"survey-system/internal/domain/survey"
)

var (
	ErrInvalidResponse     = errors.New("exactly one of selected_option_id and text_response must be set")
	ErrTypeMismatch        = errors.New("response kind does not match question type")
	ErrOptionNotInQuestion = errors.New("option does not belong to question")
	ErrQuestionNotInSurvey = errors.New("question does not belong to survey")
	ErrSurveyClosed        = errors.New("survey is closed")
)

type Service struct {
	repo    Repository
	surveys SurveyStore
}

func NewService(repo Repository, surveys SurveyStore) *Service {
	return &Service{repo: repo, surveys: surveys}
}

type CreateInput struct {
	QuestionID       int64
	SelectedOptionID *int64
	TextResponse     *string
}

// Create stores a single response row for userID, checking that the
// populated field matches the question's type.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*Response, error) {
	q, err := s.surveys.GetQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}

	hasOption := in.SelectedOptionID != nil
	hasText := in.TextResponse != nil && *in.TextResponse != ""
	if hasOption == hasText {
		return nil, ErrInvalidResponse
	}
	if q.Choice() != hasOption {
		return nil, ErrTypeMismatch
	}

	if hasOption {
		opt, err := s.surveys.GetOption(ctx, *in.SelectedOptionID)
		if err != nil {
			return nil, err
		}
		if opt.QuestionID != q.ID {
			return nil, ErrOptionNotInQuestion
		}
	}

	r := &Response{
		QuestionID:       in.QuestionID,
		SelectedOptionID: in.SelectedOptionID,
		UserID:           &userID,
	}
	if hasText {
		r.TextResponse = in.TextResponse
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Response, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListOwn(ctx context.Context, userID int64) ([]Response, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListBySurvey(ctx context.Context, surveyID int64) ([]Response, error) {
	if _, err := s.surveys.GetByID(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.repo.ListBySurvey(ctx, surveyID)
}

func (s *Service) ListByQuestion(ctx context.Context, surveyID, questionID int64) ([]Response, error) {
	if _, err := s.surveys.GetByID(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.repo.ListByQuestion(ctx, surveyID, questionID)
}

// Answer is one submitted answer within a survey submission.
// Choice questions carry option ids, text questions carry free text.
type Answer struct {
	QuestionID int64
	OptionIDs  []int64
	Text       string
}

// Submit stores the whole submission for userID, one row per selected
// option and one row per non-empty text answer. Rows are inserted in
// order without a wrapping transaction; a mid-loop failure leaves the
// earlier rows persisted. Returns the number of rows written.
func (s *Service) Submit(ctx context.Context, userID, surveyID int64, answers []Answer, now time.Time) (int, error) {
	sv, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return 0, err
	}
	if !sv.IsActive || sv.Expired(now) {
		return 0, ErrSurveyClosed
	}

	questions, err := s.surveys.ListQuestions(ctx, surveyID)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]*survey.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	written := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return written, ErrQuestionNotInSurvey
		}

		if !q.Choice() {
			if a.Text == "" {
				continue
			}
			text := a.Text
			r := &Response{QuestionID: q.ID, TextResponse: &text, UserID: &userID}
			if err := s.repo.Create(ctx, r); err != nil {
				return written, err
			}
			written++
			continue
		}

		if len(a.OptionIDs) == 0 {
			continue
		}
		opts, err := s.surveys.ListOptions(ctx, q.ID)
		if err != nil {
			return written, err
		}
		valid := make(map[int64]bool, len(opts))
		for _, o := range opts {
			valid[o.ID] = true
		}
		for _, optID := range a.OptionIDs {
			if !valid[optID] {
				return written, ErrOptionNotInQuestion
			}
			id := optID
			r := &Response{QuestionID: q.ID, SelectedOptionID: &id, UserID: &userID}
			if err := s.repo.Create(ctx, r); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
