package response

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"survey-system/internal/domain/survey"
)

type memoryResponseRepo struct {
	mu     sync.Mutex
	rows   map[int64]*Response
	nextID int64
}

func newMemoryResponseRepo() *memoryResponseRepo {
	return &memoryResponseRepo{rows: make(map[int64]*Response), nextID: 1}
}

func (r *memoryResponseRepo) Create(ctx context.Context, resp *Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp.ID = r.nextID
	r.nextID++
	resp.CreatedAt = time.Now()
	cp := *resp
	r.rows[resp.ID] = &cp
	return nil
}

func (r *memoryResponseRepo) GetByID(ctx context.Context, id int64) (*Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *resp
	return &cp, nil
}

func (r *memoryResponseRepo) ListByUser(ctx context.Context, userID int64) ([]Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []Response{}
	for _, resp := range r.rows {
		if resp.UserID != nil && *resp.UserID == userID {
			res = append(res, *resp)
		}
	}
	return res, nil
}

type memorySurveyStore struct {
	surveys   map[int64]*survey.Survey
	questions map[int64]*survey.Question
	options   map[int64]*survey.AnswerOption
}

func (r *memoryResponseRepo) all() []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Response, 0, len(r.rows))
	for _, resp := range r.rows {
		res = append(res, *resp)
	}
	return res
}

func (r *memoryResponseRepo) ListBySurvey(ctx context.Context, surveyID int64) ([]Response, error) {
	return r.all(), nil
}

func (r *memoryResponseRepo) ListByQuestion(ctx context.Context, surveyID, questionID int64) ([]Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []Response{}
	for _, resp := range r.rows {
		if resp.QuestionID == questionID {
			res = append(res, *resp)
		}
	}
	return res, nil
}

func (r *memoryResponseRepo) CountBySurvey(ctx context.Context, surveyID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *memoryResponseRepo) CountByQuestion(ctx context.Context, questionID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, resp := range r.rows {
		if resp.QuestionID == questionID {
			n++
		}
	}
	return n, nil
}

func (r *memoryResponseRepo) CountByOption(ctx context.Context, questionID int64) (map[int64]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[int64]int64)
	for _, resp := range r.rows {
		if resp.QuestionID == questionID && resp.SelectedOptionID != nil {
			counts[*resp.SelectedOptionID]++
		}
	}
	return counts, nil
}

func (r *memoryResponseRepo) TextAnswers(ctx context.Context, questionID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []string{}
	for _, resp := range r.rows {
		if resp.QuestionID == questionID && resp.TextResponse != nil && *resp.TextResponse != "" {
			res = append(res, *resp.TextResponse)
		}
	}
	return res, nil
}

func (s *memorySurveyStore) GetByID(ctx context.Context, id int64) (*survey.Survey, error) {
	sv, ok := s.surveys[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sv
	return &cp, nil
}

func (s *memorySurveyStore) GetQuestion(ctx context.Context, id int64) (*survey.Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (s *memorySurveyStore) GetOption(ctx context.Context, id int64) (*survey.AnswerOption, error) {
	o, ok := s.options[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (s *memorySurveyStore) ListQuestions(ctx context.Context, surveyID int64) ([]survey.Question, error) {
	res := []survey.Question{}
	for _, q := range s.questions {
		if q.SurveyID == surveyID {
			res = append(res, *q)
		}
	}
	return res, nil
}

func (s *memorySurveyStore) ListOptions(ctx context.Context, questionID int64) ([]survey.AnswerOption, error) {
	res := []survey.AnswerOption{}
	for _, o := range s.options {
		if o.QuestionID == questionID {
			res = append(res, *o)
		}
	}
	return res, nil
}

// fixture: one survey running 2025-03-01 to 2025-03-10, a single-choice
// question with Yes/No options, a multiple-choice question and a text
// question.
func newFixture() (*memoryResponseRepo, *memorySurveyStore, *Service) {
	store := &memorySurveyStore{
		surveys: map[int64]*survey.Survey{
			1: {
				ID:        1,
				Title:     "Satisfaction",
				StartDate: survey.NewDate(2025, 3, 1),
				EndDate:   survey.NewDate(2025, 3, 10),
				IsActive:  true,
			},
		},
		questions: map[int64]*survey.Question{
			10: {ID: 10, SurveyID: 1, Text: "Are you satisfied?", Type: survey.TypeSingle},
			11: {ID: 11, SurveyID: 1, Text: "Which features do you use?", Type: survey.TypeMultiple},
			12: {ID: 12, SurveyID: 1, Text: "Anything else?", Type: survey.TypeText},
		},
		options: map[int64]*survey.AnswerOption{
			100: {ID: 100, QuestionID: 10, Text: "Yes"},
			101: {ID: 101, QuestionID: 10, Text: "No"},
			102: {ID: 102, QuestionID: 11, Text: "Search"},
			103: {ID: 103, QuestionID: 11, Text: "Export"},
		},
	}
	repo := newMemoryResponseRepo()
	return repo, store, NewService(repo, store)
}

func during() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) }

func TestCreateRequiresExactlyOneField(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()
	opt := int64(100)
	text := "hello"

	if _, err := svc.Create(ctx, 1, CreateInput{QuestionID: 10}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected invalid response error, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, CreateInput{QuestionID: 10, SelectedOptionID: &opt, TextResponse: &text}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected invalid response error, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, CreateInput{QuestionID: 10, TextResponse: &text}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for text on a choice question, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, CreateInput{QuestionID: 12, SelectedOptionID: &opt}); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for option on a text question, got %v", err)
	}

	foreign := int64(102)
	if _, err := svc.Create(ctx, 1, CreateInput{QuestionID: 10, SelectedOptionID: &foreign}); !errors.Is(err, ErrOptionNotInQuestion) {
		t.Fatalf("expected foreign option error, got %v", err)
	}

	resp, err := svc.Create(ctx, 7, CreateInput{QuestionID: 10, SelectedOptionID: &opt})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if resp.UserID == nil || *resp.UserID != 7 {
		t.Fatalf("response must record its author")
	}
}

func TestSubmitAndStatistics(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()

	written, err := svc.Submit(ctx, 7, 1, []Answer{
		{QuestionID: 10, OptionIDs: []int64{100}},
	}, during())
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if written != 1 {
		t.Fatalf("expected 1 row, got %d", written)
	}

	stats, err := svc.Statistics(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected statistics error: %v", err)
	}
	if stats.TotalResponses != 1 {
		t.Fatalf("expected total 1, got %d", stats.TotalResponses)
	}

	var satisfied *QuestionStats
	for i := range stats.ByQuestion {
		if stats.ByQuestion[i].QuestionID == 10 {
			satisfied = &stats.ByQuestion[i]
		}
	}
	if satisfied == nil {
		t.Fatalf("question 10 missing from statistics")
	}
	if satisfied.Options["Yes"] != 1 {
		t.Fatalf("expected Yes=1, got %v", satisfied.Options)
	}
	if got, ok := satisfied.Options["No"]; !ok || got != 0 {
		t.Fatalf("unchosen options must report zero, got %v", satisfied.Options)
	}
}

func TestSubmitMultipleAndText(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()

	written, err := svc.Submit(ctx, 7, 1, []Answer{
		{QuestionID: 10, OptionIDs: []int64{101}},
		{QuestionID: 11, OptionIDs: []int64{102, 103}},
		{QuestionID: 12, Text: "more exports please"},
	}, during())
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if written != 4 {
		t.Fatalf("expected 4 rows, got %d", written)
	}

	stats, err := svc.Statistics(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected statistics error: %v", err)
	}
	if stats.TotalResponses != 4 {
		t.Fatalf("expected total 4, got %d", stats.TotalResponses)
	}
	for _, qs := range stats.ByQuestion {
		switch qs.QuestionID {
		case 11:
			var sum int64
			for _, n := range qs.Options {
				sum += n
			}
			if sum != qs.Responses {
				t.Fatalf("option counts (%d) must sum to the question total (%d)", sum, qs.Responses)
			}
		case 12:
			if len(qs.Answers) != 1 || qs.Answers[0] != "more exports please" {
				t.Fatalf("text answers not reported: %v", qs.Answers)
			}
		}
	}
}

func TestSubmitSkipsEmptyAnswers(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()

	written, err := svc.Submit(ctx, 7, 1, []Answer{
		{QuestionID: 12, Text: ""},
		{QuestionID: 11},
	}, during())
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if written != 0 {
		t.Fatalf("blank answers must not produce rows, got %d", written)
	}
}

func TestSubmitClosedSurvey(t *testing.T) {
	_, store, svc := newFixture()
	ctx := context.Background()

	afterEnd := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	if _, err := svc.Submit(ctx, 7, 1, []Answer{{QuestionID: 10, OptionIDs: []int64{100}}}, afterEnd); !errors.Is(err, ErrSurveyClosed) {
		t.Fatalf("expected closed error after end date, got %v", err)
	}

	store.surveys[1].IsActive = false
	if _, err := svc.Submit(ctx, 7, 1, []Answer{{QuestionID: 10, OptionIDs: []int64{100}}}, during()); !errors.Is(err, ErrSurveyClosed) {
		t.Fatalf("expected closed error for deactivated survey, got %v", err)
	}
}

func TestSubmitRejectsForeignReferences(t *testing.T) {
	_, store, svc := newFixture()
	ctx := context.Background()

	// a question living in another survey
	store.surveys[2] = &survey.Survey{
		ID:        2,
		Title:     "Other",
		StartDate: survey.NewDate(2025, 3, 1),
		EndDate:   survey.NewDate(2025, 3, 10),
		IsActive:  true,
	}
	store.questions[20] = &survey.Question{ID: 20, SurveyID: 2, Text: "Other q", Type: survey.TypeSingle}

	if _, err := svc.Submit(ctx, 7, 1, []Answer{{QuestionID: 20, OptionIDs: []int64{100}}}, during()); !errors.Is(err, ErrQuestionNotInSurvey) {
		t.Fatalf("expected foreign question error, got %v", err)
	}
	if _, err := svc.Submit(ctx, 7, 1, []Answer{{QuestionID: 10, OptionIDs: []int64{102}}}, during()); !errors.Is(err, ErrOptionNotInQuestion) {
		t.Fatalf("expected foreign option error, got %v", err)
	}
}

func TestStatisticsMissingSurvey(t *testing.T) {
	_, _, svc := newFixture()
	if _, err := svc.Statistics(context.Background(), 99); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
