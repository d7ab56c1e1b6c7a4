package response

import "context"

type QuestionStats struct {
	QuestionID int64            `json:"question_id"`
	Text       string           `json:"text"`
	Type       string           `json:"type"`
	Responses  int64            `json:"responses"`
	Options    map[string]int64 `json:"options,omitempty"`
	Answers    []string         `json:"answers,omitempty"`
}

type SurveyStats struct {
	SurveyID       int64           `json:"survey_id"`
	TotalResponses int64           `json:"total_responses"`
	ByQuestion     []QuestionStats `json:"by_question"`
}

// Statistics builds the per-question report for a survey: option text
// to row count for choice questions (zero counts included for every
// option), the non-empty text answers in retrieval order for text
// questions, and a survey-wide row total. A missing survey surfaces as
// the store's not-found error with no partial result.
func (s *Service) Statistics(ctx context.Context, surveyID int64) (*SurveyStats, error) {
	sv, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountBySurvey(ctx, sv.ID)
	if err != nil {
		return nil, err
	}

	questions, err := s.surveys.ListQuestions(ctx, sv.ID)
	if err != nil {
		return nil, err
	}

	stats := &SurveyStats{
		SurveyID:       sv.ID,
		TotalResponses: total,
		ByQuestion:     make([]QuestionStats, 0, len(questions)),
	}

	for _, q := range questions {
		count, err := s.repo.CountByQuestion(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		qs := QuestionStats{
			QuestionID: q.ID,
			Text:       q.Text,
			Type:       q.Type,
			Responses:  count,
		}

		if q.Choice() {
			counts, err := s.repo.CountByOption(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			opts, err := s.surveys.ListOptions(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			qs.Options = make(map[string]int64, len(opts))
			for _, o := range opts {
				qs.Options[o.Text] = counts[o.ID]
			}
		} else {
			answers, err := s.repo.TextAnswers(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			qs.Answers = answers
		}

		stats.ByQuestion = append(stats.ByQuestion, qs)
	}

	return stats, nil
}
