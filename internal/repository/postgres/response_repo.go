package postgres

import (
	"context"
	"database/sql"

	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
)

type ResponseRepo struct {
	db *sql.DB
}

func NewResponseRepo(db *sql.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

func (r *ResponseRepo) Create(ctx context.Context, resp *response.Response) error {
	query := `
        INSERT INTO user_responses (question_id, selected_option_id, text_response, user_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, query,
		resp.QuestionID, resp.SelectedOptionID, resp.TextResponse, resp.UserID,
	).Scan(&resp.ID, &resp.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return survey.ErrBadReference
		}
		return err
	}
	return nil
}

func (r *ResponseRepo) GetByID(ctx context.Context, id int64) (*response.Response, error) {
	resp := &response.Response{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, question_id, selected_option_id, text_response, user_id, created_at
        FROM user_responses WHERE id = $1
    `, id).Scan(&resp.ID, &resp.QuestionID, &resp.SelectedOptionID,
		&resp.TextResponse, &resp.UserID, &resp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *ResponseRepo) ListByUser(ctx context.Context, userID int64) ([]response.Response, error) {
	return r.queryResponses(ctx, `
        SELECT id, question_id, selected_option_id, text_response, user_id, created_at
        FROM user_responses WHERE user_id = $1 ORDER BY id
    `, userID)
}

func (r *ResponseRepo) ListBySurvey(ctx context.Context, surveyID int64) ([]response.Response, error) {
	return r.queryResponses(ctx, `
        SELECT r.id, r.question_id, r.selected_option_id, r.text_response, r.user_id, r.created_at
        FROM user_responses r
        JOIN questions q ON q.id = r.question_id
        WHERE q.survey_id = $1
        ORDER BY r.id
    `, surveyID)
}

func (r *ResponseRepo) ListByQuestion(ctx context.Context, surveyID, questionID int64) ([]response.Response, error) {
	return r.queryResponses(ctx, `
        SELECT r.id, r.question_id, r.selected_option_id, r.text_response, r.user_id, r.created_at
        FROM user_responses r
        JOIN questions q ON q.id = r.question_id
        WHERE q.survey_id = $1 AND r.question_id = $2
        ORDER BY r.id
    `, surveyID, questionID)
}

func (r *ResponseRepo) queryResponses(ctx context.Context, query string, args ...any) ([]response.Response, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []response.Response
	for rows.Next() {
		var resp response.Response
		if err := rows.Scan(&resp.ID, &resp.QuestionID, &resp.SelectedOptionID,
			&resp.TextResponse, &resp.UserID, &resp.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, resp)
	}
	return res, rows.Err()
}

// CountBySurvey counts response rows, not submission events: a user
// picking three options of a multiple-choice question contributes
// three to the total.
func (r *ResponseRepo) CountBySurvey(ctx context.Context, surveyID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*)
        FROM user_responses r
        JOIN questions q ON q.id = r.question_id
        WHERE q.survey_id = $1
    `, surveyID).Scan(&n)
	return n, err
}

func (r *ResponseRepo) CountByQuestion(ctx context.Context, questionID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_responses WHERE question_id = $1`, questionID).Scan(&n)
	return n, err
}

func (r *ResponseRepo) CountByOption(ctx context.Context, questionID int64) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT selected_option_id, COUNT(*)
        FROM user_responses
        WHERE question_id = $1 AND selected_option_id IS NOT NULL
        GROUP BY selected_option_id
    `, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]int64)
	for rows.Next() {
		var optID, c int64
		if err := rows.Scan(&optID, &c); err != nil {
			return nil, err
		}
		res[optID] = c
	}
	return res, rows.Err()
}

func (r *ResponseRepo) TextAnswers(ctx context.Context, questionID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT text_response
        FROM user_responses
        WHERE question_id = $1 AND text_response IS NOT NULL AND text_response <> ''
        ORDER BY id
    `, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
