package postgres

import (
	"context"
	"database/sql"

	"survey-system/internal/domain/survey"
)

type SurveyRepo struct {
	db *sql.DB
}

func NewSurveyRepo(db *sql.DB) *SurveyRepo {
	return &SurveyRepo{db: db}
}

func (r *SurveyRepo) Create(ctx context.Context, s *survey.Survey) error {
	query := `
        INSERT INTO surveys (title, description, start_date, end_date, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	return r.db.QueryRowContext(ctx, query,
		s.Title, s.Description, s.StartDate, s.EndDate, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *SurveyRepo) GetByID(ctx context.Context, id int64) (*survey.Survey, error) {
	s := &survey.Survey{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, title, description, start_date, end_date, is_active, created_at, updated_at
        FROM surveys WHERE id = $1
    `, id).Scan(
		&s.ID, &s.Title, &s.Description, &s.StartDate, &s.EndDate,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ORDER BY cannot take a placeholder; keys are whitelisted here even
// though the service already normalizes them.
var surveyOrderings = map[string]string{
	"start_date":  "s.start_date ASC",
	"-start_date": "s.start_date DESC",
	"end_date":    "s.end_date ASC",
	"-end_date":   "s.end_date DESC",
}

func (r *SurveyRepo) List(ctx context.Context, f survey.ListFilter) ([]survey.Survey, error) {
	orderBy, ok := surveyOrderings[f.OrderBy]
	if !ok {
		orderBy = surveyOrderings["start_date"]
	}

	query := `
        SELECT DISTINCT s.id, s.title, s.description, s.start_date, s.end_date,
               s.is_active, s.created_at, s.updated_at
        FROM surveys s
    `
	var rows *sql.Rows
	var err error

	if f.QuestionID != nil {
		query += " JOIN questions q ON q.survey_id = s.id WHERE q.id = $1 ORDER BY " + orderBy
		rows, err = r.db.QueryContext(ctx, query, *f.QuestionID)
	} else {
		query += " ORDER BY " + orderBy
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []survey.Survey
	for rows.Next() {
		var s survey.Survey
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.StartDate, &s.EndDate,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *SurveyRepo) Update(ctx context.Context, s *survey.Survey) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE surveys
        SET title = $1, description = $2, start_date = $3, end_date = $4,
            is_active = $5, updated_at = now()
        WHERE id = $6
    `, s.Title, s.Description, s.StartDate, s.EndDate, s.IsActive, s.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete cascades to questions, answer options, and responses via the
// schema's foreign keys.
func (r *SurveyRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SurveyRepo) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	return err
}

func (r *SurveyRepo) CreateQuestion(ctx context.Context, q *survey.Question) error {
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO questions (survey_id, text, question_type)
        VALUES ($1, $2, $3)
        RETURNING id
    `, q.SurveyID, q.Text, q.Type).Scan(&q.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return survey.ErrBadReference
		}
		return err
	}
	return nil
}

func (r *SurveyRepo) GetQuestion(ctx context.Context, id int64) (*survey.Question, error) {
	q := &survey.Question{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, survey_id, text, question_type FROM questions WHERE id = $1
    `, id).Scan(&q.ID, &q.SurveyID, &q.Text, &q.Type)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *SurveyRepo) ListQuestions(ctx context.Context, surveyID int64) ([]survey.Question, error) {
	return r.queryQuestions(ctx, `
        SELECT id, survey_id, text, question_type
        FROM questions WHERE survey_id = $1 ORDER BY id
    `, surveyID)
}

func (r *SurveyRepo) ListAllQuestions(ctx context.Context) ([]survey.Question, error) {
	return r.queryQuestions(ctx, `
        SELECT id, survey_id, text, question_type FROM questions ORDER BY id
    `)
}

func (r *SurveyRepo) queryQuestions(ctx context.Context, query string, args ...any) ([]survey.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []survey.Question
	for rows.Next() {
		var q survey.Question
		if err := rows.Scan(&q.ID, &q.SurveyID, &q.Text, &q.Type); err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

func (r *SurveyRepo) UpdateQuestion(ctx context.Context, q *survey.Question) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE questions SET survey_id = $1, text = $2, question_type = $3 WHERE id = $4
    `, q.SurveyID, q.Text, q.Type, q.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return survey.ErrBadReference
		}
		return err
	}
	return requireRow(res)
}

func (r *SurveyRepo) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SurveyRepo) CreateOption(ctx context.Context, o *survey.AnswerOption) error {
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO answer_options (question_id, text)
        VALUES ($1, $2)
        RETURNING id
    `, o.QuestionID, o.Text).Scan(&o.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return survey.ErrBadReference
		}
		return err
	}
	return nil
}

func (r *SurveyRepo) GetOption(ctx context.Context, id int64) (*survey.AnswerOption, error) {
	o := &survey.AnswerOption{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, question_id, text FROM answer_options WHERE id = $1
    `, id).Scan(&o.ID, &o.QuestionID, &o.Text)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *SurveyRepo) ListOptions(ctx context.Context, questionID int64) ([]survey.AnswerOption, error) {
	return r.queryOptions(ctx, `
        SELECT id, question_id, text
        FROM answer_options WHERE question_id = $1 ORDER BY id
    `, questionID)
}

func (r *SurveyRepo) ListAllOptions(ctx context.Context) ([]survey.AnswerOption, error) {
	return r.queryOptions(ctx, `
        SELECT id, question_id, text FROM answer_options ORDER BY id
    `)
}

func (r *SurveyRepo) queryOptions(ctx context.Context, query string, args ...any) ([]survey.AnswerOption, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []survey.AnswerOption
	for rows.Next() {
		var o survey.AnswerOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r *SurveyRepo) UpdateOption(ctx context.Context, o *survey.AnswerOption) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE answer_options SET question_id = $1, text = $2 WHERE id = $3
    `, o.QuestionID, o.Text, o.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return survey.ErrBadReference
		}
		return err
	}
	return requireRow(res)
}

func (r *SurveyRepo) DeleteOption(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM answer_options WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
