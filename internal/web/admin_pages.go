package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ajg/form"
	"github.com/go-chi/chi/v5"

	"survey-system/internal/domain/survey"
	"survey-system/internal/domain/user"
)

type surveyForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	IsActive    bool   `form:"is_active"`
}

type questionForm struct {
	Text    string `form:"text"`
	Type    string `form:"type"`
	Options string `form:"options"`
}

type userForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
	IsStaff  bool   `form:"is_staff"`
}

type surveyFormData struct {
	Survey  *survey.Survey
	Ignored []string
}

func (h *Handler) newSurveyPage(w http.ResponseWriter, r *http.Request, v viewer) {
	h.render(w, r, "survey_form.html", pageData{Viewer: v.User, Data: surveyFormData{}})
}

func (h *Handler) createSurvey(w http.ResponseWriter, r *http.Request, v viewer) {
	var f surveyForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.render(w, r, "survey_form.html", pageData{
			Viewer: v.User, Error: "invalid form submission", Data: surveyFormData{},
		})
		return
	}

	sv := &survey.Survey{Title: f.Title, Description: f.Description}
	var err error
	if sv.StartDate, err = survey.ParseDate(f.StartDate); err != nil {
		h.renderSurveyForm(w, r, v, nil, "start date must be YYYY-MM-DD")
		return
	}
	if sv.EndDate, err = survey.ParseDate(f.EndDate); err != nil {
		h.renderSurveyForm(w, r, v, nil, "end date must be YYYY-MM-DD")
		return
	}

	if err := h.surveys.Create(r.Context(), sv); err != nil {
		h.renderSurveyForm(w, r, v, nil, surveyErrorMessage(err))
		return
	}
	setFlash(w, "survey created")
	http.Redirect(w, r, "/surveys/"+strconv.FormatInt(sv.ID, 10)+"/edit", http.StatusSeeOther)
}

func (h *Handler) editSurveyPage(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}
	h.renderSurveyForm(w, r, v, sv, "")
}

func (h *Handler) editSurvey(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}

	var f surveyForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.renderSurveyForm(w, r, v, sv, "invalid form submission")
		return
	}

	in := survey.UpdateInput{
		Title:       &f.Title,
		Description: &f.Description,
		IsActive:    &f.IsActive,
	}
	if f.StartDate != "" {
		d, err := survey.ParseDate(f.StartDate)
		if err != nil {
			h.renderSurveyForm(w, r, v, sv, "start date must be YYYY-MM-DD")
			return
		}
		in.StartDate = &d
	}
	if f.EndDate != "" {
		d, err := survey.ParseDate(f.EndDate)
		if err != nil {
			h.renderSurveyForm(w, r, v, sv, "end date must be YYYY-MM-DD")
			return
		}
		in.EndDate = &d
	}

	updated, ignored, err := h.surveys.Update(r.Context(), sv.ID, in)
	if err != nil {
		h.renderSurveyForm(w, r, v, sv, surveyErrorMessage(err))
		return
	}

	msg := "survey saved"
	if len(ignored) > 0 {
		msg = "survey saved; the start date cannot be changed and was kept as " +
			updated.StartDate.String()
	}
	setFlash(w, msg)
	http.Redirect(w, r, "/surveys/"+strconv.FormatInt(updated.ID, 10)+"/edit", http.StatusSeeOther)
}

func (h *Handler) renderSurveyForm(w http.ResponseWriter, r *http.Request, v viewer, sv *survey.Survey, errMsg string) {
	h.render(w, r, "survey_form.html", pageData{
		Viewer: v.User,
		Error:  errMsg,
		Data:   surveyFormData{Survey: sv},
	})
}

func surveyErrorMessage(err error) string {
	switch {
	case errors.Is(err, survey.ErrTitleRequired):
		return "title is required"
	case errors.Is(err, survey.ErrInvalidDates):
		return "both dates are required and the end date must come after the start date"
	default:
		return "could not save survey"
	}
}

func (h *Handler) deleteSurvey(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}
	if err := h.surveys.Delete(r.Context(), sv.ID); err != nil {
		h.renderError(w, r, err)
		return
	}
	setFlash(w, "survey deleted")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type questionFormData struct {
	Survey *survey.Survey
	Types  []string
}

func questionTypes() []string {
	return []string{survey.TypeSingle, survey.TypeMultiple, survey.TypeText}
}

func (h *Handler) newQuestionPage(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}
	h.render(w, r, "question_form.html", pageData{
		Viewer: v.User,
		Data:   questionFormData{Survey: sv, Types: questionTypes()},
	})
}

// createQuestion stores the question and its options in one step. The
// options textarea holds one option per line; blank lines are skipped.
// Text questions ignore the textarea entirely.
func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}

	var f questionForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.renderQuestionForm(w, r, v, sv, "invalid form submission")
		return
	}

	q := &survey.Question{SurveyID: sv.ID, Text: f.Text, Type: f.Type}
	if err := h.surveys.CreateQuestion(r.Context(), q); err != nil {
		msg := "could not save question"
		switch {
		case errors.Is(err, survey.ErrTextRequired):
			msg = "question text is required"
		case errors.Is(err, survey.ErrInvalidType):
			msg = "unknown question type"
		}
		h.renderQuestionForm(w, r, v, sv, msg)
		return
	}

	if q.Choice() {
		for _, line := range strings.Split(f.Options, "\n") {
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			o := &survey.AnswerOption{QuestionID: q.ID, Text: text}
			if err := h.surveys.CreateOption(r.Context(), o); err != nil {
				h.renderQuestionForm(w, r, v, sv, "question saved but an option failed: "+text)
				return
			}
		}
	}

	setFlash(w, "question added")
	http.Redirect(w, r, "/surveys/"+strconv.FormatInt(sv.ID, 10), http.StatusSeeOther)
}

func (h *Handler) renderQuestionForm(w http.ResponseWriter, r *http.Request, v viewer, sv *survey.Survey, errMsg string) {
	h.render(w, r, "question_form.html", pageData{
		Viewer: v.User,
		Error:  errMsg,
		Data:   questionFormData{Survey: sv, Types: questionTypes()},
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request, v viewer) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, "users.html", pageData{Viewer: v.User, Data: users})
}

type userFormData struct {
	User *user.User
}

func (h *Handler) newUserPage(w http.ResponseWriter, r *http.Request, v viewer) {
	h.render(w, r, "user_form.html", pageData{Viewer: v.User, Data: userFormData{}})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request, v viewer) {
	var f userForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.render(w, r, "user_form.html", pageData{Viewer: v.User, Error: "invalid form submission", Data: userFormData{}})
		return
	}

	_, err := h.users.Create(r.Context(), f.Username, f.Email, f.Password, f.IsStaff)
	if err != nil {
		msg := "could not create user"
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			msg = "username is already taken"
		case errors.Is(err, user.ErrMissingFields):
			msg = "username and password are required"
		}
		h.render(w, r, "user_form.html", pageData{Viewer: v.User, Error: msg, Data: userFormData{}})
		return
	}
	setFlash(w, "user created")
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) loadUserPage(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return nil, false
	}
	return u, true
}

func (h *Handler) editUserPage(w http.ResponseWriter, r *http.Request, v viewer) {
	u, ok := h.loadUserPage(w, r)
	if !ok {
		return
	}
	h.render(w, r, "user_form.html", pageData{Viewer: v.User, Data: userFormData{User: u}})
}

// editUser updates username/email/staff flag; a non-empty password
// field resets the password without the old one.
func (h *Handler) editUser(w http.ResponseWriter, r *http.Request, v viewer) {
	u, ok := h.loadUserPage(w, r)
	if !ok {
		return
	}

	var f userForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.render(w, r, "user_form.html", pageData{Viewer: v.User, Error: "invalid form submission", Data: userFormData{User: u}})
		return
	}

	in := user.UpdateInput{Email: &f.Email, IsStaff: &f.IsStaff}
	if f.Username != "" {
		in.Username = &f.Username
	}
	if f.Password != "" {
		in.Password = &f.Password
	}
	if _, err := h.users.Update(r.Context(), u.ID, in); err != nil {
		msg := "could not update user"
		if errors.Is(err, user.ErrUsernameTaken) {
			msg = "username is already taken"
		}
		h.render(w, r, "user_form.html", pageData{Viewer: v.User, Error: msg, Data: userFormData{User: u}})
		return
	}
	setFlash(w, "user updated")
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, v viewer) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if id == v.ID {
		setFlash(w, "you cannot delete your own account")
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.renderError(w, r, err)
		return
	}
	setFlash(w, "user deleted")
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}
