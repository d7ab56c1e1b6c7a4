package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"survey-system/internal/domain/response"
	"survey-system/internal/domain/survey"
	"survey-system/internal/worker"
)

type indexData struct {
	Surveys  []survey.Survey
	Question string
	Sort     string
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	var filter survey.ListFilter
	q := r.URL.Query().Get("question")
	if q != "" {
		if id, err := strconv.ParseInt(q, 10, 64); err == nil {
			filter.QuestionID = &id
		}
	}
	filter.OrderBy = r.URL.Query().Get("sort")

	surveys, err := h.surveys.List(r.Context(), filter)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	now := time.Now()
	for i := range surveys {
		if err := h.surveys.RefreshStatus(r.Context(), &surveys[i], now); err != nil {
			h.renderError(w, r, err)
			return
		}
	}

	h.render(w, r, "index.html", pageData{Data: indexData{
		Surveys:  surveys,
		Question: q,
		Sort:     filter.OrderBy,
	}})
}

type questionView struct {
	Question survey.Question
	Options  []survey.AnswerOption
}

type detailData struct {
	Survey    *survey.Survey
	Questions []questionView
	Open      bool
}

func (h *Handler) loadSurveyPage(w http.ResponseWriter, r *http.Request) (*survey.Survey, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	sv, err := h.surveys.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return nil, false
	}
	if err := h.surveys.RefreshStatus(r.Context(), sv, time.Now()); err != nil {
		h.renderError(w, r, err)
		return nil, false
	}
	return sv, true
}

func (h *Handler) surveyDetail(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}

	questions, err := h.surveys.Questions(r.Context(), sv.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		qv := questionView{Question: q}
		if q.Choice() {
			opts, err := h.surveys.Options(r.Context(), q.ID)
			if err != nil {
				h.renderError(w, r, err)
				return
			}
			qv.Options = opts
		}
		views = append(views, qv)
	}

	h.render(w, r, "survey_detail.html", pageData{
		Viewer: v.User,
		Data: detailData{
			Survey:    sv,
			Questions: views,
			Open:      sv.IsActive && !sv.Expired(time.Now()),
		},
	})
}

// submitSurvey reads the dynamic form: q<id> carries option ids for
// choice questions and free text for text questions, so the field names
// are not known until the questions are loaded. Parsed by hand for that
// reason.
func (h *Handler) submitSurvey(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		setFlash(w, "invalid form submission")
		http.Redirect(w, r, "/surveys/"+strconv.FormatInt(sv.ID, 10), http.StatusSeeOther)
		return
	}

	questions, err := h.surveys.Questions(r.Context(), sv.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	var answers []response.Answer
	for _, q := range questions {
		field := "q" + strconv.FormatInt(q.ID, 10)
		values := r.PostForm[field]
		if len(values) == 0 {
			continue
		}

		a := response.Answer{QuestionID: q.ID}
		if q.Choice() {
			for _, raw := range values {
				optID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					continue
				}
				a.OptionIDs = append(a.OptionIDs, optID)
			}
			if len(a.OptionIDs) == 0 {
				continue
			}
		} else {
			a.Text = values[0]
		}
		answers = append(answers, a)
	}

	written, err := h.resps.Submit(r.Context(), v.ID, sv.ID, answers, time.Now())
	if err != nil {
		switch err {
		case response.ErrSurveyClosed:
			setFlash(w, "this survey is closed")
		case response.ErrOptionNotInQuestion, response.ErrQuestionNotInSurvey:
			setFlash(w, "invalid answer")
		default:
			h.renderError(w, r, err)
			return
		}
		http.Redirect(w, r, "/surveys/"+strconv.FormatInt(sv.ID, 10), http.StatusSeeOther)
		return
	}

	if written > 0 {
		select {
		case h.subCh <- worker.SubmissionEvent{SurveyID: sv.ID, UserID: v.ID, Rows: written}:
		default:
		}
	}
	setFlash(w, "thanks, your answers were recorded")
	http.Redirect(w, r, "/surveys/"+strconv.FormatInt(sv.ID, 10), http.StatusSeeOther)
}

type resultsData struct {
	Survey *survey.Survey
	Stats  *response.SurveyStats
}

func (h *Handler) surveyResults(w http.ResponseWriter, r *http.Request, v viewer) {
	sv, ok := h.loadSurveyPage(w, r)
	if !ok {
		return
	}
	stats, err := h.resps.Statistics(r.Context(), sv.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, "survey_results.html", pageData{
		Viewer: v.User,
		Data:   resultsData{Survey: sv, Stats: stats},
	})
}
