package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ajg/form"

	"survey-system/internal/domain/user"
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

type registerForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

type passwordForm struct {
	OldPassword string `form:"old_password"`
	NewPassword string `form:"new_password"`
}

type profileForm struct {
	Username string `form:"username"`
	Email    string `form:"email"`
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.viewer(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, "login.html", pageData{Data: r.URL.Query().Get("next")})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var f loginForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.render(w, r, "login.html", pageData{Error: "invalid form submission"})
		return
	}

	u, err := h.users.Authenticate(r.Context(), f.Username, f.Password)
	if err != nil {
		h.render(w, r, "login.html", pageData{
			Error: "invalid username or password",
			Data:  f.Next,
		})
		return
	}
	if err := h.setSession(w, u); err != nil {
		h.render(w, r, "login.html", pageData{Error: "could not start session"})
		return
	}

	// Only local paths may be used as a redirect target; a bare "/"
	// prefix is not enough because "//host" is protocol-relative.
	next := f.Next
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) registerPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.viewer(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, "register.html", pageData{})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var f registerForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		h.render(w, r, "register.html", pageData{Error: "invalid form submission"})
		return
	}

	u, err := h.users.Register(r.Context(), f.Username, f.Email, f.Password)
	if err != nil {
		msg := "could not create account"
		switch {
		case errors.Is(err, user.ErrUsernameTaken):
			msg = "username is already taken"
		case errors.Is(err, user.ErrMissingFields):
			msg = "username and password are required"
		}
		h.render(w, r, "register.html", pageData{Error: msg})
		return
	}
	if err := h.setSession(w, u); err != nil {
		h.render(w, r, "register.html", pageData{Error: "could not start session"})
		return
	}
	setFlash(w, "welcome, "+u.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type profileData struct {
	User      *user.User
	Responses []responseRow
}

type responseRow struct {
	ID       int64
	Question string
	Answer   string
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, v viewer) {
	own, err := h.resps.ListOwn(r.Context(), v.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	rows := make([]responseRow, 0, len(own))
	for _, resp := range own {
		row := responseRow{ID: resp.ID}
		if q, err := h.surveys.GetQuestion(r.Context(), resp.QuestionID); err == nil {
			row.Question = q.Text
		}
		switch {
		case resp.SelectedOptionID != nil:
			if opt, err := h.surveys.GetOption(r.Context(), *resp.SelectedOptionID); err == nil {
				row.Answer = opt.Text
			}
		case resp.TextResponse != nil:
			row.Answer = *resp.TextResponse
		}
		rows = append(rows, row)
	}

	h.render(w, r, "profile.html", pageData{
		Viewer: v.User,
		Data:   profileData{User: v.User, Responses: rows},
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, v viewer) {
	var f profileForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		setFlash(w, "invalid form submission")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	in := user.UpdateInput{Email: &f.Email}
	if f.Username != "" {
		in.Username = &f.Username
	}
	_, err := h.users.Update(r.Context(), v.ID, in)
	switch {
	case errors.Is(err, user.ErrUsernameTaken):
		setFlash(w, "username is already taken")
	case err != nil:
		setFlash(w, "could not update profile")
	default:
		setFlash(w, "profile updated")
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request, v viewer) {
	var f passwordForm
	if err := form.NewDecoder(r.Body).Decode(&f); err != nil {
		setFlash(w, "invalid form submission")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	err := h.users.ChangePassword(r.Context(), v.ID, f.OldPassword, f.NewPassword)
	switch {
	case errors.Is(err, user.ErrWrongPassword):
		setFlash(w, "current password is wrong")
	case err != nil:
		setFlash(w, "could not change password")
	default:
		setFlash(w, "password changed")
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
