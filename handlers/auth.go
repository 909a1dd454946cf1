package handlers

import (
	"context"
	"errors"
	"net/http"

	"taskboard/apperrors"
	"taskboard/authform"
	"taskboard/client"
	"taskboard/models"
	"taskboard/uistate"
	"taskboard/utilities"
)

// EntryPage renders the sign-in form at "/".
func (s *Server) EntryPage(w http.ResponseWriter, r *http.Request) {
	s.views.render(w, http.StatusOK, "entry.html", entryView{})
}

// SetSessionHandler is the session propagation endpoint: it takes the token
// pair obtained by the client and turns it into server cookies.
func (s *Server) SetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	const op = "handlers.SetSession"
	if err := requireJSON(r, op); err != nil {
		writeError(w, err)
		return
	}

	var pair models.TokenPair
	if err := decodeJSON(w, r, op, &pair); err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.sessions.Save(w, r, pair)
	if err != nil {
		utilities.LogDebug("session propagation rejected: %v", err)
		writeError(w, err)
		return
	}
	utilities.LogInfo("session stored for user %s", sess.User.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// newForm wires the auth form for one request: the client-side adapter
// keeps the session in memory and propagation writes this response's
// cookies.
func (s *Server) newForm(w http.ResponseWriter, r *http.Request) *authform.Form {
	auth := client.NewAuth(s.identity, &client.MemoryStorage{})
	prop := authform.PropagatorFunc(func(ctx context.Context, pair models.TokenPair) error {
		_, err := s.sessions.Save(w, r.WithContext(ctx), pair)
		return err
	})
	return authform.New(auth, prop)
}

// SignInHandler handles the sign-in form post.
func (s *Server) SignInHandler(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")

	form := s.newForm(w, r)
	defer form.Close()

	res, err := form.SignIn(r.Context(), email, password)
	if err != nil {
		s.formUnavailable(w, email, err)
		return
	}
	if res.State != uistate.Succeeded {
		s.views.render(w, apperrors.HTTPStatus(res.Err), "entry.html", entryView{Email: email, Message: res.Message, IsError: true})
		return
	}
	utilities.LogInfo("user %s signed in", res.Session.User.ID)
	// a fresh request lets the guard see the cookies just written
	http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
}

// SignUpHandler handles the sign-up form post.
func (s *Server) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")

	form := s.newForm(w, r)
	defer form.Close()

	res, err := form.SignUp(r.Context(), email, password)
	if err != nil {
		s.formUnavailable(w, email, err)
		return
	}
	if res.State != uistate.Succeeded {
		s.views.render(w, apperrors.HTTPStatus(res.Err), "entry.html", entryView{Email: email, Message: res.Message, IsError: true})
		return
	}
	s.views.render(w, http.StatusOK, "entry.html", entryView{Email: email, Message: res.Message})
}

func (s *Server) formUnavailable(w http.ResponseWriter, email string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, uistate.ErrBusy) {
		status = http.StatusConflict
	}
	utilities.LogError(err, "auth form")
	s.views.render(w, status, "entry.html", entryView{Email: email, Message: apperrors.Message(nil), IsError: true})
}

// SignOutHandler revokes the provider session when there is one and drops
// the cookies. Revocation is best effort: the cookies go regardless.
func (s *Server) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.Load(r); err == nil {
		if err := s.identity.SignOut(r.Context(), sess.User.ID); err != nil {
			utilities.LogError(err, "revoke refresh tokens")
		} else {
			utilities.LogInfo("user %s signed out", sess.User.ID)
		}
	}
	s.sessions.Clear(w, r)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
