package http

import (
	"net/http"

	"budget/internal/auth"
	"budget/internal/log"
)

type signInData struct {
	Error string
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "signin.html", signInData{})
}

// handleLogin starts the OAuth redirect with a single-use state value.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.NewState()
	http.Redirect(w, r, s.signIn.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	q := r.URL.Query()

	if !s.sessions.ConsumeState(q.Get("state")) {
		logger.WarnContext(r.Context(), "Rejected sign-in callback with unknown state",
			log.FieldOperation, log.OpSignIn, log.FieldErrorType, log.ErrorTypeAuth)
		s.render(w, r, http.StatusBadRequest, "signin.html",
			signInData{Error: "Your sign-in attempt expired. Please try again."})
		return
	}

	if msg := q.Get("error"); msg != "" {
		logger.InfoContext(r.Context(), "Sign-in cancelled by provider",
			log.FieldOperation, log.OpSignIn, "provider_error", msg)
		s.render(w, r, http.StatusUnauthorized, "signin.html",
			signInData{Error: "Sign-in was cancelled."})
		return
	}

	user, err := s.signIn.SignIn(r.Context(), q.Get("code"))
	if err != nil {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Sign-in failed", err,
			log.ComponentAuth, log.OpSignIn, log.NewFields().WithErrorType(log.ErrorTypeAuth))
		s.render(w, r, http.StatusUnauthorized, "signin.html",
			signInData{Error: "Sign-in failed. Please try again."})
		return
	}

	s.sessions.SetCookie(w, user)
	logger.InfoContext(r.Context(), "User signed in",
		log.FieldOperation, log.OpSignIn, log.FieldUserID, user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		s.forgetUser(r.Context(), u.ID)
		log.FromContext(r.Context()).InfoContext(r.Context(), "User signed out",
			log.FieldOperation, log.OpSignOut, log.FieldUserID, u.ID)
	}
	s.sessions.ClearCookie(w, r)
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}
