package server

import (
	"net/http"
	"strings"
)

func (s *Service) handleGetCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if e := strings.TrimSpace(q.Get("error")); e != "" {
		reason := strings.TrimSpace(q.Get("error_description"))
		if reason == "" {
			reason = e
		}
		redirectToAuthError(w, r, reason)
		return
	}

	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		redirectToAuthError(w, r, "missing_code")
		return
	}

	session, err := s.provider.ExchangeCode(ctx, code, s.cookies.Verifier(r))
	if err != nil {
		s.logger.WithError(err).Warn("failed to exchange auth code")
		redirectToAuthError(w, r, "Unable to verify your link. It may have expired.")
		return
	}

	if err := s.cookies.SetSession(w, session, s.now()); err != nil {
		s.logger.WithError(err).Error("failed to set session cookies in callback")
		redirectToAuthError(w, r, "Unable to start your session.")
		return
	}

	switch q.Get("type") {
	case "signup":
		s.bootstrapAccount(ctx, &session.User)
		http.Redirect(w, r, "/welcome", http.StatusSeeOther)
		return
	case "recovery":
		http.Redirect(w, r, localPath(q.Get("next"), "/auth/update-password"), http.StatusSeeOther)
		return
	}

	if !s.onboardingCompleted(ctx, session.User.ID) {
		http.Redirect(w, r, "/welcome", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, localPath(q.Get("next"), "/dashboard"), http.StatusSeeOther)
}
