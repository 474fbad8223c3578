package server

import (
	"errors"
	"net/http"
	"strings"

	"neothink/internal/auth"
)

func (s *Service) handlePostSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var f signUpForm
	if err := decodeForm(r, &f); err != nil {
		redirectWithError(w, r, "/auth/sign-up", "Invalid form submission.")
		return
	}

	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FullName = strings.TrimSpace(f.FullName)

	if errs := validateSignUp(&f); len(errs) > 0 {
		s.logger.WithField("field_errors", errs).Info("validation errors during sign up")
		redirectWithError(w, r, "/auth/sign-up", firstError(errs))
		return
	}

	metadata := map[string]any{}
	if f.FullName != "" {
		metadata["full_name"] = f.FullName
	}

	user, session, err := s.provider.SignUp(ctx, f.Email, f.Password, metadata)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			redirectWithError(w, r, "/auth/sign-up", "An account with this email already exists.")
			return
		}

		s.logger.WithError(err).Error("failed to sign up user")
		redirectWithError(w, r, "/auth/sign-up", "Unable to create account right now. Please try again.")
		return
	}

	s.logger.WithField("user_id", user.ID).Info("user signed up")

	// Confirmation pending: the profile is created by the callback.
	if session == nil {
		redirectWithParam(w, r, "/auth/verify-email", "email", f.Email)
		return
	}

	if user.FullName == "" {
		user.FullName = f.FullName
	}
	s.bootstrapAccount(ctx, user)

	if err := s.cookies.SetSession(w, session, s.now()); err != nil {
		s.logger.WithError(err).Error("failed to set session cookies after sign up")
		redirectWithError(w, r, "/auth/sign-in", "Account created. Please sign in.")
		return
	}

	http.Redirect(w, r, "/welcome", http.StatusSeeOther)
}
