package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"neothink/internal/auth"
	"neothink/pkg/types"
)

func (s *Service) handlePostSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var f signInForm
	if err := decodeForm(r, &f); err != nil {
		redirectWithError(w, r, "/auth/sign-in", "Invalid form submission.")
		return
	}

	email := strings.ToLower(strings.TrimSpace(f.Email))

	errs := map[string]string{}
	validateEmail(errs, email)
	if f.Password == "" {
		errs["password"] = "Password is required."
	}
	if len(errs) > 0 {
		redirectWithError(w, r, "/auth/sign-in", firstError(errs))
		return
	}

	result := s.limiter.CheckRateLimit(email)
	if !result.Allowed {
		s.logger.WithField("email", email).Warn("sign in attempts throttled")
		s.writeRateLimited(w, result.WaitTimeMillis(), result.RetryAfterSeconds())
		return
	}

	session, err := s.provider.SignIn(ctx, email, f.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailNotConfirmed):
			redirectWithParam(w, r, "/auth/verify-email", "email", email)
		case errors.Is(err, auth.ErrInvalidCredentials):
			redirectWithError(w, r, "/auth/sign-in", "Invalid email or password.")
		default:
			s.logger.WithError(err).Error("failed to sign in user")
			redirectWithError(w, r, "/auth/sign-in", "Unable to sign in right now. Please try again.")
		}
		return
	}

	s.limiter.Reset(email)

	if !session.User.EmailConfirmed {
		redirectWithParam(w, r, "/auth/verify-email", "email", email)
		return
	}

	if err := s.cookies.SetSession(w, session, s.now()); err != nil {
		s.logger.WithError(err).Error("failed to set session cookies")
		redirectWithError(w, r, "/auth/sign-in", "Unable to sign in right now. Please try again.")
		return
	}

	s.logger.WithField("user_id", session.User.ID).Info("user signed in")

	s.bootstrapAccount(ctx, &session.User)

	if !s.onboardingCompleted(ctx, session.User.ID) {
		http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, localPath(f.RedirectedFrom, "/dashboard"), http.StatusSeeOther)
}

func (s *Service) handlePostSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token, ok := ctx.Value(contextKeyAccessToken).(string); ok && token != "" {
		if err := s.provider.SignOut(ctx, token); err != nil {
			s.logger.WithError(err).Warn("failed to revoke session upstream")
		}
	}

	s.cookies.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Service) handlePostResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var f resetPasswordForm
	if err := decodeForm(r, &f); err != nil {
		redirectWithError(w, r, "/auth/reset-password", "Invalid form submission.")
		return
	}

	email := strings.ToLower(strings.TrimSpace(f.Email))

	errs := map[string]string{}
	validateEmail(errs, email)
	if len(errs) > 0 {
		redirectWithError(w, r, "/auth/reset-password", firstError(errs))
		return
	}

	// The outcome is never disclosed so the form cannot probe for accounts.
	if err := s.provider.Recover(ctx, email); err != nil {
		s.logger.WithError(err).Warn("failed to send recovery email")
	}

	redirectWithParam(w, r, "/auth/reset-password", "sent", "true")
}

func (s *Service) handlePostUpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		v := url.Values{}
		v.Set("redirectedFrom", "/auth/update-password")
		http.Redirect(w, r, "/auth/sign-in?"+v.Encode(), http.StatusSeeOther)
		return
	}
	token, _ := ctx.Value(contextKeyAccessToken).(string)

	var f updatePasswordForm
	if err := decodeForm(r, &f); err != nil {
		redirectWithError(w, r, "/auth/update-password", "Invalid form submission.")
		return
	}

	errs := map[string]string{}
	validatePassword(errs, f.Password, f.ConfirmPassword)
	if len(errs) > 0 {
		redirectWithError(w, r, "/auth/update-password", firstError(errs))
		return
	}

	if err := s.provider.UpdatePassword(ctx, token, f.Password); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to update password")
		redirectWithError(w, r, "/auth/update-password", "Unable to update your password. Please try again.")
		return
	}

	result := s.notifier.Send(ctx, types.Candidate{
		UserID: userID,
		Type:   types.NotificationTypeSecurity,
		Title:  "Your password was changed",
	})
	if !result.Success {
		s.logger.WithField("user_id", userID).WithField("error", result.Error).Warn("failed to send password change notification")
	}

	redirectWithNotice(w, r, "/settings", "password_updated")
}

// bootstrapAccount provisions the profile, preference and settings rows.
// Failures are logged only; every later read tolerates missing rows.
func (s *Service) bootstrapAccount(ctx context.Context, user *auth.User) {
	if err := s.profiles.Bootstrap(ctx, user.ID, user.Email, user.FullName); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to bootstrap account")
	}
}

func (s *Service) onboardingCompleted(ctx context.Context, userID string) bool {
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		if !errors.Is(err, types.ErrProfileNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to load profile")
		}
		return false
	}

	return profile.OnboardingCompleted
}
