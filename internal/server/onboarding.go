package server

import (
	"errors"
	"net/http"
	"strings"

	"neothink/pkg/types"
)

type onboardingState struct {
	State   types.AccountState `json:"state"`
	Profile *types.Profile     `json:"profile"`
}

func (s *Service) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrProfileNotFound) {
		s.writeError(w, err)
		return
	}

	// Reaching a protected path means the token was issued after confirmation.
	s.writeJSON(w, http.StatusOK, onboardingState{
		State:   types.ResolveAccountState(true, profile),
		Profile: profile,
	})
}

func (s *Service) handlePostOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var f onboardingForm
	if err := decodeForm(r, &f); err != nil {
		redirectWithError(w, r, "/onboarding", "Invalid form submission.")
		return
	}

	f.FullName = strings.TrimSpace(f.FullName)
	f.Username = strings.ToLower(strings.TrimSpace(f.Username))

	if errs := validateOnboarding(&f); len(errs) > 0 {
		redirectWithError(w, r, "/onboarding", firstError(errs))
		return
	}

	taken, err := s.profiles.UsernameTaken(ctx, f.Username, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to check username")
		redirectWithError(w, r, "/onboarding", "Unable to save your details. Please try again.")
		return
	}
	if taken {
		redirectWithError(w, r, "/onboarding", types.ErrUsernameTaken().Fields["username"])
		return
	}

	email, _ := ctx.Value(contextKeyEmail).(string)
	if err := s.profiles.Bootstrap(ctx, userID, email, f.FullName); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to bootstrap account during onboarding")
		redirectWithError(w, r, "/onboarding", "Unable to save your details. Please try again.")
		return
	}

	_, err = s.profiles.CompleteOnboarding(ctx, userID, f.FullName, f.Username, types.Pathway(f.Pathway))
	var validation *types.ValidationError
	if errors.As(err, &validation) {
		redirectWithError(w, r, "/onboarding", firstError(validation.Fields))
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to complete onboarding")
		redirectWithError(w, r, "/onboarding", "Unable to save your details. Please try again.")
		return
	}

	description := "Your " + f.Pathway + " pathway is ready."
	result := s.notifier.Send(ctx, types.Candidate{
		UserID:      userID,
		Type:        types.NotificationTypeOnboarding,
		Title:       "Welcome to Neothink+",
		Description: &description,
		Data:        map[string]any{"pathway": f.Pathway},
	})
	if !result.Success {
		s.logger.WithField("user_id", userID).WithField("error", result.Error).Warn("failed to send onboarding notification")
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
