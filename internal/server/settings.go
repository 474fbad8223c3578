package server

import (
	"net/http"
	"strings"
	"time"

	"neothink/pkg/types"
)

type settingsPatch struct {
	Theme           *string `json:"theme"`
	Language        *string `json:"language"`
	Timezone        *string `json:"timezone"`
	EmailUpdates    *bool   `json:"email_updates"`
	MarketingEmails *bool   `json:"marketing_emails"`
}

type privacyPatch struct {
	ProfileVisibility *string `json:"profile_visibility"`
	ShowActivity      *bool   `json:"show_activity"`
	AllowMessages     *bool   `json:"allow_messages"`
}

const maxLanguageLen = 10

var (
	validThemes     = map[string]bool{"system": true, "light": true, "dark": true}
	validVisibility = map[string]bool{"public": true, "members": true, "private": true}
)

func (s *Service) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	settings, err := s.settings.UserSettings(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Service) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var patch settingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, err)
		return
	}

	settings, err := s.settings.UserSettings(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	errs := map[string]string{}
	if patch.Theme != nil {
		if !validThemes[*patch.Theme] {
			errs["theme"] = "Theme must be system, light or dark."
		}
		settings.Theme = *patch.Theme
	}
	if patch.Language != nil {
		lang := strings.TrimSpace(*patch.Language)
		if lang == "" || len(lang) > maxLanguageLen {
			errs["language"] = "Language must be a short language tag."
		}
		settings.Language = lang
	}
	if patch.Timezone != nil {
		if _, err := time.LoadLocation(*patch.Timezone); err != nil || *patch.Timezone == "" || *patch.Timezone == "Local" {
			errs["timezone"] = "Timezone must be an IANA zone name."
		}
		settings.Timezone = *patch.Timezone
	}
	if patch.EmailUpdates != nil {
		settings.EmailUpdates = *patch.EmailUpdates
	}
	if patch.MarketingEmails != nil {
		settings.MarketingEmails = *patch.MarketingEmails
	}
	if len(errs) > 0 {
		s.writeError(w, &types.ValidationError{Fields: errs})
		return
	}

	saved, err := s.settings.SaveUserSettings(ctx, settings)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Service) handleGetPrivacy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	privacy, err := s.settings.PrivacySettings(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, privacy)
}

func (s *Service) handlePatchPrivacy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var patch privacyPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, err)
		return
	}

	privacy, err := s.settings.PrivacySettings(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if patch.ProfileVisibility != nil {
		if !validVisibility[*patch.ProfileVisibility] {
			s.writeError(w, types.NewValidationError("profile_visibility", "Visibility must be public, members or private."))
			return
		}
		privacy.ProfileVisibility = *patch.ProfileVisibility
	}
	if patch.ShowActivity != nil {
		privacy.ShowActivity = *patch.ShowActivity
	}
	if patch.AllowMessages != nil {
		privacy.AllowMessages = *patch.AllowMessages
	}

	saved, err := s.settings.SavePrivacySettings(ctx, privacy)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, saved)
}
