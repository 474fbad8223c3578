package server

import (
	"net/http"

	"neothink/pkg/types"
)

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	_, err := s.userIDFromContext(r.Context())

	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":       "neothink",
		"authenticated": err == nil,
	})
}

// landingParams are the redirect query parameters echoed back to the client
// on the pages that redirects land on.
var landingParams = []string{"error", "notice", "email", "reason", "redirectedFrom", "type"}

type pageData struct {
	Page          string            `json:"page"`
	Authenticated bool              `json:"authenticated"`
	Params        map[string]string `json:"params,omitempty"`
	Data          any               `json:"data,omitempty"`
}

func (s *Service) newPageData(r *http.Request, page string) pageData {
	_, err := s.userIDFromContext(r.Context())

	data := pageData{Page: page, Authenticated: err == nil}
	query := r.URL.Query()
	for _, key := range landingParams {
		if v := query.Get(key); v != "" {
			if data.Params == nil {
				data.Params = map[string]string{}
			}
			data.Params[key] = v
		}
	}

	return data
}

// handlePage serves a landing page that carries nothing but the redirect
// parameters it was reached with.
func (s *Service) handlePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.newPageData(r, page))
	}
}

type settingsPageData struct {
	Settings *types.UserSettings    `json:"settings"`
	Privacy  *types.PrivacySettings `json:"privacy"`
}

func (s *Service) handleGetSettingsPage(w http.ResponseWriter, r *http.Request) {
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

	privacy, err := s.settings.PrivacySettings(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data := s.newPageData(r, "settings")
	data.Data = settingsPageData{Settings: settings, Privacy: privacy}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type dashboardData struct {
	Profile     *types.Profile `json:"profile"`
	UnreadCount int            `json:"unread_count"`
}

// handleGetDashboard only runs once the gate has confirmed onboarding.
func (s *Service) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	list, err := s.feed.List(ctx, userID, types.NotificationFilter{UnreadOnly: true, Limit: 1})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, dashboardData{Profile: profile, UnreadCount: list.UnreadCount})
}
