package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"neothink/internal/notify"
	"neothink/pkg/types"
)

func (s *Service) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	prefs, err := s.preferences.PreferencesByUserID(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if len(prefs) < len(types.PreferenceTypes) {
		if err := s.preferences.EnsureDefaults(ctx, userID); err != nil {
			s.writeError(w, err)
			return
		}

		prefs, err = s.preferences.PreferencesByUserID(ctx, userID)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"preferences": prefs})
}

func (s *Service) handlePatchPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	notificationType := types.NotificationType(strings.ToUpper(strings.TrimSpace(r.PathValue("type"))))
	if !notificationType.Valid() {
		s.writeError(w, types.NewValidationError("type", fmt.Sprintf("unknown notification type %q", r.PathValue("type"))))
		return
	}

	update, err := parsePreferenceUpdate(r.Body, notificationType)
	if err != nil {
		s.writeError(w, err)
		return
	}

	pref, err := s.preferences.UpdatePreference(ctx, userID, update)
	if errors.Is(err, types.ErrPreferenceNotFound) {
		if err := s.preferences.EnsureDefaults(ctx, userID); err != nil {
			s.writeError(w, err)
			return
		}
		pref, err = s.preferences.UpdatePreference(ctx, userID, update)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pref)
}

// parsePreferenceUpdate accepts a JSON object with exactly one known field.
func parsePreferenceUpdate(body io.Reader, notificationType types.NotificationType) (*types.PreferenceUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&raw); err != nil {
		return nil, types.NewValidationError("body", "body must be a JSON object")
	}

	if len(raw) != 1 {
		return nil, types.NewValidationError("body", "exactly one field must be updated")
	}

	var (
		field string
		value json.RawMessage
	)
	for k, v := range raw {
		field, value = k, v
	}

	update := &types.PreferenceUpdate{Type: notificationType, Field: types.PreferenceField(field)}

	switch update.Field {
	case types.PreferenceFieldEnabled:
		var enabled bool
		if err := json.Unmarshal(value, &enabled); err != nil {
			return nil, types.NewValidationError(field, "must be a boolean")
		}
		update.Value = enabled

	case types.PreferenceFieldFrequency:
		var frequency types.Frequency
		if err := json.Unmarshal(value, &frequency); err != nil || !frequency.Valid() {
			return nil, types.NewValidationError(field, "must be one of instant, daily, weekly, never")
		}
		if notificationType.AlwaysInstant() && frequency != types.FrequencyInstant {
			return nil, types.NewValidationError(field, fmt.Sprintf("%s notifications are always delivered instantly", notificationType))
		}
		update.Value = frequency

	case types.PreferenceFieldQuietHoursStart, types.PreferenceFieldQuietHoursEnd:
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			update.Value = (*string)(nil)
			break
		}

		var clock string
		if err := json.Unmarshal(value, &clock); err != nil {
			return nil, types.NewValidationError(field, "must be HH:MM or null")
		}
		minutes, err := notify.ParseClock(clock)
		if err != nil {
			return nil, types.NewValidationError(field, "must be HH:MM or null")
		}
		normalized := notify.FormatClock(minutes)
		update.Value = &normalized

	default:
		return nil, types.NewValidationError(field, "unknown preference field")
	}

	return update, nil
}
