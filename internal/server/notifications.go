package server

import (
	"net/http"
	"strconv"
	"strings"

	"neothink/pkg/types"
)

func (s *Service) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := r.URL.Query()
	filter := types.NotificationFilter{UnreadOnly: q.Get("unread") == "true"}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || limit == 0 {
			s.writeError(w, types.NewValidationError("limit", "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	list, err := s.feed.List(ctx, userID, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.feed.MarkRead(ctx, userID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Service) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	updated, err := s.feed.MarkAllRead(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}

func (s *Service) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.feed.Delete(ctx, userID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Service) handleDeleteAllNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	deleted, err := s.feed.DeleteAll(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
}
