package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"neothink/pkg/types"
)

const (
	streamHeartbeat = 25 * time.Second
	streamBuffer    = 16
)

// handleNotificationStream pushes the caller's change events as
// Server-Sent Events. Clients re-fetch the list on every event.
func (s *Service) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.WithError(err).Debug("unable to clear write deadline for stream")
	}

	events := make(chan types.ChangeEvent, streamBuffer)
	unsubscribe := s.feed.OnChange(userID, func(ev types.ChangeEvent) {
		select {
		case events <- ev:
		default:
			s.logger.WithField("user_id", userID).Warn("dropping change event; stream buffer full")
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprint(w, "retry: 5000\n\n")
	if err := rc.Flush(); err != nil {
		s.logger.WithError(err).Error("streaming unsupported by response writer")
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.streams.Done():
			return

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.WithError(err).Error("failed to encode change event")
				continue
			}

			if _, err := fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
