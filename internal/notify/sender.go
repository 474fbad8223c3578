package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

// Sender is the notification creation entrypoint. Delivery is best effort:
// Send never returns an error to the caller, it reports failure in the
// result and logs it.
type Sender struct {
	logger        *logrus.Logger
	preferences   PreferenceStore
	notifications NotificationStore
	queue         QueueStore
	timezones     TimezoneStore
	publisher     Publisher
	location      *time.Location
	now           func() time.Time
}

type SenderOption func(*Sender)

// WithTimezones makes quiet hours evaluate in each recipient's own timezone.
func WithTimezones(tz TimezoneStore) SenderOption {
	return func(s *Sender) { s.timezones = tz }
}

func WithPublisher(p Publisher) SenderOption {
	return func(s *Sender) { s.publisher = p }
}

func WithClock(now func() time.Time) SenderOption {
	return func(s *Sender) { s.now = now }
}

func NewSender(
	logger *logrus.Logger,
	preferences PreferenceStore,
	notifications NotificationStore,
	queue QueueStore,
	location *time.Location,
	opts ...SenderOption,
) *Sender {
	if location == nil {
		location = time.UTC
	}

	s := &Sender{
		logger:        logger,
		preferences:   preferences,
		notifications: notifications,
		queue:         queue,
		location:      location,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send routes a candidate through the delivery policy and performs at most
// one write: nothing, a queue row or a notification row.
func (s *Sender) Send(ctx context.Context, c types.Candidate) types.SendResult {
	entry := s.logger.WithFields(logrus.Fields{
		"user_id": c.UserID,
		"type":    c.Type,
	})

	if err := validateCandidate(c); err != nil {
		entry.WithError(err).Warn("rejected notification candidate")
		return failure(err)
	}

	pref, err := s.preferences.Preference(ctx, c.UserID, c.Type)
	if err != nil && !errors.Is(err, types.ErrPreferenceNotFound) {
		entry.WithError(err).Error("failed to load notification preference")
		return failure(err)
	}

	now := s.now().In(s.recipientLocation(ctx, c.UserID))
	decision := Decide(pref, now)
	if c.Type.AlwaysInstant() && decision.Action != ActionDrop {
		decision = Decision{Action: ActionSendNow}
	}

	switch decision.Action {
	case ActionDrop:
		entry.Debug("notification dropped, disabled by preference")
		return types.SendResult{Success: true, Reason: types.ReasonNotificationsDisabled}

	case ActionDefer:
		scheduledFor := decision.ScheduledFor
		q := queuedFromCandidate(c)
		q.ScheduledFor = &scheduledFor
		if err := s.queue.Enqueue(ctx, q); err != nil {
			entry.WithError(err).Error("failed to defer notification past quiet hours")
			return failure(err)
		}

		entry.WithField("scheduled_for", scheduledFor).Debug("notification deferred until quiet hours end")
		return types.SendResult{
			Success:      true,
			Reason:       types.ReasonScheduledAfterQuietHours,
			ScheduledFor: &scheduledFor,
		}

	case ActionBatch:
		batch := decision.Batch
		q := queuedFromCandidate(c)
		q.Batch = &batch
		if err := s.queue.Enqueue(ctx, q); err != nil {
			entry.WithError(err).Error("failed to batch notification")
			return failure(err)
		}

		entry.WithField("batch", batch).Debug("notification batched")
		return types.SendResult{Success: true, Reason: types.ReasonBatched, BatchFrequency: batch}
	}

	n := &types.Notification{
		UserID:      c.UserID,
		Title:       c.Title,
		Description: c.Description,
		Type:        c.Type,
		Data:        payload(c.Data),
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		entry.WithError(err).Error("failed to create notification")
		return failure(err)
	}

	s.publish(ctx, types.ChangeEvent{UserID: n.UserID, Kind: types.ChangeCreated, NotificationID: n.ID, At: n.CreatedAt})

	return types.SendResult{Success: true}
}

func (s *Sender) recipientLocation(ctx context.Context, userID string) *time.Location {
	if s.timezones == nil {
		return s.location
	}

	name, err := s.timezones.Timezone(ctx, userID)
	if err != nil || strings.TrimSpace(name) == "" {
		return s.location
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.WithError(err).WithField("timezone", name).Warn("unknown recipient timezone, using default")
		return s.location
	}

	return loc
}

func (s *Sender) publish(ctx context.Context, ev types.ChangeEvent) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WithError(err).WithField("user_id", ev.UserID).Warn("failed to publish notification change")
	}
}

func validateCandidate(c types.Candidate) error {
	if strings.TrimSpace(c.UserID) == "" {
		return types.NewValidationError("userId", "is required")
	}

	if strings.TrimSpace(c.Title) == "" {
		return types.NewValidationError("title", "is required")
	}

	if !c.Type.Valid() {
		return types.NewValidationError("type", "is not a known notification type")
	}

	return nil
}

func queuedFromCandidate(c types.Candidate) *types.QueuedNotification {
	return &types.QueuedNotification{
		UserID:      c.UserID,
		Title:       c.Title,
		Description: c.Description,
		Type:        c.Type,
		Data:        payload(c.Data),
	}
}

func payload(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

func failure(err error) types.SendResult {
	return types.SendResult{Success: false, Error: err.Error()}
}
