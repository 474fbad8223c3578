package notify

import (
	"context"
	"fmt"
	"time"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Feed is the caller-scoped read side of the notification store. Every
// mutation is followed by a best-effort change event.
type Feed struct {
	logger        *logrus.Logger
	notifications NotificationStore
	publisher     Publisher
	subscriber    Subscriber
	now           func() time.Time
}

func NewFeed(logger *logrus.Logger, notifications NotificationStore, publisher Publisher, subscriber Subscriber) *Feed {
	return &Feed{
		logger:        logger,
		notifications: notifications,
		publisher:     publisher,
		subscriber:    subscriber,
		now:           time.Now,
	}
}

func (f *Feed) List(ctx context.Context, userID string, filter types.NotificationFilter) (*types.NotificationList, error) {
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	notifications, err := f.notifications.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := f.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &types.NotificationList{Notifications: notifications, UnreadCount: unread}, nil
}

func (f *Feed) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := f.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}

	f.publish(ctx, userID, types.ChangeRead, notificationID)
	return nil
}

// MarkAllRead only touches unread rows, so repeating it changes nothing.
func (f *Feed) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := f.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	if updated > 0 {
		f.publish(ctx, userID, types.ChangeReadAll, "")
	}
	return updated, nil
}

func (f *Feed) Delete(ctx context.Context, userID, notificationID string) error {
	if err := f.notifications.Delete(ctx, userID, notificationID); err != nil {
		return err
	}

	f.publish(ctx, userID, types.ChangeDeleted, notificationID)
	return nil
}

func (f *Feed) DeleteAll(ctx context.Context, userID string) (int64, error) {
	deleted, err := f.notifications.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		f.publish(ctx, userID, types.ChangeDeletedAll, "")
	}
	return deleted, nil
}

// OnChange registers fn for the user's change events until the returned
// function is called.
func (f *Feed) OnChange(userID string, fn func(types.ChangeEvent)) func() {
	if f.subscriber == nil {
		return func() {}
	}
	return f.subscriber.Subscribe(userID, fn)
}

func (f *Feed) publish(ctx context.Context, userID string, kind types.ChangeKind, notificationID string) {
	if f.publisher == nil {
		return
	}

	err := f.publisher.Publish(ctx, types.ChangeEvent{
		UserID:         userID,
		Kind:           kind,
		NotificationID: notificationID,
		At:             f.now(),
	})
	if err != nil {
		f.logger.WithError(err).WithField("user_id", userID).Warn("failed to publish notification change")
	}
}
