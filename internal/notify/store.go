package notify

import (
	"context"
	"time"

	"neothink/pkg/types"
)

// PreferenceStore resolves the preference row for one (user, type). It
// returns types.ErrPreferenceNotFound when the row does not exist.
type PreferenceStore interface {
	Preference(ctx context.Context, userID string, t types.NotificationType) (*types.NotificationPreference, error)
}

// NotificationStore is the durable per-user feed.
type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
	List(ctx context.Context, userID string, filter types.NotificationFilter) ([]*types.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PromoteFunc converts claimed queue rows into the notifications that
// replace them.
type PromoteFunc func(items []*types.QueuedNotification) []*types.Notification

// QueueStore stages deferred and batched notifications. The Promote methods
// claim matching rows, hand them to build and insert the result as one unit,
// so a queue row is promoted at most once even across overlapping sweeps.
type QueueStore interface {
	Enqueue(ctx context.Context, q *types.QueuedNotification) error
	PromoteScheduled(ctx context.Context, now time.Time, build PromoteFunc) ([]*types.Notification, error)
	PromoteBatch(ctx context.Context, batch types.Frequency, createdBefore time.Time, build PromoteFunc) ([]*types.Notification, error)
}

// TimezoneStore resolves a recipient's IANA timezone name.
type TimezoneStore interface {
	Timezone(ctx context.Context, userID string) (string, error)
}

// Publisher fans change events out to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev types.ChangeEvent) error
}

// Subscriber registers a per-user change callback.
type Subscriber interface {
	Subscribe(userID string, fn func(types.ChangeEvent)) (unsubscribe func())
}
