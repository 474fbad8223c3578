package store

import (
	"context"
	"fmt"
	"time"

	"neothink/internal/utils"
	"neothink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var notificationColumns = utils.StructTagValues(types.Notification{})

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *types.Notification) error {
	stampNotification(notification, time.Now())

	query, args, err := psql().
		Insert(notificationTableName).
		SetMap(utils.StructToMap(notification)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notification query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return storeErr(err, "failed to insert notification")
}

func (r *NotificationRepository) List(ctx context.Context, userID string, filter types.NotificationFilter) ([]*types.Notification, error) {
	builder := psql().
		Select(notificationColumns...).
		From(notificationTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")

	if filter.UnreadOnly {
		builder = builder.Where(sq.Eq{"read": false})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate list notifications query: %w", err)
	}

	notifications := make([]*types.Notification, 0)
	if err := pgxscan.Select(ctx, r.pool, &notifications, query, args...); err != nil {
		return nil, storeErr(err, "failed to list notifications")
	}

	return notifications, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(notificationTableName).
		Where(sq.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate unread count query: %w", err)
	}

	var count int
	if err := pgxscan.Get(ctx, r.pool, &count, query, args...); err != nil {
		return 0, storeErr(err, "failed to count unread notifications")
	}

	return count, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	query, args, err := psql().
		Update(notificationTableName).
		Set("read", true).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": notificationID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark read query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storeErr(err, "failed to mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query, args, err := psql().
		Update(notificationTableName).
		Set("read", true).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate mark all read query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, storeErr(err, "failed to mark notifications read")
	}

	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, notificationID string) error {
	query, args, err := psql().
		Delete(notificationTableName).
		Where(sq.Eq{"id": notificationID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete notification query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return storeErr(err, "failed to delete notification")
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	query, args, err := psql().
		Delete(notificationTableName).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate delete notifications query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, storeErr(err, "failed to delete notifications")
	}

	return tag.RowsAffected(), nil
}

// DeleteCreatedBefore purges notifications older than the cutoff.
func (r *NotificationRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql().
		Delete(notificationTableName).
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate purge notifications query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, storeErr(err, "failed to purge notifications")
	}

	return tag.RowsAffected(), nil
}

func stampNotification(n *types.Notification, now time.Time) {
	if n.ID == "" {
		n.ID = utils.NanoID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.Data == nil {
		n.Data = map[string]any{}
	}
}

func insertNotifications(ctx context.Context, tx pgx.Tx, notifications []*types.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now()
	builder := psql().Insert(notificationTableName).Columns(notificationColumns...)
	for _, n := range notifications {
		stampNotification(n, now)
		builder = builder.Values(orderedValues(notificationColumns, n)...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notifications query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return storeErr(err, "failed to insert notifications")
	}

	return nil
}
