package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neothink/internal/notify"
	"neothink/internal/utils"
	"neothink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var queueColumns = utils.StructTagValues(types.QueuedNotification{})

type QueueRepository struct {
	pool *pgxpool.Pool
}

func NewQueueRepository(pool *pgxpool.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

func (r *QueueRepository) Enqueue(ctx context.Context, item *types.QueuedNotification) error {
	item.ID = utils.NanoID()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.Data == nil {
		item.Data = map[string]any{}
	}

	query, args, err := psql().
		Insert(queueTableName).
		SetMap(utils.StructToMap(item)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate enqueue query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return storeErr(err, "failed to enqueue notification")
}

// PromoteScheduled moves every deferred row due at or before now into the feed.
func (r *QueueRepository) PromoteScheduled(ctx context.Context, now time.Time, build notify.PromoteFunc) ([]*types.Notification, error) {
	return r.promote(ctx, sq.And{
		sq.Eq{"batch": nil},
		sq.LtOrEq{"scheduled_for": now},
	}, build)
}

// PromoteBatch moves every row of the given batch created before the cutoff.
func (r *QueueRepository) PromoteBatch(ctx context.Context, batch types.Frequency, createdBefore time.Time, build notify.PromoteFunc) ([]*types.Notification, error) {
	return r.promote(ctx, sq.And{
		sq.Eq{"batch": batch},
		sq.Lt{"created_at": createdBefore},
	}, build)
}

// promote claims matching rows with SKIP LOCKED, deletes them and inserts
// whatever build produces, all in one transaction. A concurrent sweep either
// waits for nothing or sees the rows already gone.
func (r *QueueRepository) promote(ctx context.Context, pred sq.Sqlizer, build notify.PromoteFunc) ([]*types.Notification, error) {
	query, args, err := promoteQuery(pred)
	if err != nil {
		return nil, err
	}

	var created []*types.Notification
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		claimed := make([]*types.QueuedNotification, 0)
		if err := pgxscan.Select(ctx, tx, &claimed, query, args...); err != nil {
			return storeErr(err, "failed to claim queued notifications")
		}
		if len(claimed) == 0 {
			return nil
		}

		created = build(claimed)
		return insertNotifications(ctx, tx, created)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// promoteQuery deletes the rows selected by pred, skipping rows another
// transaction has already locked, and returns them.
func promoteQuery(pred sq.Sqlizer) (string, []any, error) {
	claim, claimArgs, err := sq.
		Select("id").
		From(queueTableName).
		Where(pred).
		OrderBy("created_at").
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate claim queue query: %w", err)
	}

	query, args, err := psql().
		Delete(queueTableName).
		Where(sq.Expr("id IN ("+claim+")", claimArgs...)).
		Suffix("RETURNING " + strings.Join(queueColumns, ", ")).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate promote queue query: %w", err)
	}

	return query, args, nil
}
