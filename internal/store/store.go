package store

import (
	"context"
	"errors"
	"fmt"

	"neothink/internal/utils"
	"neothink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	profileTableName         = "neothink.profiles"
	notificationTableName    = "neothink.notifications"
	preferenceTableName      = "neothink.notification_preferences"
	queueTableName           = "neothink.notification_queue"
	userSettingsTableName    = "neothink.user_settings"
	privacySettingsTableName = "neothink.privacy_settings"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// storeErr marks a driver failure as a store error while keeping the cause.
func storeErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", msg, types.ErrStore, err)
}

// violates reports whether err is a unique violation of the named index or
// constraint.
func violates(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}

// inTx runs fn inside a transaction, committing only if fn succeeds.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return storeErr(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	return storeErr(tx.Commit(ctx), "failed to commit transaction")
}

// orderedValues returns the struct's column values in the given column order.
func orderedValues(columns []string, item any) []any {
	m := utils.StructToMap(item)
	values := make([]any, 0, len(columns))
	for _, c := range columns {
		values = append(values, m[c])
	}
	return values
}
