package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"neothink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestStoreErrKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")

	err := storeErr(cause, "failed to list notifications")
	require.ErrorIs(t, err, types.ErrStore)
	require.ErrorIs(t, err, cause)
	require.True(t, strings.HasPrefix(err.Error(), "failed to list notifications: "))

	require.NoError(t, storeErr(nil, "unused"))
}

func TestPromoteQueryClaimsWithSkipLocked(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	query, args, err := promoteQuery(sq.And{
		sq.Eq{"batch": nil},
		sq.LtOrEq{"scheduled_for": now},
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(query, "DELETE FROM neothink.notification_queue WHERE id IN (SELECT id FROM neothink.notification_queue"))
	require.Contains(t, query, "batch IS NULL")
	require.Contains(t, query, "scheduled_for <= $1")
	require.Contains(t, query, "FOR UPDATE SKIP LOCKED)")
	require.Contains(t, query, "RETURNING "+strings.Join(queueColumns, ", "))
	require.NotContains(t, query, "?")
	require.Equal(t, []any{now}, args)
}

func TestPromoteQueryBatchPlaceholders(t *testing.T) {
	cutoff := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	query, args, err := promoteQuery(sq.And{
		sq.Eq{"batch": types.FrequencyDaily},
		sq.Lt{"created_at": cutoff},
	})
	require.NoError(t, err)

	require.Contains(t, query, "batch = $1")
	require.Contains(t, query, "created_at < $2")
	require.Equal(t, []any{types.FrequencyDaily, cutoff}, args)
}

func TestUpsertSuffixSkipsKeyColumns(t *testing.T) {
	suffix := upsertSuffix([]string{"user_id", "theme", "created_at", "updated_at"})
	require.Equal(t, "ON CONFLICT (user_id) DO UPDATE SET theme = EXCLUDED.theme, updated_at = EXCLUDED.updated_at", suffix)
}

func TestOrderedValuesFollowsColumnOrder(t *testing.T) {
	settings := &types.PrivacySettings{UserID: "u1", ProfileVisibility: "private", ShowActivity: true}

	values := orderedValues([]string{"profile_visibility", "user_id", "show_activity"}, settings)
	require.Equal(t, []any{"private", "u1", true}, values)
}

func TestViolatesMatchesUniqueIndex(t *testing.T) {
	taken := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: usernameIndex}

	require.True(t, violates(taken, usernameIndex))
	require.True(t, violates(fmt.Errorf("scan profile: %w", taken), usernameIndex))

	require.False(t, violates(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "profiles_pkey"}, usernameIndex))
	require.False(t, violates(&pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: usernameIndex}, usernameIndex))
	require.False(t, violates(errors.New("connection reset"), usernameIndex))
	require.False(t, violates(nil, usernameIndex))
}
