package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neothink/internal/utils"
	"neothink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var preferenceColumns = utils.StructTagValues(types.NotificationPreference{})

type PreferenceRepository struct {
	pool *pgxpool.Pool
}

func NewPreferenceRepository(pool *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{pool: pool}
}

func (r *PreferenceRepository) Preference(ctx context.Context, userID string, notificationType types.NotificationType) (*types.NotificationPreference, error) {
	query, args, err := psql().
		Select(preferenceColumns...).
		From(preferenceTableName).
		Where(sq.Eq{"user_id": userID, "type": notificationType}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate preference query: %w", err)
	}

	var pref types.NotificationPreference
	err = pgxscan.Get(ctx, r.pool, &pref, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrPreferenceNotFound
		}
		return nil, storeErr(err, "failed to fetch preference")
	}

	return &pref, nil
}

func (r *PreferenceRepository) PreferencesByUserID(ctx context.Context, userID string) ([]*types.NotificationPreference, error) {
	query, args, err := psql().
		Select(preferenceColumns...).
		From(preferenceTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate preferences query: %w", err)
	}

	prefs := make([]*types.NotificationPreference, 0, len(types.PreferenceTypes))
	if err := pgxscan.Select(ctx, r.pool, &prefs, query, args...); err != nil {
		return nil, storeErr(err, "failed to fetch preferences")
	}

	return prefs, nil
}

// EnsureDefaults inserts the default row for every type the user is missing.
func (r *PreferenceRepository) EnsureDefaults(ctx context.Context, userID string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return insertDefaultPreferences(ctx, tx, userID, time.Now())
	})
}

func insertDefaultPreferences(ctx context.Context, tx pgx.Tx, userID string, now time.Time) error {
	builder := psql().Insert(preferenceTableName).Columns(preferenceColumns...)
	for _, t := range types.PreferenceTypes {
		pref := types.DefaultPreference(userID, t)
		pref.ID = utils.NanoID()
		pref.CreatedAt, pref.UpdatedAt = now, now
		builder = builder.Values(orderedValues(preferenceColumns, pref)...)
	}

	query, args, err := builder.Suffix("ON CONFLICT (user_id, type) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate default preferences query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return storeErr(err, "failed to insert default preferences")
	}

	return nil
}

// UpdatePreference writes a single field and returns the updated row.
func (r *PreferenceRepository) UpdatePreference(ctx context.Context, userID string, update *types.PreferenceUpdate) (*types.NotificationPreference, error) {
	query, args, err := psql().
		Update(preferenceTableName).
		Set(string(update.Field), update.Value).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"user_id": userID, "type": update.Type}).
		Suffix("RETURNING " + strings.Join(preferenceColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update preference query: %w", err)
	}

	var pref types.NotificationPreference
	err = pgxscan.Get(ctx, r.pool, &pref, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrPreferenceNotFound
		}
		return nil, storeErr(err, "failed to update preference")
	}

	return &pref, nil
}
