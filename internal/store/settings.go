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
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	userSettingsColumns    = utils.StructTagValues(types.UserSettings{})
	privacySettingsColumns = utils.StructTagValues(types.PrivacySettings{})
)

type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// UserSettings returns the stored row, or the defaults when none exists yet.
func (r *SettingsRepository) UserSettings(ctx context.Context, userID string) (*types.UserSettings, error) {
	query, args, err := psql().
		Select(userSettingsColumns...).
		From(userSettingsTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user settings query: %w", err)
	}

	var settings types.UserSettings
	err = pgxscan.Get(ctx, r.pool, &settings, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return types.DefaultUserSettings(userID), nil
		}
		return nil, storeErr(err, "failed to fetch user settings")
	}

	return &settings, nil
}

func (r *SettingsRepository) SaveUserSettings(ctx context.Context, settings *types.UserSettings) (*types.UserSettings, error) {
	now := time.Now()
	settings.UpdatedAt = now
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}

	query, args, err := psql().
		Insert(userSettingsTableName).
		Columns(userSettingsColumns...).
		Values(orderedValues(userSettingsColumns, settings)...).
		Suffix(upsertSuffix(userSettingsColumns) + " RETURNING " + strings.Join(userSettingsColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate save user settings query: %w", err)
	}

	var saved types.UserSettings
	if err := pgxscan.Get(ctx, r.pool, &saved, query, args...); err != nil {
		return nil, storeErr(err, "failed to save user settings")
	}

	return &saved, nil
}

func (r *SettingsRepository) PrivacySettings(ctx context.Context, userID string) (*types.PrivacySettings, error) {
	query, args, err := psql().
		Select(privacySettingsColumns...).
		From(privacySettingsTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate privacy settings query: %w", err)
	}

	var settings types.PrivacySettings
	err = pgxscan.Get(ctx, r.pool, &settings, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return types.DefaultPrivacySettings(userID), nil
		}
		return nil, storeErr(err, "failed to fetch privacy settings")
	}

	return &settings, nil
}

func (r *SettingsRepository) SavePrivacySettings(ctx context.Context, settings *types.PrivacySettings) (*types.PrivacySettings, error) {
	now := time.Now()
	settings.UpdatedAt = now
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}

	query, args, err := psql().
		Insert(privacySettingsTableName).
		Columns(privacySettingsColumns...).
		Values(orderedValues(privacySettingsColumns, settings)...).
		Suffix(upsertSuffix(privacySettingsColumns) + " RETURNING " + strings.Join(privacySettingsColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate save privacy settings query: %w", err)
	}

	var saved types.PrivacySettings
	if err := pgxscan.Get(ctx, r.pool, &saved, query, args...); err != nil {
		return nil, storeErr(err, "failed to save privacy settings")
	}

	return &saved, nil
}

// Timezone reports the user's configured IANA zone, or "" if unset.
func (r *SettingsRepository) Timezone(ctx context.Context, userID string) (string, error) {
	query, args, err := psql().
		Select("timezone").
		From(userSettingsTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to generate timezone query: %w", err)
	}

	var tz string
	err = pgxscan.Get(ctx, r.pool, &tz, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return "", nil
		}
		return "", storeErr(err, "failed to fetch timezone")
	}

	return tz, nil
}

// upsertSuffix keeps created_at and overwrites everything else on conflict.
func upsertSuffix(columns []string) string {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "user_id" || c == "created_at" {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return "ON CONFLICT (user_id) DO UPDATE SET " + strings.Join(sets, ", ")
}
