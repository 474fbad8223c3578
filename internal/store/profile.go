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

var profileColumns = utils.StructTagValues(types.Profile{})

// usernameIndex is the case-insensitive unique index on profiles.username.
const usernameIndex = "profiles_username_key"

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, r.pool, &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProfileNotFound
		}
		return nil, storeErr(err, "failed to fetch profile")
	}

	return &profile, nil
}

// Bootstrap provisions everything a new account needs: the profile row,
// one default preference row per notification type and both settings rows.
// Existing rows are left untouched, so it is safe to call repeatedly.
func (r *ProfileRepository) Bootstrap(ctx context.Context, userID, email, fullName string) error {
	now := time.Now()

	var emailPtr *string
	if trimmed := strings.TrimSpace(email); trimmed != "" {
		emailPtr = &trimmed
	}

	var fullNamePtr *string
	if trimmed := strings.TrimSpace(fullName); trimmed != "" {
		fullNamePtr = &trimmed
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query, args, err := psql().
			Insert(profileTableName).
			Columns("id", "email", "full_name", "onboarding_completed", "created_at", "updated_at").
			Values(userID, emailPtr, fullNamePtr, false, now, now).
			Suffix("ON CONFLICT (id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate bootstrap profile query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return storeErr(err, "failed to create profile")
		}

		if err := insertDefaultPreferences(ctx, tx, userID, now); err != nil {
			return err
		}

		settings := types.DefaultUserSettings(userID)
		settings.CreatedAt, settings.UpdatedAt = now, now
		query, args, err = psql().
			Insert(userSettingsTableName).
			SetMap(utils.StructToMap(settings)).
			Suffix("ON CONFLICT (user_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate bootstrap settings query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return storeErr(err, "failed to create user settings")
		}

		privacy := types.DefaultPrivacySettings(userID)
		privacy.CreatedAt, privacy.UpdatedAt = now, now
		query, args, err = psql().
			Insert(privacySettingsTableName).
			SetMap(utils.StructToMap(privacy)).
			Suffix("ON CONFLICT (user_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate bootstrap privacy query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return storeErr(err, "failed to create privacy settings")
		}

		return nil
	})
}

func (r *ProfileRepository) Update(ctx context.Context, userID string, update *types.ProfileUpdate) (*types.Profile, error) {
	set := map[string]any{"updated_at": time.Now()}
	if update.FullName != nil {
		set["full_name"] = *update.FullName
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Pathway != nil {
		set["pathway"] = *update.Pathway
	}
	if update.AvatarURL != nil {
		set["avatar_url"] = *update.AvatarURL
	}

	return r.update(ctx, userID, set)
}

// CompleteOnboarding records the onboarding answers and flips the gate.
func (r *ProfileRepository) CompleteOnboarding(ctx context.Context, userID, fullName, username string, pathway types.Pathway) (*types.Profile, error) {
	return r.update(ctx, userID, map[string]any{
		"full_name":            fullName,
		"username":             username,
		"pathway":              pathway,
		"onboarding_completed": true,
		"updated_at":           time.Now(),
	})
}

func (r *ProfileRepository) update(ctx context.Context, userID string, set map[string]any) (*types.Profile, error) {
	query, args, err := psql().
		Update(profileTableName).
		SetMap(set).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update profile query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, r.pool, &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProfileNotFound
		}
		if violates(err, usernameIndex) {
			return nil, types.ErrUsernameTaken()
		}
		return nil, storeErr(err, "failed to update profile")
	}

	return &profile, nil
}

func (r *ProfileRepository) UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error) {
	query, args, err := psql().
		Select("1").
		From(profileTableName).
		Where(sq.Eq{"lower(username)": strings.ToLower(username)}).
		Where(sq.NotEq{"id": exceptUserID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate username query: %w", err)
	}

	var one int
	err = pgxscan.Get(ctx, r.pool, &one, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, storeErr(err, "failed to check username")
	}

	return true, nil
}

// DeleteAccount removes every row owned by the user.
func (r *ProfileRepository) DeleteAccount(ctx context.Context, userID string) error {
	tables := []string{
		queueTableName,
		notificationTableName,
		preferenceTableName,
		privacySettingsTableName,
		userSettingsTableName,
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, table := range tables {
			query, args, err := psql().Delete(table).Where(sq.Eq{"user_id": userID}).ToSql()
			if err != nil {
				return fmt.Errorf("failed to generate delete query for %s: %w", table, err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return storeErr(err, "failed to delete from "+table)
			}
		}

		query, args, err := psql().Delete(profileTableName).Where(sq.Eq{"id": userID}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate delete profile query: %w", err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return storeErr(err, "failed to delete profile")
		}
		if tag.RowsAffected() == 0 {
			return types.ErrProfileNotFound
		}

		return nil
	})
}

// IDsMissingPreferences lists profiles with fewer preference rows than
// there are notification types.
func (r *ProfileRepository) IDsMissingPreferences(ctx context.Context) ([]string, error) {
	query, args, err := psql().
		Select("p.id").
		From(profileTableName + " p").
		LeftJoin(preferenceTableName + " np ON np.user_id = p.id").
		GroupBy("p.id").
		Having(sq.Lt{"count(np.id)": len(types.PreferenceTypes)}).
		OrderBy("p.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate missing preferences query: %w", err)
	}

	ids := make([]string, 0)
	if err := pgxscan.Select(ctx, r.pool, &ids, query, args...); err != nil {
		return nil, storeErr(err, "failed to list profiles missing preferences")
	}

	return ids, nil
}
