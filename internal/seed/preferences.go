package seed

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PreferenceBackfiller finds accounts whose preference rows are incomplete
// and fills in the defaults.
type PreferenceBackfiller interface {
	IDsMissingPreferences(ctx context.Context) ([]string, error)
}

type DefaultsEnsurer interface {
	EnsureDefaults(ctx context.Context, userID string) error
}

// BackfillPreferences inserts the default preference rows for every profile
// created before a notification type existed. Existing rows are untouched.
func BackfillPreferences(ctx context.Context, logger *logrus.Logger, profiles PreferenceBackfiller, preferences DefaultsEnsurer) (int, error) {
	ids, err := profiles.IDsMissingPreferences(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles missing preferences: %w", err)
	}

	for _, id := range ids {
		if err := preferences.EnsureDefaults(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to backfill preferences for %s: %w", id, err)
		}
	}

	logger.WithField("profiles", len(ids)).Info("notification preferences backfilled")
	return len(ids), nil
}
