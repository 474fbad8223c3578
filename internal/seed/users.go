package seed

import (
	"context"
	"errors"
	"fmt"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

// ProfileSeeder is the subset of the profile store the demo seed needs.
type ProfileSeeder interface {
	Profile(ctx context.Context, userID string) (*types.Profile, error)
	Bootstrap(ctx context.Context, userID, email, fullName string) error
	CompleteOnboarding(ctx context.Context, userID, fullName, username string, pathway types.Pathway) (*types.Profile, error)
}

type demoUserSeed struct {
	ID       string
	Email    string
	FullName string
	Username string
	Pathway  types.Pathway
}

// Demo accounts for local development. An empty Pathway leaves the account
// mid-onboarding.
var demoUsers = []demoUserSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "ava.williams+seed1@example.com", FullName: "Ava Williams", Username: "ava_w", Pathway: types.PathwayAscender},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "liam.johnson+seed2@example.com", FullName: "Liam Johnson", Username: "liam_j", Pathway: types.PathwayNeothinker},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "noah.brown+seed3@example.com", FullName: "Noah Brown", Username: "noah_b", Pathway: types.PathwayImmortal},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "mia.davis+seed4@example.com", FullName: "Mia Davis"},
}

func demoUserIDs() []string {
	ids := make([]string, 0, len(demoUsers))
	for _, user := range demoUsers {
		ids = append(ids, user.ID)
	}
	return ids
}

// SeedDemoUsers provisions every demo account and completes onboarding for
// the ones with a pathway. Re-running it is a no-op for existing accounts.
func SeedDemoUsers(ctx context.Context, logger *logrus.Logger, profiles ProfileSeeder) error {
	seeded := 0
	for _, demo := range demoUsers {
		existing, err := profiles.Profile(ctx, demo.ID)
		if err != nil && !errors.Is(err, types.ErrProfileNotFound) {
			return fmt.Errorf("failed to fetch demo user %s: %w", demo.ID, err)
		}
		if existing != nil && (existing.OnboardingCompleted || demo.Pathway == "") {
			continue
		}

		if err := profiles.Bootstrap(ctx, demo.ID, demo.Email, demo.FullName); err != nil {
			return fmt.Errorf("failed to bootstrap demo user %s: %w", demo.ID, err)
		}

		if demo.Pathway != "" {
			if _, err := profiles.CompleteOnboarding(ctx, demo.ID, demo.FullName, demo.Username, demo.Pathway); err != nil {
				return fmt.Errorf("failed to onboard demo user %s: %w", demo.ID, err)
			}
		}
		seeded++
	}

	logger.WithField("seeded", seeded).Info("demo users seeded")
	return nil
}
