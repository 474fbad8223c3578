package seed

import (
	"context"
	"errors"
	"io"
	"testing"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type memProfiles struct {
	profiles   map[string]*types.Profile
	bootstraps int
	missing    []string
}

func (m *memProfiles) Profile(_ context.Context, userID string) (*types.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	return p, nil
}

func (m *memProfiles) Bootstrap(_ context.Context, userID, email, _ string) error {
	m.bootstraps++
	if _, ok := m.profiles[userID]; !ok {
		m.profiles[userID] = &types.Profile{ID: userID, Email: &email}
	}
	return nil
}

func (m *memProfiles) CompleteOnboarding(_ context.Context, userID, fullName, username string, pathway types.Pathway) (*types.Profile, error) {
	p := m.profiles[userID]
	p.FullName, p.Username, p.Pathway = &fullName, &username, &pathway
	p.OnboardingCompleted = true
	return p, nil
}

func (m *memProfiles) IDsMissingPreferences(context.Context) ([]string, error) {
	return m.missing, nil
}

func TestSeedDemoUsersIsIdempotent(t *testing.T) {
	profiles := &memProfiles{profiles: map[string]*types.Profile{}}

	require.NoError(t, SeedDemoUsers(context.Background(), quietLogger(), profiles))
	require.Len(t, profiles.profiles, len(demoUsers))
	require.Equal(t, len(demoUsers), profiles.bootstraps)

	onboarded := 0
	for _, p := range profiles.profiles {
		if p.OnboardingCompleted {
			onboarded++
		}
	}
	require.Equal(t, 3, onboarded)

	require.NoError(t, SeedDemoUsers(context.Background(), quietLogger(), profiles))
	require.Equal(t, len(demoUsers), profiles.bootstraps)
}

type recordingEnsurer struct {
	ensured []string
	failOn  string
}

func (r *recordingEnsurer) EnsureDefaults(_ context.Context, userID string) error {
	if userID == r.failOn {
		return errors.New("boom")
	}
	r.ensured = append(r.ensured, userID)
	return nil
}

func TestBackfillPreferences(t *testing.T) {
	profiles := &memProfiles{missing: []string{"a", "b"}}
	ensurer := &recordingEnsurer{}

	n, err := BackfillPreferences(context.Background(), quietLogger(), profiles, ensurer)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"a", "b"}, ensurer.ensured)

	ensurer = &recordingEnsurer{failOn: "b"}
	_, err = BackfillPreferences(context.Background(), quietLogger(), profiles, ensurer)
	require.Error(t, err)
}

type countingNotifier struct {
	sent   []types.Candidate
	reject types.NotificationType
}

func (c *countingNotifier) Send(_ context.Context, candidate types.Candidate) types.SendResult {
	c.sent = append(c.sent, candidate)
	if candidate.Type == c.reject {
		return types.SendResult{Success: false, Error: "rejected"}
	}
	return types.SendResult{Success: true}
}

func TestSeedDemoNotifications(t *testing.T) {
	notifier := &countingNotifier{reject: types.NotificationTypeSystem}

	accepted := SeedDemoNotifications(context.Background(), quietLogger(), notifier)

	require.Len(t, notifier.sent, len(demoUsers)*len(demoNotifications))
	require.Equal(t, len(demoUsers)*(len(demoNotifications)-1), accepted)
	for _, c := range notifier.sent {
		require.Equal(t, true, c.Data["seed"])
	}
}
