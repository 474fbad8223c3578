package server

import (
	"context"
	"io"

	"neothink/internal/auth"
	"neothink/internal/ratelimit"
	"neothink/pkg/types"
)

type ProfileStore interface {
	Profile(ctx context.Context, userID string) (*types.Profile, error)
	Bootstrap(ctx context.Context, userID, email, fullName string) error
	Update(ctx context.Context, userID string, update *types.ProfileUpdate) (*types.Profile, error)
	CompleteOnboarding(ctx context.Context, userID, fullName, username string, pathway types.Pathway) (*types.Profile, error)
	UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error)
	DeleteAccount(ctx context.Context, userID string) error
}

type PreferenceStore interface {
	PreferencesByUserID(ctx context.Context, userID string) ([]*types.NotificationPreference, error)
	EnsureDefaults(ctx context.Context, userID string) error
	UpdatePreference(ctx context.Context, userID string, update *types.PreferenceUpdate) (*types.NotificationPreference, error)
}

type SettingsStore interface {
	UserSettings(ctx context.Context, userID string) (*types.UserSettings, error)
	SaveUserSettings(ctx context.Context, settings *types.UserSettings) (*types.UserSettings, error)
	PrivacySettings(ctx context.Context, userID string) (*types.PrivacySettings, error)
	SavePrivacySettings(ctx context.Context, settings *types.PrivacySettings) (*types.PrivacySettings, error)
}

type NotificationFeed interface {
	List(ctx context.Context, userID string, filter types.NotificationFilter) (*types.NotificationList, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, notificationID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	OnChange(userID string, fn func(types.ChangeEvent)) func()
}

type Notifier interface {
	Send(ctx context.Context, c types.Candidate) types.SendResult
}

type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type RateLimiter interface {
	CheckRateLimit(identifier string) ratelimit.Result
	Reset(identifier string)
}

type AvatarStorage interface {
	UploadFile(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
}
