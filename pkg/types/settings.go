package types

import "time"

type UserSettings struct {
	UserID          string    `db:"user_id" json:"user_id"`
	Theme           string    `db:"theme" json:"theme"`
	Language        string    `db:"language" json:"language"`
	Timezone        string    `db:"timezone" json:"timezone"`
	EmailUpdates    bool      `db:"email_updates" json:"email_updates"`
	MarketingEmails bool      `db:"marketing_emails" json:"marketing_emails"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:       userID,
		Theme:        "system",
		Language:     "en",
		Timezone:     "UTC",
		EmailUpdates: true,
	}
}

type PrivacySettings struct {
	UserID            string    `db:"user_id" json:"user_id"`
	ProfileVisibility string    `db:"profile_visibility" json:"profile_visibility"`
	ShowActivity      bool      `db:"show_activity" json:"show_activity"`
	AllowMessages     bool      `db:"allow_messages" json:"allow_messages"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

func DefaultPrivacySettings(userID string) *PrivacySettings {
	return &PrivacySettings{
		UserID:            userID,
		ProfileVisibility: "members",
		ShowActivity:      true,
		AllowMessages:     true,
	}
}
