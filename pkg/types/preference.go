package types

import "time"

type Frequency string

const (
	FrequencyInstant Frequency = "instant"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyNever   Frequency = "never"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyInstant, FrequencyDaily, FrequencyWeekly, FrequencyNever:
		return true
	}
	return false
}

// NotificationPreference is unique per (UserID, Type). Quiet hours are
// stored as "HH:MM" strings in the recipient's configured timezone.
type NotificationPreference struct {
	ID              string           `db:"id" json:"id"`
	UserID          string           `db:"user_id" json:"user_id"`
	Type            NotificationType `db:"type" json:"type"`
	Enabled         bool             `db:"enabled" json:"enabled"`
	Frequency       Frequency        `db:"frequency" json:"frequency"`
	QuietHoursStart *string          `db:"quiet_hours_start" json:"quiet_hours_start"`
	QuietHoursEnd   *string          `db:"quiet_hours_end" json:"quiet_hours_end"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// DefaultPreference is the row provisioned for a new account.
func DefaultPreference(userID string, t NotificationType) *NotificationPreference {
	return &NotificationPreference{
		UserID:    userID,
		Type:      t,
		Enabled:   true,
		Frequency: FrequencyInstant,
	}
}

// PreferenceField names the single column a preference update may touch.
type PreferenceField string

const (
	PreferenceFieldEnabled         PreferenceField = "enabled"
	PreferenceFieldFrequency       PreferenceField = "frequency"
	PreferenceFieldQuietHoursStart PreferenceField = "quiet_hours_start"
	PreferenceFieldQuietHoursEnd   PreferenceField = "quiet_hours_end"
)

// PreferenceUpdate changes exactly one field of one (user, type) row.
// Value is bool for enabled, Frequency for frequency and *string for the
// quiet hours bounds.
type PreferenceUpdate struct {
	Type  NotificationType
	Field PreferenceField
	Value any
}
