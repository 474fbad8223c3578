package types

import (
	"slices"
	"time"
)

type NotificationType string

const (
	NotificationTypeAchievement      NotificationType = "ACHIEVEMENT"
	NotificationTypeMessage          NotificationType = "MESSAGE"
	NotificationTypeMention          NotificationType = "MENTION"
	NotificationTypeComment          NotificationType = "COMMENT"
	NotificationTypeFollow           NotificationType = "FOLLOW"
	NotificationTypeEventReminder    NotificationType = "EVENT_REMINDER"
	NotificationTypeCourseUpdate     NotificationType = "COURSE_UPDATE"
	NotificationTypeContentPublished NotificationType = "CONTENT_PUBLISHED"
	NotificationTypeCommunityPost    NotificationType = "COMMUNITY_POST"
	NotificationTypePathwayUpdate    NotificationType = "PATHWAY_UPDATE"
	NotificationTypeOnboarding       NotificationType = "ONBOARDING"
	NotificationTypeSecurity         NotificationType = "SECURITY"
	NotificationTypeBilling          NotificationType = "BILLING"
	NotificationTypeSystem           NotificationType = "SYSTEM"
	NotificationTypeAnnouncement     NotificationType = "ANNOUNCEMENT"

	// NotificationTypeSummary is only produced by digest flushes.
	NotificationTypeSummary NotificationType = "SUMMARY"
)

// PreferenceTypes are the categories a user holds a preference row for.
var PreferenceTypes = []NotificationType{
	NotificationTypeAchievement,
	NotificationTypeMessage,
	NotificationTypeMention,
	NotificationTypeComment,
	NotificationTypeFollow,
	NotificationTypeEventReminder,
	NotificationTypeCourseUpdate,
	NotificationTypeContentPublished,
	NotificationTypeCommunityPost,
	NotificationTypePathwayUpdate,
	NotificationTypeOnboarding,
	NotificationTypeSecurity,
	NotificationTypeBilling,
	NotificationTypeSystem,
	NotificationTypeAnnouncement,
}

func (t NotificationType) Valid() bool {
	return slices.Contains(PreferenceTypes, t)
}

// AlwaysInstant types cannot be batched into digests.
func (t NotificationType) AlwaysInstant() bool {
	return t == NotificationTypeSecurity || t == NotificationTypeBilling
}

type Notification struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	Title       string           `db:"title" json:"title"`
	Description *string          `db:"description" json:"description"`
	Type        NotificationType `db:"type" json:"type"`
	Read        bool             `db:"read" json:"read"`
	Data        map[string]any   `db:"data" json:"data"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

type QueuedNotification struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Title        string           `db:"title" json:"title"`
	Description  *string          `db:"description" json:"description"`
	Type         NotificationType `db:"type" json:"type"`
	Data         map[string]any   `db:"data" json:"data"`
	ScheduledFor *time.Time       `db:"scheduled_for" json:"scheduled_for"`
	Batch        *Frequency       `db:"batch" json:"batch"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Candidate is the input to sendNotification.
type Candidate struct {
	UserID      string           `json:"userId"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Data        map[string]any   `json:"data,omitempty"`
}

const (
	ReasonNotificationsDisabled    = "notifications_disabled"
	ReasonScheduledAfterQuietHours = "scheduled_after_quiet_hours"
	ReasonBatched                  = "batched"
)

// SendResult is the outcome of sendNotification. Success is false only when
// the candidate was invalid or the store failed.
type SendResult struct {
	Success        bool       `json:"success"`
	Reason         string     `json:"reason,omitempty"`
	ScheduledFor   *time.Time `json:"scheduledFor,omitempty"`
	BatchFrequency Frequency  `json:"batchFrequency,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type NotificationFilter struct {
	UnreadOnly bool
	Limit      uint64
}

type NotificationList struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}

type ChangeKind string

const (
	ChangeCreated    ChangeKind = "created"
	ChangeRead       ChangeKind = "read"
	ChangeReadAll    ChangeKind = "read_all"
	ChangeDeleted    ChangeKind = "deleted"
	ChangeDeletedAll ChangeKind = "deleted_all"
)

// ChangeEvent tells a subscriber that a user's feed changed. Subscribers
// re-fetch rather than patch local state.
type ChangeEvent struct {
	UserID         string     `json:"user_id"`
	Kind           ChangeKind `json:"kind"`
	NotificationID string     `json:"notification_id,omitempty"`
	At             time.Time  `json:"at"`
}
