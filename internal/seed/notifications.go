package seed

import (
	"context"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Send(ctx context.Context, c types.Candidate) types.SendResult
}

var demoNotifications = []struct {
	Type        types.NotificationType
	Title       string
	Description string
}{
	{Type: types.NotificationTypeAchievement, Title: "[seed] First milestone reached", Description: "You completed your first module."},
	{Type: types.NotificationTypeMessage, Title: "[seed] New message", Description: "A mentor replied to your question."},
	{Type: types.NotificationTypeCourseUpdate, Title: "[seed] Course updated", Description: "Two new lessons were added."},
	{Type: types.NotificationTypeEventReminder, Title: "[seed] Event tomorrow", Description: "Your live session starts at 18:00."},
	{Type: types.NotificationTypeSystem, Title: "[seed] Scheduled maintenance", Description: "The platform will be briefly unavailable on Sunday."},
}

// SeedDemoNotifications sends the demo candidates to every demo account
// through the regular delivery policy, so preferences still apply. It
// returns the number of candidates that were accepted.
func SeedDemoNotifications(ctx context.Context, logger *logrus.Logger, notifier Notifier) int {
	accepted := 0
	for _, userID := range demoUserIDs() {
		for _, demo := range demoNotifications {
			description := demo.Description
			result := notifier.Send(ctx, types.Candidate{
				UserID:      userID,
				Type:        demo.Type,
				Title:       demo.Title,
				Description: &description,
				Data:        map[string]any{"seed": true},
			})
			if !result.Success {
				logger.WithField("user_id", userID).WithField("error", result.Error).Warn("demo notification rejected")
				continue
			}
			accepted++
		}
	}

	logger.WithField("accepted", accepted).Info("demo notifications seeded")
	return accepted
}
