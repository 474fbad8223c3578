package notify

import (
	"context"
	"fmt"
	"time"

	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

// SweepReport summarises one RunBatchSweep invocation.
type SweepReport struct {
	Scheduled      int   `json:"scheduled"`
	DailyDigests   int   `json:"daily_digests"`
	WeeklyDigests  int   `json:"weekly_digests"`
	PurgedExpired  int64 `json:"purged_expired"`
	DigestsSkipped bool  `json:"digests_skipped"`
}

// BatchProcessor promotes queued notifications into the feed. It is safe
// to run concurrently with itself because every promotion is claimed
// inside a single store transaction.
type BatchProcessor struct {
	logger        *logrus.Logger
	queue         QueueStore
	notifications NotificationStore
	publisher     Publisher
	location      *time.Location
	digestHour    int
	retention     time.Duration
	now           func() time.Time
}

type BatchConfig struct {
	Location      *time.Location
	DigestHour    int
	RetentionDays int
}

func NewBatchProcessor(
	logger *logrus.Logger,
	queue QueueStore,
	notifications NotificationStore,
	publisher Publisher,
	config BatchConfig,
) *BatchProcessor {
	if config.Location == nil {
		config.Location = time.UTC
	}

	if config.DigestHour < 0 || config.DigestHour > 23 {
		config.DigestHour = 9
	}

	return &BatchProcessor{
		logger:        logger,
		queue:         queue,
		notifications: notifications,
		publisher:     publisher,
		location:      config.Location,
		digestHour:    config.DigestHour,
		retention:     time.Duration(config.RetentionDays) * 24 * time.Hour,
		now:           time.Now,
	}
}

// SetClock overrides the processor's time source.
func (p *BatchProcessor) SetClock(now func() time.Time) {
	p.now = now
}

// RunBatchSweep flushes due scheduled rows on every call, flushes digests
// during the digest hour and purges expired notifications.
func (p *BatchProcessor) RunBatchSweep(ctx context.Context) (*SweepReport, error) {
	now := p.now().In(p.location)
	report := new(SweepReport)

	scheduled, err := p.queue.PromoteScheduled(ctx, now, promoteEach)
	if err != nil {
		return report, fmt.Errorf("failed to flush scheduled notifications: %w", err)
	}
	report.Scheduled = len(scheduled)
	p.announce(ctx, scheduled)

	if now.Hour() != p.digestHour {
		report.DigestsSkipped = true
	} else {
		midnight := startOfDay(now)

		daily, err := p.queue.PromoteBatch(ctx, types.FrequencyDaily, midnight, digestBuilder(types.FrequencyDaily))
		if err != nil {
			return report, fmt.Errorf("failed to flush daily digest: %w", err)
		}
		report.DailyDigests = len(daily)
		p.announce(ctx, daily)

		if now.Weekday() == time.Monday {
			weekly, err := p.queue.PromoteBatch(ctx, types.FrequencyWeekly, midnight, digestBuilder(types.FrequencyWeekly))
			if err != nil {
				return report, fmt.Errorf("failed to flush weekly digest: %w", err)
			}
			report.WeeklyDigests = len(weekly)
			p.announce(ctx, weekly)
		}
	}

	if p.retention > 0 {
		purged, err := p.notifications.DeleteCreatedBefore(ctx, now.Add(-p.retention))
		if err != nil {
			return report, fmt.Errorf("failed to purge expired notifications: %w", err)
		}
		report.PurgedExpired = purged
	}

	p.logger.WithFields(logrus.Fields{
		"scheduled":      report.Scheduled,
		"daily_digests":  report.DailyDigests,
		"weekly_digests": report.WeeklyDigests,
		"purged":         report.PurgedExpired,
	}).Info("notification sweep complete")

	return report, nil
}

func (p *BatchProcessor) announce(ctx context.Context, created []*types.Notification) {
	if p.publisher == nil {
		return
	}

	for _, n := range created {
		err := p.publisher.Publish(ctx, types.ChangeEvent{
			UserID:         n.UserID,
			Kind:           types.ChangeCreated,
			NotificationID: n.ID,
			At:             n.CreatedAt,
		})
		if err != nil {
			p.logger.WithError(err).WithField("user_id", n.UserID).Warn("failed to publish promoted notification")
		}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// promoteEach turns each queue row into the notification it stood in for.
func promoteEach(items []*types.QueuedNotification) []*types.Notification {
	out := make([]*types.Notification, 0, len(items))
	for _, item := range items {
		out = append(out, &types.Notification{
			UserID:      item.UserID,
			Title:       item.Title,
			Description: item.Description,
			Type:        item.Type,
			Data:        payload(item.Data),
		})
	}
	return out
}

// digestBuilder coalesces claimed rows into one SUMMARY per user. Users are
// emitted in order of their first queued item.
func digestBuilder(batch types.Frequency) PromoteFunc {
	return func(items []*types.QueuedNotification) []*types.Notification {
		order := make([]string, 0)
		byUser := make(map[string][]*types.QueuedNotification)
		for _, item := range items {
			if _, ok := byUser[item.UserID]; !ok {
				order = append(order, item.UserID)
			}
			byUser[item.UserID] = append(byUser[item.UserID], item)
		}

		out := make([]*types.Notification, 0, len(order))
		for _, userID := range order {
			group := byUser[userID]
			if len(group) == 0 {
				continue
			}
			out = append(out, summaryFor(userID, batch, group))
		}
		return out
	}
}

func summaryFor(userID string, batch types.Frequency, group []*types.QueuedNotification) *types.Notification {
	count := len(group)

	noun := "notifications"
	if count == 1 {
		noun = "notification"
	}

	entries := make([]map[string]any, 0, count)
	for _, item := range group {
		entries = append(entries, map[string]any{
			"id":          item.ID,
			"title":       item.Title,
			"description": item.Description,
			"type":        item.Type,
			"data":        payload(item.Data),
			"created_at":  item.CreatedAt,
		})
	}

	description := fmt.Sprintf("Your %s digest of %d %s", batch, count, noun)

	return &types.Notification{
		UserID:      userID,
		Title:       fmt.Sprintf("You have %d new %s", count, noun),
		Description: &description,
		Type:        types.NotificationTypeSummary,
		Data: map[string]any{
			"batch": string(batch),
			"count": count,
			"items": entries,
		},
	}
}
