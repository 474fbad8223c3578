package main

import (
	"context"
	"fmt"
	"time"

	"neothink/internal/db"
	"neothink/internal/logging"
	"neothink/internal/notify"
	"neothink/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "Run one notification batch sweep and exit",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := logging.New(cfg.LogLevel, cfg.Environment)

		location, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("failed to load timezone: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		// Live subscribers only exist in serve processes, so a standalone
		// sweep publishes to Redis when it is configured.
		bus, err := newBus(ctx, logger, cfg)
		if err != nil {
			return err
		}
		defer bus.Close()

		processor := notify.NewBatchProcessor(
			logger,
			store.NewQueueRepository(pool),
			store.NewNotificationRepository(pool),
			bus,
			notify.BatchConfig{
				Location:      location,
				DigestHour:    cfg.DigestHour,
				RetentionDays: cfg.RetentionDays,
			},
		)

		report, err := processor.RunBatchSweep(ctx)
		if err != nil {
			return fmt.Errorf("batch sweep failed: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"scheduled":       report.Scheduled,
			"daily_digests":   report.DailyDigests,
			"weekly_digests":  report.WeeklyDigests,
			"purged_expired":  report.PurgedExpired,
			"digests_skipped": report.DigestsSkipped,
		}).Info("batch sweep finished")

		return nil
	},
}
