package main

import (
	"context"
	"fmt"
	"time"

	"neothink/internal/db"
	"neothink/internal/logging"
	"neothink/internal/notify"
	"neothink/internal/realtime"
	"neothink/internal/seed"
	"neothink/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Backfill default notification preferences, optionally with demo data",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "demo",
			Usage: "Also create demo accounts and notifications (development only)",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := logging.New(cfg.LogLevel, cfg.Environment)

		if c.Bool("demo") && !cfg.IsDevelopment() {
			return fmt.Errorf("demo data can only be seeded in development")
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("connected to database")

		profileRepo := store.NewProfileRepository(pool)
		preferenceRepo := store.NewPreferenceRepository(pool)

		if c.Bool("demo") {
			if err := seed.SeedDemoUsers(ctx, logger, profileRepo); err != nil {
				return err
			}
		}

		if _, err := seed.BackfillPreferences(ctx, logger, profileRepo, preferenceRepo); err != nil {
			return err
		}

		if c.Bool("demo") {
			location, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("failed to load timezone: %w", err)
			}

			sender := notify.NewSender(
				logger,
				preferenceRepo,
				store.NewNotificationRepository(pool),
				store.NewQueueRepository(pool),
				location,
				notify.WithTimezones(store.NewSettingsRepository(pool)),
				notify.WithPublisher(realtime.NewHub()),
			)
			seed.SeedDemoNotifications(ctx, logger, sender)
		}

		return nil
	},
}
