package main

import (
	"context"
	"fmt"

	"neothink/internal/db"
	"neothink/internal/logging"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply database migrations",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := logging.New(cfg.LogLevel, cfg.Environment)
		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		logger.Info("migrations applied")
		return nil
	},
	Subcommands: []*cli.Command{
		{
			Name:  "rollback",
			Usage: "Revert the most recent migrations",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "steps",
					Usage: "Number of migrations to revert",
					Value: 1,
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c.String("env-prefix"))
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}

				steps := c.Int("steps")
				if steps <= 0 {
					return fmt.Errorf("steps must be positive")
				}

				logger := logging.New(cfg.LogLevel, cfg.Environment)
				ctx := context.Background()

				pool, err := db.Connect(ctx, cfg)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer pool.Close()

				if err := db.Rollback(pool, steps); err != nil {
					return err
				}

				logger.WithField("steps", steps).Info("migrations rolled back")
				return nil
			},
		},
	},
}
