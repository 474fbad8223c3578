package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neothink/internal/auth"
	"neothink/internal/db"
	"neothink/internal/logging"
	"neothink/internal/notify"
	"neothink/internal/ratelimit"
	"neothink/internal/realtime"
	"neothink/internal/server"
	"neothink/internal/storage"
	"neothink/internal/store"
	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server and the notification sweeper",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply pending migrations before serving",
		},
		&cli.BoolFlag{
			Name:  "no-sweeper",
			Usage: "Do not run the batch sweeper in this process",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(cCtx.String("env-prefix"))
	if err != nil {
		return err
	}

	if err := requireServeConfig(config); err != nil {
		return err
	}

	logger := logging.New(config.LogLevel, config.Environment)

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	hashKey, blockKey, err := cookieKeys(config)
	if err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx, config.StorageRegion)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cCtx.Bool("migrate") {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	profileRepo := store.NewProfileRepository(pool)
	preferenceRepo := store.NewPreferenceRepository(pool)
	notificationRepo := store.NewNotificationRepository(pool)
	queueRepo := store.NewQueueRepository(pool)
	settingsRepo := store.NewSettingsRepository(pool)

	bus, err := newBus(ctx, logger, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.WithError(err).Warn("failed to close realtime bus")
		}
	}()

	sender := notify.NewSender(logger, preferenceRepo, notificationRepo, queueRepo, location,
		notify.WithTimezones(settingsRepo),
		notify.WithPublisher(bus),
	)
	feed := notify.NewFeed(logger, notificationRepo, bus, bus)

	processor := notify.NewBatchProcessor(logger, queueRepo, notificationRepo, bus, notify.BatchConfig{
		Location:      location,
		DigestHour:    config.DigestHour,
		RetentionDays: config.RetentionDays,
	})

	var sweeper *notify.Sweeper
	if !cCtx.Bool("no-sweeper") {
		sweeper = notify.NewSweeper(processor, logger, time.Duration(config.SweepIntervalSec)*time.Second)
		sweeper.Start()
	}

	limiter := ratelimit.New(ratelimit.Config{
		Requests: config.RateLimitRequests,
		Window:   time.Duration(config.RateLimitWindowSec) * time.Second,
	})

	provider := auth.NewSupabaseProvider(config.SupabaseProjectRef, config.SupabaseAnonKey, config.SupabaseURL)

	verifier, err := auth.NewJWKSVerifier(ctx, auth.JWKSURL(config.SupabaseURL))
	if err != nil {
		return err
	}

	cookies := auth.NewCookies(hashKey, blockKey, auth.CookieConfig{
		Name:        config.CookieName,
		MaxAge:      time.Duration(config.SessionMaxAgeSec) * time.Second,
		IdleTimeout: time.Duration(config.SessionIdleTimeoutSec) * time.Second,
		Secure:      !config.IsDevelopment(),
	})

	avatars := storage.NewSupabaseStorage(
		storage.NewS3Client(awsConfig, config.StorageEndpoint),
		config.AvatarBucketName,
		config.AvatarPublicBaseURL,
	)

	srv := server.New(
		config,
		logger,
		provider,
		verifier,
		cookies,
		limiter,
		profileRepo,
		preferenceRepo,
		settingsRepo,
		feed,
		sender,
		avatars,
	)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sweeper != nil {
		sweeper.Stop()
	}

	return srv.Stop(shutdownCtx)
}

// newBus uses Redis for cross-instance fan-out when configured and an
// in-process hub otherwise.
func newBus(ctx context.Context, logger *logrus.Logger, config *types.Config) (realtime.Bus, error) {
	if config.RedisAddr == "" {
		logger.Info("realtime fan-out is in-process only")
		return realtime.NewHub(), nil
	}

	bus, err := realtime.NewRedisBus(ctx, logger, config.RedisAddr, config.RedisChannel)
	if err != nil {
		return nil, err
	}

	if err := bus.Start(ctx); err != nil {
		_ = bus.Close()
		return nil, err
	}

	logger.WithField("channel", config.RedisChannel).Info("realtime fan-out via redis")
	return bus, nil
}
