package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/cron"
	"github.com/meinhoongagan/medicnote/db"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/redis"
	"github.com/meinhoongagan/medicnote/utils"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func newUploader(cfg *config.Config) (utils.Uploader, error) {
	if cfg.CloudinaryCloudName == "" {
		logger.Log.Warn().Msg("Cloudinary is not configured, uploads are kept in memory")
		return utils.NewMemoryUploader(), nil
	}
	return utils.NewCloudinaryUploader(cfg)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := db.NewStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	feed, closeFeed, err := redis.NewFeed(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	uploader, err := newUploader(cfg)
	if err != nil {
		return fmt.Errorf("init uploader: %w", err)
	}
	mailer := utils.NewMailer(cfg)

	svc := NewServices(cfg, store, feed, uploader, mailer)
	app := NewApp(cfg, svc)

	scheduler, err := cron.Start(cfg.ReminderSchedule,
		cron.NewReminders(svc.Appointments, store.Profiles, svc.Notifications, mailer))
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("port", cfg.Port).Msg("server started")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
