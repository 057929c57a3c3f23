package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"sixchan/config"
	"sixchan/database"
	"sixchan/models"
	"sixchan/utils"
)

// Application is constructed once per process and handed to the handlers.
type Application struct {
	db          *database.DatabaseService
	rateLimiter *models.RateLimiter
	sessions    *utils.SessionManager
	mailer      utils.Mailer
	backups     utils.BackupStorage
	logger      *slog.Logger
	settings    *config.Settings
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService    { return a.db }
func (a *Application) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *Application) Sessions() *utils.SessionManager  { return a.sessions }
func (a *Application) Mailer() utils.Mailer             { return a.mailer }
func (a *Application) Backups() utils.BackupStorage     { return a.backups }
func (a *Application) Logger() *slog.Logger             { return a.logger }
func (a *Application) BaseURL() string                  { return a.settings.BaseURL }
func (a *Application) BackupDir() string                { return a.settings.Database.BackupDir }

// newApplication opens the database and builds every collaborator the
// server needs from settings.
func newApplication(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*Application, error) {
	sessions, err := utils.NewSessionManager(settings.Session.Secret, settings.Session.TTL, utils.SystemClock)
	if err != nil {
		return nil, fmt.Errorf("session setup: %w (set SIXCHAN_SESSION_SECRET)", err)
	}

	var mailer utils.Mailer
	if settings.Mail.Enabled {
		mailer = &utils.SMTPMailer{
			Host:     settings.Mail.Host,
			Port:     settings.Mail.Port,
			Username: settings.Mail.Username,
			Password: settings.Mail.Password,
			From:     settings.Mail.From,
		}
		logger.Info("SMTP mailer initialized", "host", settings.Mail.Host, "port", settings.Mail.Port)
	} else {
		mailer = &utils.LogMailer{Logger: logger}
		logger.Info("Mail delivery disabled, logging outgoing mail")
	}

	backups, err := newBackupStorage(ctx, settings, logger)
	if err != nil {
		return nil, err
	}

	db, err := database.InitDB(settings.Database.Driver, settings.Database.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Application{
		db:          db,
		rateLimiter: models.NewRateLimiter(settings.Rate.Every, settings.Rate.Burst, settings.Rate.Prune, settings.Rate.Expire),
		sessions:    sessions,
		mailer:      mailer,
		backups:     backups,
		logger:      logger,
		settings:    settings,
	}, nil
}

// newBackupStorage picks S3 when enabled, else the local backup directory.
func newBackupStorage(ctx context.Context, settings *config.Settings, logger *slog.Logger) (utils.BackupStorage, error) {
	if !settings.S3.Enabled {
		logger.Info("Local backup storage initialized", "dir", settings.Database.BackupDir)
		return &utils.LocalStorage{Dir: settings.Database.BackupDir}, nil
	}
	s3 := settings.S3
	storage, err := utils.NewS3Storage(ctx, s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Bucket, s3.Region, s3.PublicURL, s3.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	logger.Info("S3 backup storage initialized", "endpoint", s3.Endpoint, "bucket", s3.Bucket)
	return storage, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
