package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sixchan/config"
	"sixchan/database"
	"sixchan/handlers"
	"sixchan/models"

	"github.com/spf13/cobra"
)

var (
	configDir string
	settings  *config.Settings
	logger    *slog.Logger

	rootCmd = &cobra.Command{
		Use:          "sixchan",
		Short:        "sixchan imageboard server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(logger)
			s, err := config.Load(configDir)
			if err != nil {
				return err
			}
			settings = s
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			logger.Info("Database is up to date", "driver", db.Driver())
			return nil
		},
	}

	dropTablesCmd = &cobra.Command{
		Use:   "drop-tables",
		Short: "Drop every table (destructive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to drop tables without --yes")
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.DropTables(cmd.Context())
		},
	}

	setRoleCmd = &cobra.Command{
		Use:   "set-role [username] [general|moderator|administrator]",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.SetRole(cmd.Context(), args[0], models.Role(args[1]))
		},
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the SQLite database into backup storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			storage, err := newBackupStorage(ctx, settings, logger)
			if err != nil {
				return err
			}
			path, err := db.BackupDatabase(ctx, settings.Database.BackupDir)
			if err != nil {
				return err
			}
			location, err := storage.Store(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory holding config.yaml")
	dropTablesCmd.Flags().Bool("yes", false, "Confirm dropping every table")
	rootCmd.AddCommand(serveCmd, migrateCmd, dropTablesCmd, setRoleCmd, backupCmd)
}

func openDB() (*database.DatabaseService, error) {
	return database.InitDB(settings.Database.Driver, settings.Database.DSN, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApplication(cmd.Context(), settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	// --- Graceful Shutdown ---
	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           handlers.SetupRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	logger.Info("sixchan server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+settings.Port,
		"driver", settings.Database.Driver,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed unexpectedly: %w", err)
	case <-quit:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}
