// sixchan/database/database.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sixchan/models"
	"sixchan/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DatabaseService is the central struct for all database operations.
type DatabaseService struct {
	DB     *sqlx.DB
	logger *slog.Logger
	driver string
	now    utils.Clock

	boardCache map[string]*models.Board
	cacheMu    sync.RWMutex
	boardGroup singleflight.Group

	threadLocks keyedMutex
}

// InitDB connects to the database, creates the schema and runs migrations.
func InitDB(driver, dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Open(driver, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err = db.Exec(schemaFor(driver)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Info("Database initialized and cache ready.", "driver", driver)

	return &DatabaseService{
		DB:         db,
		logger:     logger,
		driver:     driver,
		now:        utils.SystemClock,
		boardCache: make(map[string]*models.Board),
	}, nil
}

// Close releases the connection pool.
func (ds *DatabaseService) Close() error {
	return ds.DB.Close()
}

// Driver reports which database/sql driver the service was opened with.
func (ds *DatabaseService) Driver() string {
	return ds.driver
}

// Now is the service clock's current time.
func (ds *DatabaseService) Now() time.Time {
	return ds.now()
}

// SetClock replaces the time source used for every stored timestamp.
func (ds *DatabaseService) SetClock(c utils.Clock) {
	ds.now = c
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sqlx.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.Get(&latestVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version <= latestVersion {
			continue
		}
		logger.Info("Applying migration", "version", m.Version)
		tx, err := db.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.Query); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
			}
			return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
		}
		if _, err := tx.Exec(tx.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"), m.Version, utils.GetSQLTime()); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
			}
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
		}
		logger.Info("Successfully applied migration", "version", m.Version)
	}
	return nil
}

// DropTables removes every table the service created.
func (ds *DatabaseService) DropTables(ctx context.Context) error {
	for _, table := range dropOrder {
		stmt := "DROP TABLE IF EXISTS " + table
		if ds.driver == DriverPostgres {
			stmt += " CASCADE"
		}
		if _, err := ds.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		ds.logger.Info("Dropped table", "table", table)
	}
	ds.ClearBoardCache()
	return nil
}

// BackupDatabase performs an online backup of the live SQLite database using
// VACUUM INTO and returns the path of the new file.
func (ds *DatabaseService) BackupDatabase(ctx context.Context, dir string) (string, error) {
	if ds.driver != DriverSQLite {
		return "", fmt.Errorf("%w: online backup is only supported for sqlite3, use pg_dump", models.ErrInvalidArgument)
	}
	if dir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", dir, err)
	}

	timestamp := ds.now().UTC().Format("2006-01-02_15-04-05")
	backupPath := filepath.Join(dir, fmt.Sprintf("sixchan_backup_%s.db", timestamp))

	ds.logger.Info("Starting database backup", "destination", backupPath)

	if _, err := ds.DB.ExecContext(ctx, "VACUUM INTO ?", backupPath); err != nil {
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			ds.logger.Error("Failed to remove incomplete backup file", "path", backupPath, "error", removeErr)
		}
		return "", fmt.Errorf("VACUUM INTO command failed: %w", err)
	}
	return backupPath, nil
}

// LogModAction records a moderator's action inside the caller's transaction.
func LogModAction(ctx context.Context, tx *sqlx.Tx, moderatorID int64, action string, targetID *int64, details string, now utils.Clock) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO mod_actions (timestamp, moderator_id, action, target_id, details) VALUES (?, ?, ?, ?, ?)"),
		now(), moderatorID, action, targetID, details)
	if err != nil {
		return fmt.Errorf("failed to execute mod action log: %w", err)
	}
	return nil
}

// RecordModAction logs an action that has no transaction of its own.
func (ds *DatabaseService) RecordModAction(ctx context.Context, moderatorID int64, action string, targetID *int64, details string) error {
	return ds.withTx(ctx, "RecordModAction", func(tx *sqlx.Tx) error {
		return LogModAction(ctx, tx, moderatorID, action, targetID, details, ds.now)
	})
}

// GetModActions returns one page of the moderation log, newest first.
func (ds *DatabaseService) GetModActions(ctx context.Context, page, perPage int) (models.PageOf[models.ModAction], error) {
	var total int
	if err := ds.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM mod_actions"); err != nil {
		return models.PageOf[models.ModAction]{}, err
	}
	b, err := utils.ComputeBounds(page, perPage, total)
	if err != nil {
		return models.PageOf[models.ModAction]{}, err
	}
	if b.Empty() {
		return utils.EmptyPage[models.ModAction](), nil
	}
	var actions []models.ModAction
	err = ds.DB.SelectContext(ctx, &actions, ds.DB.Rebind(`
		SELECT id, timestamp, moderator_id, action, target_id, details
		FROM mod_actions ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`), b.Limit, b.Offset)
	if err != nil {
		return models.PageOf[models.ModAction]{}, fmt.Errorf("failed to query mod actions: %w", err)
	}
	return utils.NewPage(b, actions), nil
}

// --- Transactions ---

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// withTx runs fn in a transaction, committing when it returns nil.
func (ds *DatabaseService) withTx(ctx context.Context, name string, fn func(tx *sqlx.Tx) error) error {
	tx, err := ds.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction in %s: %w", name, translateError(err))
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			ds.logger.Error("Failed to rollback transaction", "op", name, "error", rerr)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, translateError(err))
	}
	return nil
}

// forUpdate appends a row lock on drivers that support one. SQLite write
// transactions already hold the database lock.
func (ds *DatabaseService) forUpdate(query string) string {
	if ds.driver == DriverPostgres {
		return query + " FOR UPDATE"
	}
	return query
}

// translateError maps storage constraint violations onto model error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "40001":
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		case "23503":
			return fmt.Errorf("%w: %v", models.ErrNotFound, err)
		}
	}
	return err
}

// isUniqueViolationOn reports whether err is a conflict on the named column.
func isUniqueViolationOn(err error, column string) bool {
	return errors.Is(err, models.ErrConflict) && strings.Contains(err.Error(), column)
}

// --- Cache Management ---

// ClearBoardCache drops cached boards; with no ids it drops everything.
func (ds *DatabaseService) ClearBoardCache(boardIDs ...string) {
	ds.cacheMu.Lock()
	defer ds.cacheMu.Unlock()
	if len(boardIDs) == 0 {
		ds.boardCache = make(map[string]*models.Board)
		return
	}
	for _, id := range boardIDs {
		delete(ds.boardCache, id)
	}
}
