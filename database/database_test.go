// sixchan/database/database_test.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sixchan/models"
	"sixchan/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAdmin = &models.UserAccount{ID: 9000, Username: "root", Role: models.RoleAdministrator}

// setupTestDB creates a fresh on-disk SQLite database for one test.
func setupTestDB(t *testing.T) *DatabaseService {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db") + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&_sync=OFF"

	ds, err := InitDB(DriverSQLite, dsn, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { ds.Close() })
	return ds
}

// seedBoard creates a board in the seeded category.
func seedBoard(t *testing.T, ds *DatabaseService, name string) *models.Board {
	t.Helper()
	categories, err := ds.GetBoardCategories(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, categories)
	board, err := ds.CreateBoard(context.Background(), testAdmin, categories[0].ID, name, name+" board")
	require.NoError(t, err)
	return board
}

// seedThread creates a thread whose opening res is anonymous.
func seedThread(t *testing.T, ds *DatabaseService, boardID, name string) (*models.Thread, *models.Res) {
	t.Helper()
	thread, first, err := ds.PostThread(context.Background(), boardID, name, &NewRes{
		Body:     "first",
		WhoSeeds: []string{"127.0.0.1", "20240101"},
		Author:   models.AnonymousAuthor{},
	})
	require.NoError(t, err)
	return thread, first
}

// seedAccount signs up and activates an account.
func seedAccount(t *testing.T, ds *DatabaseService, username, displayName string) *models.UserAccount {
	t.Helper()
	ctx := context.Background()
	_, token, err := ds.Signup(ctx, username, username+"@example.com", "passw0rd!", displayName)
	require.NoError(t, err)
	acc, _, err := ds.Activate(ctx, token)
	require.NoError(t, err)
	return acc
}

// TestInitDB checks the schema, the recorded migrations and the seed rows.
func TestInitDB(t *testing.T) {
	ds := setupTestDB(t)

	var version int
	if err := ds.DB.Get(&version, "SELECT MAX(version) FROM schema_migrations"); err != nil {
		t.Fatalf("Failed to query schema_migrations: %v", err)
	}
	assert.Equal(t, len(allMigrations), version)

	reasons, err := ds.GetReportReasons(context.Background())
	require.NoError(t, err)
	assert.Len(t, reasons, 5)

	categories, err := ds.GetBoardCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "General", categories[0].Name)
	assert.NotNil(t, categories[0].Boards)
}

// TestInitDBIsIdempotent reopens an existing database.
func TestInitDBIsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dsn := filepath.Join(t.TempDir(), "again.db") + "?_foreign_keys=on"

	first, err := InitDB(DriverSQLite, dsn, logger)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := InitDB(DriverSQLite, dsn, logger)
	require.NoError(t, err)
	defer second.Close()

	reasons, err := second.GetReportReasons(context.Background())
	require.NoError(t, err)
	assert.Len(t, reasons, 5, "seed rows are not duplicated")
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB("mysql", "", slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestSchemaForPostgres(t *testing.T) {
	s := schemaFor(DriverPostgres)
	assert.Contains(t, s, "BIGSERIAL PRIMARY KEY")
	assert.Contains(t, s, "TIMESTAMPTZ")
	assert.NotContains(t, s, "{{")
	assert.NotContains(t, schemaFor(DriverSQLite), "{{")
}

func TestTranslateError(t *testing.T) {
	ds := setupTestDB(t)
	board := seedBoard(t, ds, "translate")
	thread, _ := seedThread(t, ds, board.ID, "dup")

	// A second res numbered 1 violates the per-thread uniqueness.
	_, err := ds.DB.Exec("INSERT INTO reses (thread_id, number, who, body, inappropriate, created_at) VALUES (?, 1, 'x', 'y', 0, ?)",
		thread.ID, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, errors.Is(translateError(err), models.ErrConflict))

	_, err = ds.DB.Exec("INSERT INTO onymous_authors (res_id, account_id) VALUES (999999, 1)")
	require.Error(t, err)
	assert.True(t, errors.Is(translateError(err), models.ErrNotFound))

	assert.Nil(t, translateError(nil))
	plain := errors.New("boom")
	assert.Equal(t, plain, translateError(plain))
}

func TestBoardCache(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	board := seedBoard(t, ds, "cached")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ds.GetBoard(ctx, board.ID)
			assert.NoError(t, err)
			assert.Equal(t, board.Name, got.Name)
		}()
	}
	wg.Wait()

	// Served from cache even after the row changes underneath.
	_, err := ds.DB.Exec("UPDATE boards SET name = 'renamed' WHERE id = ?", board.ID)
	require.NoError(t, err)
	got, err := ds.GetBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Name)

	ds.ClearBoardCache(board.ID)
	got, err = ds.GetBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	_, err = ds.GetBoard(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestGetBoardIgnoresCallerCancellation(t *testing.T) {
	ds := setupTestDB(t)
	board := seedBoard(t, ds, "shared")
	ds.ClearBoardCache()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := ds.GetBoard(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Name)
}

func TestCreateBoardRequiresAdministrator(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	mod := &models.UserAccount{ID: 1, Role: models.RoleModerator}

	_, err := ds.CreateCategory(ctx, mod, "Hobby")
	assert.True(t, errors.Is(err, models.ErrForbidden))
	_, err = ds.CreateBoard(ctx, mod, 1, "b", "")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	category, err := ds.CreateCategory(ctx, testAdmin, "Hobby")
	require.NoError(t, err)
	_, err = ds.CreateCategory(ctx, testAdmin, "Hobby")
	assert.True(t, errors.Is(err, models.ErrConflict))

	_, err = ds.CreateBoard(ctx, testAdmin, 424242, "orphan", "")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	board, err := ds.CreateBoard(ctx, testAdmin, category.ID, "Trains", "")
	require.NoError(t, err)
	categories, err := ds.GetBoardCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, board.ID, categories[1].Boards[0].ID)

	log, err := ds.GetModActions(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, log.Items, 2)
	assert.Equal(t, "create_board", log.Items[0].Action)
}

func TestKeyedMutex(t *testing.T) {
	var km keyedMutex
	var mu sync.Mutex
	active := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("k%d", i%4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(key)
			mu.Lock()
			active[key]++
			if active[key] != 1 {
				t.Errorf("two holders of %s", key)
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active[key]--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, km.size(), "idle keys are released")
}

func TestDropTables(t *testing.T) {
	ds := setupTestDB(t)
	require.NoError(t, ds.DropTables(context.Background()))

	var n int
	require.NoError(t, ds.DB.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"))
	assert.Equal(t, 0, n)
}

// TestBackupDatabase verifies the VACUUM INTO backup method.
func TestBackupDatabase(t *testing.T) {
	ds := setupTestDB(t)
	ds.SetClock(utils.FixedClock(time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)))
	board := seedBoard(t, ds, "backup")

	backupDir := t.TempDir()
	backupPath, err := ds.BackupDatabase(context.Background(), backupDir)
	if err != nil {
		t.Fatalf("BackupDatabase failed: %v", err)
	}
	assert.Equal(t, filepath.Join(backupDir, "sixchan_backup_2024-02-03_04-05-06.db"), backupPath)

	info, err := os.Stat(backupPath)
	if os.IsNotExist(err) {
		t.Fatalf("Backup file was not created at the expected path: %s", backupPath)
	}
	if info.Size() == 0 {
		t.Error("Backup file was created but is empty.")
	}

	destDB, err := sql.Open("sqlite3", backupPath)
	if err != nil {
		t.Fatalf("Could not open the created backup file as a database: %v", err)
	}
	defer destDB.Close()

	var name string
	if err := destDB.QueryRow("SELECT name FROM boards WHERE id = ?", board.ID).Scan(&name); err != nil {
		t.Errorf("Could not read test data from backup database: %v", err)
	}
	assert.Equal(t, "backup", name)

	_, err = ds.BackupDatabase(context.Background(), "")
	assert.Error(t, err)
}
