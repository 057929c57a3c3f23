package database

import (
	"context"
	"fmt"
)

// AddFavorite bookmarks a thread for an account. Adding twice is a no-op.
func (ds *DatabaseService) AddFavorite(ctx context.Context, accountID int64, threadID string) error {
	if _, err := ds.GetThread(ctx, threadID); err != nil {
		return err
	}
	_, err := ds.DB.ExecContext(ctx, ds.DB.Rebind(`INSERT INTO favorites (account_id, thread_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (account_id, thread_id) DO NOTHING`), accountID, threadID, ds.now())
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", translateError(err))
	}
	return nil
}

// RemoveFavorite drops a bookmark. Removing a missing one is a no-op.
func (ds *DatabaseService) RemoveFavorite(ctx context.Context, accountID int64, threadID string) error {
	_, err := ds.DB.ExecContext(ctx, ds.DB.Rebind("DELETE FROM favorites WHERE account_id = ? AND thread_id = ?"), accountID, threadID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// IsFavorite reports whether an account has bookmarked a thread.
func (ds *DatabaseService) IsFavorite(ctx context.Context, accountID int64, threadID string) (bool, error) {
	var n int
	err := ds.DB.GetContext(ctx, &n, ds.DB.Rebind("SELECT COUNT(*) FROM favorites WHERE account_id = ? AND thread_id = ?"), accountID, threadID)
	return n > 0, err
}
