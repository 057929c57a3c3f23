package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sixchan/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateCategory adds a board category. Names are unique.
func (ds *DatabaseService) CreateCategory(ctx context.Context, actor *models.UserAccount, name string) (*models.BoardCategory, error) {
	if actor == nil || actor.Role != models.RoleAdministrator {
		return nil, models.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.InvalidArgument("category name is required")
	}

	category := &models.BoardCategory{Name: name, Boards: []models.Board{}}
	err := ds.withTx(ctx, "CreateCategory", func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, tx.Rebind("INSERT INTO categories (name) VALUES (?) RETURNING id"), name).Scan(&category.ID)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", translateError(err))
		}
		return LogModAction(ctx, tx, actor.ID, "create_category", &category.ID, name, ds.now)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// CreateBoard adds a board under an existing category.
func (ds *DatabaseService) CreateBoard(ctx context.Context, actor *models.UserAccount, categoryID int64, name, description string) (*models.Board, error) {
	if actor == nil || actor.Role != models.RoleAdministrator {
		return nil, models.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.InvalidArgument("board name is required")
	}

	board := &models.Board{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CategoryID:  categoryID,
		CreatedAt:   ds.now(),
	}
	err := ds.withTx(ctx, "CreateBoard", func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT COUNT(*) FROM categories WHERE id = ?"), categoryID); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("category %d: %w", categoryID, models.ErrNotFound)
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO boards (id, name, description, category_id, created_at)
			VALUES (:id, :name, :description, :category_id, :created_at)`, board)
		if err != nil {
			return fmt.Errorf("failed to insert board: %w", translateError(err))
		}
		return LogModAction(ctx, tx, actor.ID, "create_board", nil, board.ID+" "+name, ds.now)
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// GetBoard fetches a board, using the instance's cache. Concurrent misses
// for the same id share one query.
func (ds *DatabaseService) GetBoard(ctx context.Context, boardID string) (*models.Board, error) {
	ds.cacheMu.RLock()
	board, ok := ds.boardCache[boardID]
	ds.cacheMu.RUnlock()
	if ok {
		return board, nil
	}

	// Waiters share this query; it must outlive the first caller's context.
	shared := context.WithoutCancel(ctx)
	v, err, _ := ds.boardGroup.Do(boardID, func() (interface{}, error) {
		var b models.Board
		err := ds.DB.GetContext(shared, &b, ds.DB.Rebind("SELECT id, name, description, category_id, created_at FROM boards WHERE id = ?"), boardID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("board '%s': %w", boardID, models.ErrNotFound)
			}
			return nil, fmt.Errorf("db error getting board '%s': %w", boardID, err)
		}
		ds.cacheMu.Lock()
		ds.boardCache[boardID] = &b
		ds.cacheMu.Unlock()
		return &b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Board), nil
}

// GetBoardCategories returns every category with its boards in creation order.
func (ds *DatabaseService) GetBoardCategories(ctx context.Context) ([]models.BoardCategory, error) {
	var categories []models.BoardCategory
	if err := ds.DB.SelectContext(ctx, &categories, "SELECT id, name FROM categories ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	var boards []models.Board
	if err := ds.DB.SelectContext(ctx, &boards, "SELECT id, name, description, category_id, created_at FROM boards ORDER BY created_at, name"); err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}

	byID := make(map[int64]*models.BoardCategory, len(categories))
	for i := range categories {
		categories[i].Boards = []models.Board{}
		byID[categories[i].ID] = &categories[i]
	}
	for _, b := range boards {
		if c, ok := byID[b.CategoryID]; ok {
			c.Boards = append(c.Boards, b)
		}
	}
	return categories, nil
}

// GetThread fetches a single thread.
func (ds *DatabaseService) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	var t models.Thread
	err := ds.DB.GetContext(ctx, &t, ds.DB.Rebind("SELECT id, board_id, name, created_at FROM threads WHERE id = ?"), threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("thread '%s': %w", threadID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("db error getting thread '%s': %w", threadID, err)
	}
	return &t, nil
}
