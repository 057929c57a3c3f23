package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sixchan/config"
	"sixchan/models"
	"sixchan/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// maxAppendAttempts bounds retries after a (thread_id, number) conflict.
const maxAppendAttempts = 3

// NewRes is the input for appending a res to a thread.
type NewRes struct {
	Body     string
	WhoSeeds []string
	Author   models.Author
}

func (in NewRes) validate() error {
	if strings.TrimSpace(in.Body) == "" {
		return models.InvalidArgument("body is required")
	}
	if in.Author == nil {
		return models.InvalidArgument("author is required")
	}
	return nil
}

// PostThread creates a thread on a board and, when opening is non-nil, its
// res number 1 in the same transaction.
func (ds *DatabaseService) PostThread(ctx context.Context, boardID, name string, opening *NewRes) (*models.Thread, *models.Res, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, models.InvalidArgument("thread name is required")
	}
	if opening != nil {
		if err := opening.validate(); err != nil {
			return nil, nil, err
		}
	}

	thread := &models.Thread{
		ID:        uuid.NewString(),
		BoardID:   boardID,
		Name:      name,
		CreatedAt: ds.now(),
	}
	var first *models.Res
	err := ds.withTx(ctx, "PostThread", func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind("SELECT COUNT(*) FROM boards WHERE id = ?"), boardID); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("board '%s': %w", boardID, models.ErrNotFound)
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO threads (id, board_id, name, created_at)
			VALUES (:id, :board_id, :name, :created_at)`, thread)
		if err != nil {
			return fmt.Errorf("failed to insert thread: %w", translateError(err))
		}
		if opening != nil {
			first, err = ds.appendRes(ctx, tx, thread.ID, *opening)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	ds.logger.Info("Thread created", "thread_id", thread.ID, "board_id", boardID)
	return thread, first, nil
}

// PostRes appends a res to a thread. Appends to one thread are serialized
// so each observes the previous one's number.
func (ds *DatabaseService) PostRes(ctx context.Context, threadID string, in NewRes) (*models.Res, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := ds.threadLocks.Lock(threadID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		var res *models.Res
		err := ds.withTx(ctx, "PostRes", func(tx *sqlx.Tx) error {
			var err error
			res, err = ds.appendRes(ctx, tx, threadID, in)
			return err
		})
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, models.ErrConflict) || attempt >= maxAppendAttempts {
			return nil, err
		}
		ds.logger.Warn("Res number conflict, retrying", "thread_id", threadID, "attempt", attempt, "error", err)
	}
}

// appendRes inserts the next res of a thread plus its authorship row.
func (ds *DatabaseService) appendRes(ctx context.Context, tx *sqlx.Tx, threadID string, in NewRes) (*models.Res, error) {
	var locked string
	err := tx.GetContext(ctx, &locked, tx.Rebind(ds.forUpdate("SELECT id FROM threads WHERE id = ?")), threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("thread '%s': %w", threadID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock thread: %w", translateError(err))
	}

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind("SELECT COUNT(*) FROM reses WHERE thread_id = ?"), threadID); err != nil {
		return nil, fmt.Errorf("failed to count reses: %w", err)
	}
	next := count + 1
	if next > config.MaxResesPerThread {
		return nil, fmt.Errorf("%w: thread '%s' already has %d reses", models.ErrThreadFull, threadID, count)
	}

	res := &models.Res{
		ThreadID:  threadID,
		Number:    next,
		Who:       utils.Fingerprint(in.WhoSeeds...),
		Body:      in.Body,
		CreatedAt: ds.now(),
	}
	err = tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO reses (thread_id, number, who, body, inappropriate, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		res.ThreadID, res.Number, res.Who, res.Body, false, res.CreatedAt).Scan(&res.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert res %d: %w", next, translateError(err))
	}

	switch author := in.Author.(type) {
	case models.AnonymousAuthor:
		if author.IsBlank() {
			break
		}
		_, err = tx.ExecContext(ctx, tx.Rebind("INSERT INTO anonymous_authors (res_id, name, email) VALUES (?, ?, ?)"),
			res.ID, nullString(author.Name), nullString(author.Email))
	case models.RegisteredAuthor:
		_, err = tx.ExecContext(ctx, tx.Rebind("INSERT INTO onymous_authors (res_id, account_id) VALUES (?, ?)"),
			res.ID, author.AccountID)
	default:
		return nil, models.InvalidArgument("unsupported author %T", in.Author)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record author of res %d: %w", res.ID, translateError(err))
	}
	return res, nil
}

// GetResesCount returns how many reses a thread holds.
func (ds *DatabaseService) GetResesCount(ctx context.Context, threadID string) (int, error) {
	var n int
	err := ds.DB.GetContext(ctx, &n, ds.DB.Rebind("SELECT COALESCE(MAX(number), 0) FROM reses WHERE thread_id = ?"), threadID)
	return n, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
