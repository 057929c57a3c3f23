package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sixchan/config"
	"sixchan/models"
	"sixchan/utils"

	"github.com/jmoiron/sqlx"
)

// resViewSelect resolves authorship through outer joins so a res without
// an authorship row still renders as anonymous.
const resViewSelect = `
	SELECT r.id, r.thread_id, r.number, r.who, r.body, r.inappropriate, r.created_at,
	       an.name AS anon_name, an.email AS anon_email,
	       ua.username AS username, up.display_name AS display_name
	FROM reses r
	LEFT JOIN anonymous_authors an ON an.res_id = r.id
	LEFT JOIN onymous_authors oa ON oa.res_id = r.id
	LEFT JOIN user_accounts ua ON ua.id = oa.account_id
	LEFT JOIN user_profiles up ON up.account_id = ua.id`

type resRow struct {
	ID            int64          `db:"id"`
	ThreadID      string         `db:"thread_id"`
	Number        int            `db:"number"`
	Who           string         `db:"who"`
	Body          string         `db:"body"`
	Inappropriate bool           `db:"inappropriate"`
	CreatedAt     time.Time      `db:"created_at"`
	AnonName      sql.NullString `db:"anon_name"`
	AnonEmail     sql.NullString `db:"anon_email"`
	Username      sql.NullString `db:"username"`
	DisplayName   sql.NullString `db:"display_name"`
}

// view renders a stored res: redacted bodies are replaced, and the name is
// the profile's display name, the anonymous name or the placeholder.
func (row resRow) view() models.ResView {
	v := models.ResView{
		ID:            row.ID,
		Number:        row.Number,
		Who:           row.Who,
		Body:          row.Body,
		Inappropriate: row.Inappropriate,
		CreatedAt:     row.CreatedAt,
	}
	if row.Inappropriate {
		v.Body = config.RedactedBody
	}
	switch {
	case row.Username.Valid:
		v.Username = row.Username.String
		v.Name = row.Username.String
		if row.DisplayName.String != "" {
			v.Name = row.DisplayName.String
		}
	case row.AnonName.String != "":
		v.Name = row.AnonName.String
		v.Email = row.AnonEmail.String
	default:
		v.Name = config.AnonymousName
		v.Email = row.AnonEmail.String
	}
	return v
}

func views(rows []resRow) []models.ResView {
	out := make([]models.ResView, len(rows))
	for i, row := range rows {
		out[i] = row.view()
	}
	return out
}

// GetReses returns every res of a thread in number order, as rendered.
func (ds *DatabaseService) GetReses(ctx context.Context, threadID string) ([]models.ResView, error) {
	var rows []resRow
	err := ds.DB.SelectContext(ctx, &rows, ds.DB.Rebind(resViewSelect+" WHERE r.thread_id = ? ORDER BY r.number"), threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reses: %w", err)
	}
	return views(rows), nil
}

// GetRes returns one res as rendered.
func (ds *DatabaseService) GetRes(ctx context.Context, resID int64) (*models.ResView, string, error) {
	var row resRow
	err := ds.DB.GetContext(ctx, &row, ds.DB.Rebind(resViewSelect+" WHERE r.id = ?"), resID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("res %d: %w", resID, models.ErrNotFound)
		}
		return nil, "", err
	}
	v := row.view()
	return &v, row.ThreadID, nil
}

type threadSummaryRow struct {
	ID           string       `db:"id"`
	Name         string       `db:"name"`
	BoardID      string       `db:"board_id"`
	CreatedAt    time.Time    `db:"created_at"`
	ResesCount   int          `db:"reses_count"`
	LastPostedAt sql.NullTime `db:"last_posted_at"`
	FavoritedAt  sql.NullTime `db:"favorited_at"`
}

func (row threadSummaryRow) lastPostedAt() time.Time {
	if row.LastPostedAt.Valid {
		return row.LastPostedAt.Time
	}
	return row.CreatedAt
}

// lastResJoin attaches the newest res of each thread. Its created_at stays a
// plain column so drivers keep its timestamp type.
const lastResJoin = `
	LEFT JOIN reses lr ON lr.thread_id = t.id
	 AND lr.number = (SELECT MAX(number) FROM reses WHERE thread_id = t.id)`

// GetThreadsPage returns one page of a board's threads, most recently
// posted first.
func (ds *DatabaseService) GetThreadsPage(ctx context.Context, boardID string, page, perPage int) (models.PageOf[models.ThreadOverview], error) {
	var total int
	if err := ds.DB.GetContext(ctx, &total, ds.DB.Rebind("SELECT COUNT(*) FROM threads WHERE board_id = ?"), boardID); err != nil {
		return models.PageOf[models.ThreadOverview]{}, err
	}
	b, err := utils.ComputeBounds(page, perPage, total)
	if err != nil {
		return models.PageOf[models.ThreadOverview]{}, err
	}
	if b.Empty() {
		return utils.EmptyPage[models.ThreadOverview](), nil
	}

	var rows []threadSummaryRow
	err = ds.DB.SelectContext(ctx, &rows, ds.DB.Rebind(`
		SELECT t.id, t.name, t.board_id, t.created_at,
		       COALESCE(lr.number, 0) AS reses_count, lr.created_at AS last_posted_at
		FROM threads t`+lastResJoin+`
		WHERE t.board_id = ?
		ORDER BY COALESCE(lr.created_at, t.created_at) DESC, t.id
		LIMIT ? OFFSET ?`), boardID, b.Limit, b.Offset)
	if err != nil {
		return models.PageOf[models.ThreadOverview]{}, fmt.Errorf("failed to query threads: %w", err)
	}

	items := make([]models.ThreadOverview, len(rows))
	for i, row := range rows {
		items[i] = models.ThreadOverview{
			ID:           row.ID,
			Name:         row.Name,
			CreatedAt:    row.CreatedAt,
			ResesCount:   row.ResesCount,
			LastPostedAt: row.lastPostedAt(),
		}
	}
	return utils.NewPage(b, items), nil
}

// GetFavoriteThreads returns one page of an account's favorites, most
// recently favorited first.
func (ds *DatabaseService) GetFavoriteThreads(ctx context.Context, accountID int64, page, perPage int) (models.PageOf[models.FavoriteThread], error) {
	var total int
	if err := ds.DB.GetContext(ctx, &total, ds.DB.Rebind("SELECT COUNT(*) FROM favorites WHERE account_id = ?"), accountID); err != nil {
		return models.PageOf[models.FavoriteThread]{}, err
	}
	b, err := utils.ComputeBounds(page, perPage, total)
	if err != nil {
		return models.PageOf[models.FavoriteThread]{}, err
	}
	if b.Empty() {
		return utils.EmptyPage[models.FavoriteThread](), nil
	}

	var rows []threadSummaryRow
	err = ds.DB.SelectContext(ctx, &rows, ds.DB.Rebind(`
		SELECT t.id, t.name, t.board_id, t.created_at,
		       COALESCE(lr.number, 0) AS reses_count, lr.created_at AS last_posted_at,
		       f.created_at AS favorited_at
		FROM favorites f
		JOIN threads t ON t.id = f.thread_id`+lastResJoin+`
		WHERE f.account_id = ?
		ORDER BY f.created_at DESC, t.id
		LIMIT ? OFFSET ?`), accountID, b.Limit, b.Offset)
	if err != nil {
		return models.PageOf[models.FavoriteThread]{}, fmt.Errorf("failed to query favorites: %w", err)
	}

	items := make([]models.FavoriteThread, len(rows))
	for i, row := range rows {
		items[i] = models.FavoriteThread{
			ID:           row.ID,
			Name:         row.Name,
			BoardID:      row.BoardID,
			ResesCount:   row.ResesCount,
			LastPostedAt: row.lastPostedAt(),
			FavoritedAt:  row.FavoritedAt.Time,
		}
	}
	return utils.NewPage(b, items), nil
}

type historyRow struct {
	ThreadID     string    `db:"thread_id"`
	ThreadName   string    `db:"thread_name"`
	BoardID      string    `db:"board_id"`
	BoardName    string    `db:"board_name"`
	LastPostedAt time.Time `db:"last_posted_at"`
}

// GetUserHistory returns one page of the threads an account posted in,
// ordered by its latest res there, each with that account's reses.
func (ds *DatabaseService) GetUserHistory(ctx context.Context, accountID int64, page, perPage int) (models.PageOf[models.UserThreadHistory], error) {
	var total int
	err := ds.DB.GetContext(ctx, &total, ds.DB.Rebind(`
		SELECT COUNT(DISTINCT r.thread_id)
		FROM reses r JOIN onymous_authors oa ON oa.res_id = r.id
		WHERE oa.account_id = ?`), accountID)
	if err != nil {
		return models.PageOf[models.UserThreadHistory]{}, err
	}
	b, err := utils.ComputeBounds(page, perPage, total)
	if err != nil {
		return models.PageOf[models.UserThreadHistory]{}, err
	}
	if b.Empty() {
		return utils.EmptyPage[models.UserThreadHistory](), nil
	}

	// The newest res id stands in for the newest timestamp; ids grow with
	// insertion order and keep the timestamp a plain column.
	var threads []historyRow
	err = ds.DB.SelectContext(ctx, &threads, ds.DB.Rebind(`
		SELECT t.id AS thread_id, t.name AS thread_name, bo.id AS board_id, bo.name AS board_name,
		       lr.created_at AS last_posted_at
		FROM (
			SELECT r.thread_id, MAX(r.id) AS last_id
			FROM reses r JOIN onymous_authors oa ON oa.res_id = r.id
			WHERE oa.account_id = ?
			GROUP BY r.thread_id
		) h
		JOIN reses lr ON lr.id = h.last_id
		JOIN threads t ON t.id = h.thread_id
		JOIN boards bo ON bo.id = t.board_id
		ORDER BY h.last_id DESC
		LIMIT ? OFFSET ?`), accountID, b.Limit, b.Offset)
	if err != nil {
		return models.PageOf[models.UserThreadHistory]{}, fmt.Errorf("failed to query history threads: %w", err)
	}
	if len(threads) == 0 {
		return utils.NewPage[models.UserThreadHistory](b, nil), nil
	}

	threadIDs := make([]string, len(threads))
	for i, t := range threads {
		threadIDs[i] = t.ThreadID
	}
	query, args, err := sqlx.In(resViewSelect+" WHERE oa.account_id = ? AND r.thread_id IN (?) ORDER BY r.thread_id, r.number", accountID, threadIDs)
	if err != nil {
		return models.PageOf[models.UserThreadHistory]{}, err
	}
	var rows []resRow
	if err := ds.DB.SelectContext(ctx, &rows, ds.DB.Rebind(query), args...); err != nil {
		return models.PageOf[models.UserThreadHistory]{}, fmt.Errorf("failed to query history reses: %w", err)
	}

	byThread := make(map[string][]models.ResView, len(threads))
	for _, row := range rows {
		byThread[row.ThreadID] = append(byThread[row.ThreadID], row.view())
	}
	items := make([]models.UserThreadHistory, len(threads))
	for i, t := range threads {
		items[i] = models.UserThreadHistory{
			ThreadID:     t.ThreadID,
			ThreadName:   t.ThreadName,
			BoardID:      t.BoardID,
			BoardName:    t.BoardName,
			LastPostedAt: t.LastPostedAt,
			Reses:        byThread[t.ThreadID],
		}
	}
	return utils.NewPage(b, items), nil
}

// GetPublicUser returns the public part of an account.
func (ds *DatabaseService) GetPublicUser(ctx context.Context, username string) (*models.PublicUser, error) {
	var u models.PublicUser
	err := ds.DB.GetContext(ctx, &u, ds.DB.Rebind(`
		SELECT ua.username, up.display_name, up.introduction
		FROM user_accounts ua JOIN user_profiles up ON up.account_id = ua.id
		WHERE ua.username = ? AND ua.activated = ?`), username, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user '%s': %w", username, models.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}
