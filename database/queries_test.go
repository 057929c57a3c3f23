package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"sixchan/models"
	"sixchan/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetThreadsPage(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	board := seedBoard(t, ds, "news")

	empty, err := ds.GetThreadsPage(ctx, board.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, empty.Pages)
	assert.Empty(t, empty.Items)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	at := func(minutes int) { ds.SetClock(utils.FixedClock(base.Add(time.Duration(minutes) * time.Minute))) }

	at(0)
	oldest, _ := seedThread(t, ds, board.ID, "oldest")
	at(1)
	middle, _ := seedThread(t, ds, board.ID, "middle")
	at(2)
	newest, _ := seedThread(t, ds, board.ID, "newest")
	at(3)
	_, err = ds.PostRes(ctx, oldest.ID, anonRes("bump"))
	require.NoError(t, err)

	first, err := ds.GetThreadsPage(ctx, board.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Pages)
	require.Len(t, first.Items, 2)
	assert.Equal(t, oldest.ID, first.Items[0].ID, "bumped thread comes first")
	assert.Equal(t, 2, first.Items[0].ResesCount)
	assert.True(t, base.Add(3*time.Minute).Equal(first.Items[0].LastPostedAt))
	assert.Equal(t, newest.ID, first.Items[1].ID)
	assert.Equal(t, 1, first.Items[1].ResesCount)

	second, err := ds.GetThreadsPage(ctx, board.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, middle.ID, second.Items[0].ID)

	_, err = ds.GetThreadsPage(ctx, board.ID, 0, 2)
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

func TestGetReses(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	board := seedBoard(t, ds, "talk")
	thread, first := seedThread(t, ds, board.ID, "talk")
	_, err := ds.PostRes(ctx, thread.ID, anonRes("reply"))
	require.NoError(t, err)

	reses, err := ds.GetReses(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, reses, 2)
	assert.Equal(t, 1, reses[0].Number)
	assert.Equal(t, 2, reses[1].Number)
	assert.Equal(t, "reply", reses[1].Body)
	assert.Len(t, reses[0].Who, 22)

	view, threadID, err := ds.GetRes(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, threadID)
	assert.Equal(t, "first", view.Body)

	_, _, err = ds.GetRes(ctx, 999999)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	none, err := ds.GetReses(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFavorites(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	board := seedBoard(t, ds, "favs")
	acc := seedAccount(t, ds, "fan", "")
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	ds.SetClock(utils.FixedClock(base))
	a, _ := seedThread(t, ds, board.ID, "a")
	b, _ := seedThread(t, ds, board.ID, "b")

	require.NoError(t, ds.AddFavorite(ctx, acc.ID, a.ID))
	require.NoError(t, ds.AddFavorite(ctx, acc.ID, a.ID), "adding twice is a no-op")
	ds.SetClock(utils.FixedClock(base.Add(time.Hour)))
	require.NoError(t, ds.AddFavorite(ctx, acc.ID, b.ID))
	assert.True(t, errors.Is(ds.AddFavorite(ctx, acc.ID, "missing"), models.ErrNotFound))

	page, err := ds.GetFavoriteThreads(ctx, acc.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, b.ID, page.Items[0].ID, "most recently favorited first")
	assert.Equal(t, board.ID, page.Items[0].BoardID)
	assert.True(t, base.Add(time.Hour).Equal(page.Items[0].FavoritedAt))

	fav, err := ds.IsFavorite(ctx, acc.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	require.NoError(t, ds.RemoveFavorite(ctx, acc.ID, a.ID))
	require.NoError(t, ds.RemoveFavorite(ctx, acc.ID, a.ID), "removing twice is a no-op")
	fav, err = ds.IsFavorite(ctx, acc.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, fav)

	page, err = ds.GetFavoriteThreads(ctx, acc.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestGetUserHistory(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()
	board := seedBoard(t, ds, "history")
	acc := seedAccount(t, ds, "poster", "Poster")
	mine := func(body string) NewRes {
		return NewRes{Body: body, WhoSeeds: []string{"10.0.0.1", "20240101"}, Author: models.RegisteredAuthor{AccountID: acc.ID}}
	}

	empty, err := ds.GetUserHistory(ctx, acc.ID, 1, 5)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	first, _ := seedThread(t, ds, board.ID, "first")
	second, _ := seedThread(t, ds, board.ID, "second")

	_, err = ds.PostRes(ctx, first.ID, mine("one"))
	require.NoError(t, err)
	_, err = ds.PostRes(ctx, second.ID, mine("two"))
	require.NoError(t, err)
	_, err = ds.PostRes(ctx, first.ID, anonRes("someone else"))
	require.NoError(t, err)
	_, err = ds.PostRes(ctx, first.ID, mine("three"))
	require.NoError(t, err)

	page, err := ds.GetUserHistory(ctx, acc.ID, 1, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	latest := page.Items[0]
	assert.Equal(t, first.ID, latest.ThreadID)
	assert.Equal(t, board.Name, latest.BoardName)
	require.Len(t, latest.Reses, 2, "only the account's own reses")
	assert.Equal(t, "one", latest.Reses[0].Body)
	assert.Equal(t, 2, latest.Reses[0].Number)
	assert.Equal(t, "three", latest.Reses[1].Body)
	assert.Equal(t, "Poster", latest.Reses[1].Name)

	assert.Equal(t, second.ID, page.Items[1].ThreadID)
	require.Len(t, page.Items[1].Reses, 1)

	paged, err := ds.GetUserHistory(ctx, acc.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, second.ID, paged.Items[0].ThreadID)
}
