package gorm

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/pkg/dbclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := dbclient.Open(&dbclient.Config{
		Dialect: "sqlite",
		DSN:     "file:" + name + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := NewRepo(db, slog.Default())
	require.NoError(t, r.Migrate(context.Background()))

	return r
}

func addItem(t *testing.T, r *repo, roomId, videoId int64, addedAt time.Time) queue.QueueItem {
	t.Helper()
	item, err := r.CreateItem(context.Background(), &queue.CreateItemParams{
		RoomID:        roomId,
		VideoID:       videoId,
		AddedByUserID: 1,
		AddedAt:       addedAt,
	})
	require.NoError(t, err)

	return item
}

func TestCreateItem(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := addItem(t, r, 1, 10, now)
	second := addItem(t, r, 1, 11, now)
	other := addItem(t, r, 2, 10, now)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, 1, other.Position, "positions are per room")
	assert.Equal(t, 0, first.TotalVotes)

	exists, err := r.ExistsByRoomVideo(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = r.CreateItem(ctx, &queue.CreateItemParams{RoomID: 1, VideoID: 10, AddedByUserID: 2, AddedAt: now})
	require.ErrorIs(t, err, queue.ErrAlreadyQueued)
}

func TestListByRoomOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := addItem(t, r, 1, 10, now)
	b := addItem(t, r, 1, 11, now.Add(time.Second))
	c := addItem(t, r, 1, 12, now.Add(2*time.Second))

	for _, userId := range []int64{100, 101, 102} {
		require.NoError(t, r.EnsureVote(ctx, userId, a.ID))
		require.NoError(t, r.EnsureVote(ctx, userId, b.ID))
	}
	require.NoError(t, r.EnsureVote(ctx, 100, c.ID))
	for _, item := range []queue.QueueItem{a, b, c} {
		_, err := r.RecountTotal(ctx, item.ID)
		require.NoError(t, err)
	}

	items, err := r.ListByRoom(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, []int{3, 3, 1}, []int{items[0].TotalVotes, items[1].TotalVotes, items[2].TotalVotes})
}

func TestEnsureVoteIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := addItem(t, r, 1, 10, time.Now().UTC())
	require.NoError(t, r.EnsureVote(ctx, 100, item.ID))
	require.NoError(t, r.EnsureVote(ctx, 100, item.ID))

	total, err := r.RecountTotal(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	require.NoError(t, r.DeleteVote(ctx, 100, item.ID))
	require.NoError(t, r.DeleteVote(ctx, 100, item.ID))

	total, err = r.RecountTotal(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestToggleVote(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := addItem(t, r, 1, 10, time.Now().UTC())

	res, err := r.ToggleVote(ctx, 100, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.ToggleVoteResult{Added: true, TotalVotes: 1}, res)

	voted, err := r.HasVoted(ctx, 100, item.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	res, err = r.ToggleVote(ctx, 100, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.ToggleVoteResult{Added: false, TotalVotes: 0}, res)

	_, err = r.ToggleVote(ctx, 100, item.ID+100)
	require.ErrorIs(t, err, queue.ErrItemNotFound)
}

func TestDeleteItem(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := addItem(t, r, 1, 10, time.Now().UTC())
	require.NoError(t, r.EnsureVote(ctx, 100, item.ID))

	require.NoError(t, r.DeleteItem(ctx, item.ID))

	_, err := r.GetItem(ctx, item.ID)
	require.ErrorIs(t, err, queue.ErrItemNotFound)

	voted, err := r.HasVoted(ctx, 100, item.ID)
	require.NoError(t, err)
	assert.False(t, voted, "votes must be deleted with the item")

	require.ErrorIs(t, r.DeleteItem(ctx, item.ID), queue.ErrItemNotFound)
}

func TestReplaceVotes(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := addItem(t, r, 1, 10, now)
	b := addItem(t, r, 1, 11, now)
	foreign := addItem(t, r, 2, 10, now)
	require.NoError(t, r.EnsureVote(ctx, 100, a.ID))
	require.NoError(t, r.EnsureVote(ctx, 101, a.ID))
	require.NoError(t, r.EnsureVote(ctx, 100, b.ID))

	err := r.ReplaceVotes(ctx, 1, map[int64][]int64{
		a.ID:       {101, 102},
		b.ID:       {},
		foreign.ID: {100},
	})
	require.NoError(t, err)

	voters, err := r.VotersByRoom(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{101, 102}, voters[a.ID])
	assert.Empty(t, voters[b.ID])

	item, err := r.GetItem(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, item.TotalVotes)

	item, err = r.GetItem(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.TotalVotes, "items of other rooms are untouched")
}

func TestRoomStateSnapshot(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.GetRoomState(ctx, 1)
	require.ErrorIs(t, err, queue.ErrSnapshotNotFound)

	videoId := int64(7)
	snapshot := queue.RoomStateSnapshot{
		RoomID:            1,
		CurrentVideoID:    &videoId,
		PlaybackPosition:  42.5,
		IsPlaying:         true,
		LastSyncTimestamp: time.UnixMilli(1_700_000_000_000).UTC(),
	}
	require.NoError(t, r.SaveRoomState(ctx, &snapshot))

	snapshot.IsPlaying = false
	snapshot.PlaybackPosition = 50
	require.NoError(t, r.SaveRoomState(ctx, &snapshot))

	got, err := r.GetRoomState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentVideoID)
	assert.Equal(t, videoId, *got.CurrentVideoID)
	assert.Equal(t, 50.0, got.PlaybackPosition)
	assert.False(t, got.IsPlaying)
}
