package redis

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchroom/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.Default(), 24*time.Hour), s
}

func TestPlaybackState(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	_, err := r.GetPlaybackState(ctx, 1)
	require.ErrorIs(t, err, room.ErrStateNotFound)

	now := time.UnixMilli(1_700_000_000_000).UTC()
	created, err := r.CreatePlaybackState(ctx, &room.PlaybackState{RoomID: 1, LastSync: now})
	require.NoError(t, err)
	assert.Nil(t, created.CurrentVideoID, "video must be null")
	assert.Equal(t, now, created.LastSync)
	assert.Equal(t, 24*time.Hour, s.TTL("room:1:state"))

	// second create keeps the stored record
	videoId := int64(9)
	again, err := r.CreatePlaybackState(ctx, &room.PlaybackState{RoomID: 1, CurrentVideoID: &videoId, LastSync: now})
	require.NoError(t, err)
	assert.Nil(t, again.CurrentVideoID)

	position := 30.5
	playing := true
	later := now.Add(time.Second)
	updated, err := r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomID:    1,
		Position:  &position,
		IsPlaying: &playing,
		Now:       later,
	})
	require.NoError(t, err)
	assert.Equal(t, 30.5, updated.Position)
	assert.True(t, updated.IsPlaying)
	assert.Equal(t, later, updated.LastSync)

	updated, err = r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomID:         1,
		CurrentVideoID: &videoId,
		Now:            later,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentVideoID)
	assert.Equal(t, videoId, *updated.CurrentVideoID)
	assert.Equal(t, 30.5, updated.Position, "position must be kept")

	got, err := r.GetPlaybackState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, r.RemovePlaybackState(ctx, 1))
	_, err = r.GetPlaybackState(ctx, 1)
	require.ErrorIs(t, err, room.ErrStateNotFound)
}

func TestUpdatePlaybackStateCreatesDefault(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	playing := false
	state, err := r.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomID:    7,
		IsPlaying: &playing,
		Now:       time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), state.RoomID)
	assert.Nil(t, state.CurrentVideoID)
	assert.Equal(t, float64(0), state.Position)
}

func TestSetPlaybackState(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	videoId := int64(3)
	now := time.UnixMilli(1_700_000_000_000).UTC()
	state := room.PlaybackState{RoomID: 2, CurrentVideoID: &videoId, Position: 12, IsPlaying: true, LastSync: now}
	require.NoError(t, r.SetPlaybackState(ctx, &state))

	got, err := r.GetPlaybackState(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestToggleVote(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddQueueItem(ctx, 1, 10, 0))

	params := &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: 100}
	res, err := r.ToggleVote(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, room.ToggleVoteResult{Added: true, Votes: 1}, res)

	score, err := s.ZScore("room:1:queue", "10")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	voted, err := r.HasVoted(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.True(t, voted)

	res, err = r.ToggleVote(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, room.ToggleVoteResult{Added: false, Votes: 0}, res)

	voted, err = r.HasVoted(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.False(t, voted)

	dirty, err := r.PopDirtyRooms(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, dirty)
}

func TestIncrementDecrementVote(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := r.IncrementVote(ctx, 1, 10)
	require.ErrorIs(t, err, room.ErrItemNotQueued)

	require.NoError(t, r.AddQueueItem(ctx, 1, 10, 0))
	votes, err := r.IncrementVote(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)
	votes, err = r.DecrementVote(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, votes)
}

func TestToggleVoteItemNotQueued(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: 100})
	require.ErrorIs(t, err, room.ErrItemNotQueued)

	voted, err := r.HasVoted(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestToggleScoreMatchesVoters(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddQueueItem(ctx, 1, 10, 0))

	for _, userId := range []int64{100, 101, 100, 102, 101, 100} {
		res, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: userId})
		require.NoError(t, err)

		members, err := s.SMembers("room:1:item:10:voters")
		if err != nil {
			members = nil
		}
		score, err := s.ZScore("room:1:queue", "10")
		require.NoError(t, err)
		assert.Equal(t, len(members), res.Votes)
		assert.Equal(t, float64(len(members)), score)
	}
}

func TestQueueLoadedMarkerFollowsRankedSet(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	seeded, err := r.SeedQueue(ctx, &room.SeedQueueParams{
		RoomID: 1,
		Items:  []room.SeedItem{{ItemID: 10}},
	})
	require.NoError(t, err)
	require.True(t, seeded)

	// the room stays active past the first TTL window
	s.FastForward(20 * time.Hour)
	_, err = r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: 100})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.TTL("room:1:queue:loaded"))

	s.FastForward(20 * time.Hour)
	_, err = r.GetRankedItems(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.TTL("room:1:queue:loaded"))

	s.FastForward(20 * time.Hour)
	require.NoError(t, r.AddQueueItem(ctx, 1, 11, 0))
	assert.Equal(t, 24*time.Hour, s.TTL("room:1:queue:loaded"))

	loaded, err := r.IsQueueLoaded(ctx, 1)
	require.NoError(t, err)
	assert.True(t, loaded)
}

func TestConcurrentToggles(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddQueueItem(ctx, 1, 10, 0))

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(userId int64) {
			defer wg.Done()
			res, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: userId})
			if assert.NoError(t, err) {
				assert.True(t, res.Added)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	items, err := r.GetRankedItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, users, items[0].Votes)

	voters, err := r.GetQueueVoters(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, voters[10], users)
}

func TestRankedItemsOrder(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddQueueItem(ctx, 1, 1, 0))
	require.NoError(t, r.AddQueueItem(ctx, 1, 2, 0))
	require.NoError(t, r.AddQueueItem(ctx, 1, 3, 0))

	for _, userId := range []int64{100, 101} {
		_, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 2, UserID: userId})
		require.NoError(t, err)
	}
	_, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 3, UserID: 100})
	require.NoError(t, err)

	items, err := r.GetRankedItems(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []room.RankedItem{
		{ItemID: 2, Votes: 2},
		{ItemID: 3, Votes: 1},
		{ItemID: 1, Votes: 0},
	}, items)
}

func TestRemoveQueueItem(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddQueueItem(ctx, 1, 10, 0))
	_, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: 100})
	require.NoError(t, err)

	require.NoError(t, r.RemoveQueueItem(ctx, 1, 10))

	items, err := r.GetRankedItems(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	voted, err := r.HasVoted(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.False(t, voted, "vote must be removed with the item")
}

func TestSeedQueue(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	loaded, err := r.IsQueueLoaded(ctx, 1)
	require.NoError(t, err)
	assert.False(t, loaded)

	params := &room.SeedQueueParams{
		RoomID: 1,
		Items: []room.SeedItem{
			{ItemID: 1, Voters: []int64{100}},
			{ItemID: 2, Voters: []int64{100, 101}},
			{ItemID: 3},
		},
	}
	seeded, err := r.SeedQueue(ctx, params)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = r.SeedQueue(ctx, &room.SeedQueueParams{RoomID: 1})
	require.NoError(t, err)
	assert.False(t, seeded, "second seed must be a no-op")

	loaded, err = r.IsQueueLoaded(ctx, 1)
	require.NoError(t, err)
	assert.True(t, loaded)

	items, err := r.GetRankedItems(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []room.RankedItem{
		{ItemID: 2, Votes: 2},
		{ItemID: 1, Votes: 1},
		{ItemID: 3, Votes: 0},
	}, items)

	voted, err := r.HasVoted(ctx, 1, 2, 101)
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestRepairScores(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddQueueItem(ctx, 1, 10, 0))
	_, err := r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 10, UserID: 100})
	require.NoError(t, err)

	// score drifted from the voter set
	_, err = s.ZAdd("room:1:queue", 5, "10")
	require.NoError(t, err)

	voters, err := r.GetQueueVoters(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, r.RepairScores(ctx, 1, voters))

	items, err := r.GetRankedItems(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []room.RankedItem{{ItemID: 10, Votes: 1}}, items)
}

func TestRemoveQueue(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	_, err := r.SeedQueue(ctx, &room.SeedQueueParams{
		RoomID: 1,
		Items:  []room.SeedItem{{ItemID: 1, Voters: []int64{100}}},
	})
	require.NoError(t, err)
	require.NoError(t, r.MarkRoomDirty(ctx, 1))

	require.NoError(t, r.RemoveQueue(ctx, 1))
	assert.Empty(t, s.Keys())
}

func TestCacheUnavailable(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	s.Close()

	_, err := r.GetPlaybackState(ctx, 1)
	require.ErrorIs(t, err, room.ErrCacheUnavailable)

	_, err = r.ToggleVote(ctx, &room.ToggleVoteParams{RoomID: 1, ItemID: 1, UserID: 1})
	require.ErrorIs(t, err, room.ErrCacheUnavailable)

	err = r.AddQueueItem(ctx, 1, 1, 0)
	require.ErrorIs(t, err, room.ErrCacheUnavailable)
}
