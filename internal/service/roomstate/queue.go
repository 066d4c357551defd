package roomstate

import (
	"context"

	"github.com/sharetube/watchroom/internal/repository/room"
)

type ToggleResult struct {
	Added bool
	Votes int
}

// AddQueueItem registers the item in the ranked set. A dropped write marks
// the room's cached queue stale.
func (s *Store) AddQueueItem(ctx context.Context, roomId, itemId int64) {
	if err := s.cache.AddQueueItem(ctx, roomId, itemId, 0); err != nil {
		s.degraded(ctx, "add_queue_item", roomId, err)
		s.markStale(roomId)
	}
}

func (s *Store) RemoveQueueItem(ctx context.Context, roomId, itemId int64) {
	if err := s.cache.RemoveQueueItem(ctx, roomId, itemId); err != nil {
		s.degraded(ctx, "remove_queue_item", roomId, err)
		s.markStale(roomId)
	}
}

func (s *Store) IncrementVote(ctx context.Context, roomId, itemId int64) (int, error) {
	votes, err := s.cache.IncrementVote(ctx, roomId, itemId)
	if err != nil {
		if isUnavailable(err) {
			s.degraded(ctx, "increment_vote", roomId, err)
		}
		return 0, err
	}

	return votes, nil
}

func (s *Store) DecrementVote(ctx context.Context, roomId, itemId int64) (int, error) {
	votes, err := s.cache.DecrementVote(ctx, roomId, itemId)
	if err != nil {
		if isUnavailable(err) {
			s.degraded(ctx, "decrement_vote", roomId, err)
		}
		return 0, err
	}

	return votes, nil
}

// ToggleVote flips the user's vote for the item: present means remove and
// decrement, absent means add and increment, as one atomic cache operation.
// Returns room.ErrItemNotQueued when the item is not in the ranked set and
// room.ErrCacheUnavailable when the cache cannot be reached.
func (s *Store) ToggleVote(ctx context.Context, roomId, itemId, userId int64) (ToggleResult, error) {
	res, err := s.cache.ToggleVote(ctx, &room.ToggleVoteParams{
		RoomID: roomId,
		ItemID: itemId,
		UserID: userId,
	})
	if err != nil {
		if isUnavailable(err) {
			s.degraded(ctx, "toggle_vote", roomId, err)
		}
		return ToggleResult{}, err
	}

	return ToggleResult{Added: res.Added, Votes: res.Votes}, nil
}

func (s *Store) HasVoted(ctx context.Context, roomId, itemId, userId int64) (bool, error) {
	voted, err := s.cache.HasVoted(ctx, roomId, itemId, userId)
	if err != nil {
		s.degraded(ctx, "has_voted", roomId, err)
		return false, err
	}

	return voted, nil
}

// QueueLoaded reports whether the room's queue is cached. A stale queue is
// dropped first so the caller reseeds it.
func (s *Store) QueueLoaded(ctx context.Context, roomId int64) (bool, error) {
	if s.isStale(roomId) {
		if err := s.cache.RemoveQueue(ctx, roomId); err != nil {
			s.degraded(ctx, "drop_stale_queue", roomId, err)
			return false, err
		}
		s.clearStale(roomId)
		return false, nil
	}

	loaded, err := s.cache.IsQueueLoaded(ctx, roomId)
	if err != nil {
		s.degraded(ctx, "queue_loaded", roomId, err)
		return false, err
	}

	return loaded, nil
}

func (s *Store) SeedQueue(ctx context.Context, params *room.SeedQueueParams) error {
	if _, err := s.cache.SeedQueue(ctx, params); err != nil {
		s.degraded(ctx, "seed_queue", params.RoomID, err)
		return err
	}

	return nil
}

// RangeDescending returns the cached ranking, highest score first.
func (s *Store) RangeDescending(ctx context.Context, roomId int64) ([]room.RankedItem, error) {
	items, err := s.cache.GetRankedItems(ctx, roomId)
	if err != nil {
		s.degraded(ctx, "range_descending", roomId, err)
		return nil, err
	}

	return items, nil
}

func (s *Store) QueueVoters(ctx context.Context, roomId int64) (map[int64][]int64, error) {
	voters, err := s.cache.GetQueueVoters(ctx, roomId)
	if err != nil {
		s.degraded(ctx, "queue_voters", roomId, err)
		return nil, err
	}

	return voters, nil
}

func (s *Store) RepairScores(ctx context.Context, roomId int64, voters map[int64][]int64) error {
	if err := s.cache.RepairScores(ctx, roomId, voters); err != nil {
		s.degraded(ctx, "repair_scores", roomId, err)
		return err
	}

	return nil
}

func (s *Store) PopDirtyRooms(ctx context.Context, count int) ([]int64, error) {
	rooms, err := s.cache.PopDirtyRooms(ctx, count)
	if err != nil {
		s.degraded(ctx, "pop_dirty_rooms", 0, err)
		return nil, err
	}

	return rooms, nil
}

// MarkDirty queues the room for another write-back pass.
func (s *Store) MarkDirty(ctx context.Context, roomId int64) {
	if err := s.cache.MarkRoomDirty(ctx, roomId); err != nil {
		s.degraded(ctx, "mark_dirty", roomId, err)
	}
}

// Invalidate drops the room's cached queue on next access so it is reseeded
// from durable rows.
func (s *Store) Invalidate(roomId int64) {
	s.markStale(roomId)
}
