package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
)

const mirrorTimeout = 5 * time.Second

type ToggleVoteParams struct {
	// RoomID is optional; when set the item must belong to it.
	RoomID      int64
	QueueItemID int64
	SenderID    int64
}

type ToggleVoteResponse struct {
	VoteAdded  bool `json:"voteAdded"`
	TotalVotes int  `json:"totalVotes"`
}

type HasVotedParams struct {
	RoomID      int64
	QueueItemID int64
	SenderID    int64
}

// mirrorVote writes a cached vote change to durable rows off the caller's
// path. Mirrored changes may apply out of order, so the room is left dirty
// for the reconciler either way.
func (s *service) mirrorVote(roomId, userId, itemId int64, added bool) {
	s.mirror.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		var err error
		if added {
			err = s.queueRepo.EnsureVote(ctx, userId, itemId)
		} else {
			err = s.queueRepo.DeleteVote(ctx, userId, itemId)
		}

		if err == nil {
			_, err = s.queueRepo.RecountTotal(ctx, itemId)
		}

		if errors.Is(err, queue.ErrItemNotFound) {
			// item removed meanwhile, drop the orphaned row
			err = s.queueRepo.DeleteVote(ctx, userId, itemId)
		}

		if err != nil {
			s.durableFailure(ctx, "mirror_vote", err, "room_id", roomId, "item_id", itemId, "user_id", userId)
		}

		s.store.MarkDirty(ctx, roomId)
	})
}

// toggleDurable flips the vote on durable rows. Used while the cached queue
// cannot serve the toggle; the cached queue is rebuilt afterwards.
func (s service) toggleDurable(ctx context.Context, item queue.QueueItem, userId int64) (ToggleVoteResponse, error) {
	res, err := s.queueRepo.ToggleVote(ctx, userId, item.ID)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return ToggleVoteResponse{}, ErrQueueItemNotFound
		}
		return ToggleVoteResponse{}, fmt.Errorf("failed to toggle vote: %w", err)
	}

	s.store.Invalidate(item.RoomID)

	return ToggleVoteResponse{
		VoteAdded:  res.Added,
		TotalVotes: res.TotalVotes,
	}, nil
}

func (s *service) toggleCached(ctx context.Context, item queue.QueueItem, userId int64) (ToggleVoteResponse, error) {
	if err := s.ensureQueueLoaded(ctx, item.RoomID); err != nil {
		return ToggleVoteResponse{}, err
	}

	res, err := s.store.ToggleVote(ctx, item.RoomID, item.ID, userId)
	if err != nil {
		return ToggleVoteResponse{}, err
	}

	s.mirrorVote(item.RoomID, userId, item.ID, res.Added)

	return ToggleVoteResponse{
		VoteAdded:  res.Added,
		TotalVotes: res.Votes,
	}, nil
}

// ToggleVote adds the caller's vote for the item or removes it if present.
func (s *service) ToggleVote(ctx context.Context, params *ToggleVoteParams) (ToggleVoteResponse, error) {
	item, err := s.getRoomItem(ctx, params.RoomID, params.QueueItemID)
	if err != nil {
		return ToggleVoteResponse{}, err
	}

	if _, err := s.getMemberRole(ctx, item.RoomID, params.SenderID); err != nil {
		return ToggleVoteResponse{}, err
	}

	resp, err := s.toggleCached(ctx, item, params.SenderID)
	if err != nil {
		if !errors.Is(err, room.ErrCacheUnavailable) && !errors.Is(err, room.ErrItemNotQueued) {
			return ToggleVoteResponse{}, fmt.Errorf("failed to toggle cached vote: %w", err)
		}

		s.logger.WarnContext(ctx, "toggling vote on durable storage", "room_id", item.RoomID, "item_id", item.ID, "error", err)
		resp, err = s.toggleDurable(ctx, item, params.SenderID)
		if err != nil {
			return ToggleVoteResponse{}, err
		}
	}

	s.publishQueue(ctx, item.RoomID, ActionVoteUpdated)

	return resp, nil
}

func (s service) HasVoted(ctx context.Context, params *HasVotedParams) (bool, error) {
	item, err := s.getRoomItem(ctx, params.RoomID, params.QueueItemID)
	if err != nil {
		return false, err
	}

	if _, err := s.getMemberRole(ctx, item.RoomID, params.SenderID); err != nil {
		return false, err
	}

	if err := s.ensureQueueLoaded(ctx, item.RoomID); err == nil {
		voted, err := s.store.HasVoted(ctx, item.RoomID, item.ID, params.SenderID)
		if err == nil {
			return voted, nil
		}
	}

	voted, err := s.queueRepo.HasVoted(ctx, params.SenderID, item.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}

	return voted, nil
}
