package room

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
	"golang.org/x/exp/slices"
)

type AddToQueueParams struct {
	RoomID   int64
	VideoID  int64
	SenderID int64
}

type AddToQueueResponse struct {
	Item  QueueItem
	Queue []QueueItem
}

type RemoveFromQueueParams struct {
	// RoomID is optional; when set the item must belong to it.
	RoomID      int64
	QueueItemID int64
	SenderID    int64
}

type GetQueueParams struct {
	RoomID   int64
	SenderID int64
}

// ensureQueueLoaded seeds the cached ranking and voter sets from durable rows
// the first time a room's queue is touched.
func (s service) ensureQueueLoaded(ctx context.Context, roomId int64) error {
	loaded, err := s.store.QueueLoaded(ctx, roomId)
	if err != nil {
		return err
	}

	if loaded {
		return nil
	}

	items, err := s.queueRepo.ListByRoom(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	voters, err := s.queueRepo.VotersByRoom(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to list voters: %w", err)
	}

	seed := room.SeedQueueParams{
		RoomID: roomId,
		Items:  make([]room.SeedItem, 0, len(items)),
	}
	for _, item := range items {
		seed.Items = append(seed.Items, room.SeedItem{
			ItemID: item.ID,
			Voters: voters[item.ID],
		})
	}

	return s.store.SeedQueue(ctx, &seed)
}

func compareQueueItems(a, b QueueItem) int {
	if c := cmp.Compare(b.TotalVotes, a.TotalVotes); c != 0 {
		return c
	}
	if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
		return c
	}

	return cmp.Compare(a.ID, b.ID)
}

// getQueue returns the room's items ranked by votes desc, addedAt asc, id asc.
// Vote totals come from the cache when it is reachable and from durable rows
// otherwise.
func (s service) getQueue(ctx context.Context, roomId int64) ([]QueueItem, error) {
	rows, err := s.queueRepo.ListByRoom(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	items := make([]QueueItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, newQueueItem(row))
	}

	if err := s.ensureQueueLoaded(ctx, roomId); err != nil {
		s.logger.WarnContext(ctx, "serving queue from durable storage", "room_id", roomId, "error", err)
		return items, nil
	}

	ranked, err := s.store.RangeDescending(ctx, roomId)
	if err != nil {
		s.logger.WarnContext(ctx, "serving queue from durable storage", "room_id", roomId, "error", err)
		return items, nil
	}

	votes := make(map[int64]int, len(ranked))
	for _, r := range ranked {
		votes[r.ItemID] = r.Votes
	}

	for i := range items {
		if v, ok := votes[items[i].ID]; ok {
			items[i].TotalVotes = v
		}
	}

	slices.SortStableFunc(items, compareQueueItems)

	return items, nil
}

func (s service) publishQueue(ctx context.Context, roomId int64, action string) []QueueItem {
	items, err := s.getQueue(ctx, roomId)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load queue for broadcast", "room_id", roomId, "error", err)
		return nil
	}

	s.publish(ctx, roomId, QueueEvent{
		Action:    action,
		Queue:     items,
		Timestamp: s.timestamp(),
	})

	return items
}

func (s service) AddToQueue(ctx context.Context, params *AddToQueueParams) (AddToQueueResponse, error) {
	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return AddToQueueResponse{}, err
	}

	exists, err := s.directory.VideoExists(ctx, params.VideoID)
	if err != nil {
		return AddToQueueResponse{}, fmt.Errorf("failed to check video: %w", err)
	}

	if !exists {
		return AddToQueueResponse{}, ErrVideoNotFound
	}

	queued, err := s.queueRepo.ExistsByRoomVideo(ctx, params.RoomID, params.VideoID)
	if err != nil {
		return AddToQueueResponse{}, fmt.Errorf("failed to check queue: %w", err)
	}

	if queued {
		return AddToQueueResponse{}, ErrAlreadyQueued
	}

	item, err := s.queueRepo.CreateItem(ctx, &queue.CreateItemParams{
		RoomID:        params.RoomID,
		VideoID:       params.VideoID,
		AddedByUserID: params.SenderID,
		AddedAt:       s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			return AddToQueueResponse{}, ErrAlreadyQueued
		}
		return AddToQueueResponse{}, fmt.Errorf("failed to create queue item: %w", err)
	}

	s.store.AddQueueItem(ctx, params.RoomID, item.ID)

	return AddToQueueResponse{
		Item:  newQueueItem(item),
		Queue: s.publishQueue(ctx, params.RoomID, ActionQueueUpdated),
	}, nil
}

// RemoveFromQueue deletes the item and its votes. Only the room's host and
// admins may remove items.
func (s service) RemoveFromQueue(ctx context.Context, params *RemoveFromQueueParams) ([]QueueItem, error) {
	item, err := s.getRoomItem(ctx, params.RoomID, params.QueueItemID)
	if err != nil {
		return nil, err
	}

	if err := s.checkIfMemberModerator(ctx, item.RoomID, params.SenderID); err != nil {
		return nil, err
	}

	if err := s.queueRepo.DeleteItem(ctx, item.ID); err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return nil, ErrQueueItemNotFound
		}
		return nil, fmt.Errorf("failed to delete queue item: %w", err)
	}

	s.store.RemoveQueueItem(ctx, item.RoomID, item.ID)

	return s.publishQueue(ctx, item.RoomID, ActionQueueUpdated), nil
}

func (s service) GetQueue(ctx context.Context, params *GetQueueParams) ([]QueueItem, error) {
	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return nil, err
	}

	return s.getQueue(ctx, params.RoomID)
}
