package gorm

import (
	"context"
	"errors"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"gorm.io/gorm"
)

// CreateItem appends a queue item at position max+1 of the room.
func (r repo) CreateItem(ctx context.Context, params *queue.CreateItemParams) (queue.QueueItem, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	item := queue.QueueItem{
		RoomID:        params.RoomID,
		VideoID:       params.VideoID,
		AddedByUserID: params.AddedByUserID,
		AddedAt:       params.AddedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.Model(&queue.QueueItem{}).
			Where("room_id = ?", params.RoomID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}

		item.Position = maxPosition + 1
		return tx.Create(&item).Error
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return queue.QueueItem{}, queue.ErrAlreadyQueued
		}
		return queue.QueueItem{}, err
	}

	return item, nil
}

func (r repo) GetItem(ctx context.Context, itemId int64) (queue.QueueItem, error) {
	r.logger.DebugContext(ctx, "called", "item_id", itemId)
	var item queue.QueueItem
	if err := r.db.WithContext(ctx).First(&item, itemId).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return queue.QueueItem{}, r.notFound(err, queue.ErrItemNotFound)
	}

	return item, nil
}

func (r repo) ExistsByRoomVideo(ctx context.Context, roomId, videoId int64) (bool, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "video_id", videoId)
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&queue.QueueItem{}).
		Where("room_id = ? AND video_id = ?", roomId, videoId).
		Count(&count).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return count > 0, nil
}

// ListByRoom returns the room's items ordered by votes desc, added_at asc, id asc.
func (r repo) ListByRoom(ctx context.Context, roomId int64) ([]queue.QueueItem, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var items []queue.QueueItem
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomId).
		Order("total_votes desc, added_at asc, id asc").
		Find(&items).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return items, nil
}

// DeleteItem removes the item together with its votes.
func (r repo) DeleteItem(ctx context.Context, itemId int64) error {
	r.logger.DebugContext(ctx, "called", "item_id", itemId)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("queue_item_id = ?", itemId).Delete(&queue.Vote{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&queue.QueueItem{}, itemId)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return queue.ErrItemNotFound
		}

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
