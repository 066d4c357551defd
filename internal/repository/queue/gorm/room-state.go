package gorm

import (
	"context"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"gorm.io/gorm/clause"
)

func (r repo) SaveRoomState(ctx context.Context, snapshot *queue.RoomStateSnapshot) error {
	r.logger.DebugContext(ctx, "called", "snapshot", snapshot)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(snapshot).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetRoomState(ctx context.Context, roomId int64) (queue.RoomStateSnapshot, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var snapshot queue.RoomStateSnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "room_id = ?", roomId).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return queue.RoomStateSnapshot{}, r.notFound(err, queue.ErrSnapshotNotFound)
	}

	return snapshot, nil
}
