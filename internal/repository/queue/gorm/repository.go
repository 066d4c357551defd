package gorm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"gorm.io/gorm"
)

type repo struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepo(db *gorm.DB, logger *slog.Logger) *repo {
	return &repo{
		db:     db,
		logger: logger,
	}
}

func (r repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&queue.QueueItem{}, &queue.Vote{}, &queue.RoomStateSnapshot{})
}

// recountTotal sets total_votes from the vote rows of the item.
func (r repo) recountTotal(tx *gorm.DB, itemId int64) (int, error) {
	res := tx.Model(&queue.QueueItem{}).
		Where("id = ?", itemId).
		Update("total_votes", gorm.Expr("(SELECT COUNT(*) FROM votes WHERE votes.queue_item_id = ?)", itemId))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, queue.ErrItemNotFound
	}

	var total int
	if err := tx.Model(&queue.QueueItem{}).Where("id = ?", itemId).Select("total_votes").Scan(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

func (r repo) notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}

	return err
}

func (r repo) RecountTotal(ctx context.Context, itemId int64) (int, error) {
	r.logger.DebugContext(ctx, "called", "item_id", itemId)
	total, err := r.recountTotal(r.db.WithContext(ctx), itemId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return 0, err
	}

	return total, nil
}
