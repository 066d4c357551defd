package gorm

import (
	"context"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureVote inserts the vote row unless it already exists.
func (r repo) EnsureVote(ctx context.Context, userId, itemId int64) error {
	r.logger.DebugContext(ctx, "called", "user_id", userId, "item_id", itemId)
	vote := queue.Vote{UserID: userId, QueueItemID: itemId}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&vote).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) DeleteVote(ctx context.Context, userId, itemId int64) error {
	r.logger.DebugContext(ctx, "called", "user_id", userId, "item_id", itemId)
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND queue_item_id = ?", userId, itemId).
		Delete(&queue.Vote{}).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) HasVoted(ctx context.Context, userId, itemId int64) (bool, error) {
	r.logger.DebugContext(ctx, "called", "user_id", userId, "item_id", itemId)
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&queue.Vote{}).
		Where("user_id = ? AND queue_item_id = ?", userId, itemId).
		Count(&count).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return count > 0, nil
}

// ToggleVote flips the vote row and recounts the total in one transaction.
func (r repo) ToggleVote(ctx context.Context, userId, itemId int64) (queue.ToggleVoteResult, error) {
	r.logger.DebugContext(ctx, "called", "user_id", userId, "item_id", itemId)
	var result queue.ToggleVoteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item queue.QueueItem
		if err := tx.Select("id").First(&item, itemId).Error; err != nil {
			return r.notFound(err, queue.ErrItemNotFound)
		}

		res := tx.Where("user_id = ? AND queue_item_id = ?", userId, itemId).Delete(&queue.Vote{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			if err := tx.Create(&queue.Vote{UserID: userId, QueueItemID: itemId}).Error; err != nil {
				return err
			}
			result.Added = true
		}

		total, err := r.recountTotal(tx, itemId)
		if err != nil {
			return err
		}
		result.TotalVotes = total

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return queue.ToggleVoteResult{}, err
	}

	return result, nil
}

// VotersByRoom maps each item of the room that has votes to its voters.
func (r repo) VotersByRoom(ctx context.Context, roomId int64) (map[int64][]int64, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var votes []queue.Vote
	if err := r.db.WithContext(ctx).
		Joins("JOIN queue_items ON queue_items.id = votes.queue_item_id").
		Where("queue_items.room_id = ?", roomId).
		Order("votes.id").
		Find(&votes).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	voters := make(map[int64][]int64)
	for _, v := range votes {
		voters[v.QueueItemID] = append(voters[v.QueueItemID], v.UserID)
	}

	return voters, nil
}

// ReplaceVotes makes the vote rows of each listed item equal to the given
// voters and recounts its total. Items no longer in the room are skipped.
func (r repo) ReplaceVotes(ctx context.Context, roomId int64, voters map[int64][]int64) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "items", len(voters))
	if len(voters) == 0 {
		return nil
	}

	itemIds := make([]int64, 0, len(voters))
	for itemId := range voters {
		itemIds = append(itemIds, itemId)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []int64
		if err := tx.Model(&queue.QueueItem{}).
			Where("room_id = ? AND id IN ?", roomId, itemIds).
			Pluck("id", &existing).Error; err != nil {
			return err
		}

		for _, itemId := range existing {
			users := voters[itemId]

			del := tx.Where("queue_item_id = ?", itemId)
			if len(users) > 0 {
				del = del.Where("user_id NOT IN ?", users)
			}
			if err := del.Delete(&queue.Vote{}).Error; err != nil {
				return err
			}

			if len(users) > 0 {
				rows := make([]queue.Vote, 0, len(users))
				for _, userId := range users {
					rows = append(rows, queue.Vote{UserID: userId, QueueItemID: itemId})
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
					return err
				}
			}

			if _, err := r.recountTotal(tx, itemId); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
