package gorm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sharetube/watchroom/internal/repository/chat"
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
	return r.db.WithContext(ctx).AutoMigrate(&chat.Message{})
}

func (r repo) CreateMessage(ctx context.Context, params *chat.CreateMessageParams) (chat.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	message := chat.Message{
		RoomID:   params.RoomID,
		SenderID: params.SenderID,
		Content:  params.Content,
		SentAt:   params.SentAt,
	}

	if err := r.db.WithContext(ctx).Create(&message).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return chat.Message{}, err
	}

	return message, nil
}

func (r repo) GetMessage(ctx context.Context, messageId int64) (chat.Message, error) {
	r.logger.DebugContext(ctx, "called", "message_id", messageId)
	var message chat.Message
	if err := r.db.WithContext(ctx).First(&message, messageId).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.Message{}, chat.ErrMessageNotFound
		}
		return chat.Message{}, err
	}

	return message, nil
}

// SetReaction replaces the message's reaction and returns the updated row.
func (r repo) SetReaction(ctx context.Context, messageId int64, reaction chat.Reaction) (chat.Message, error) {
	r.logger.DebugContext(ctx, "called", "message_id", messageId, "reaction", reaction)
	var message chat.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&chat.Message{}).Where("id = ?", messageId).Update("reaction", reaction)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return chat.ErrMessageNotFound
		}

		return tx.First(&message, messageId).Error
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return chat.Message{}, err
	}

	return message, nil
}

// ListByRoom returns one page of the room's messages, newest first.
func (r repo) ListByRoom(ctx context.Context, params *chat.ListMessagesParams) ([]chat.Message, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	var messages []chat.Message
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", params.RoomID).
		Order("sent_at desc, id desc").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&messages).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return messages, nil
}
