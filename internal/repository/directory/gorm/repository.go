package gorm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sharetube/watchroom/internal/repository/directory"
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

// Migrate creates the directory tables. Only used when the server owns the
// schema, e.g. a local sqlite database.
func (r repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&directory.RoomMember{}, &directory.Video{}, &directory.User{})
}

func (r repo) MembershipRole(ctx context.Context, roomId, userId int64) (directory.Role, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "user_id", userId)
	var member directory.RoomMember
	err := r.db.WithContext(ctx).
		Select("role").
		Where("room_id = ? AND user_id = ?", roomId, userId).
		First(&member).Error
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", directory.ErrNoMembership
		}
		return "", err
	}

	return member.Role, nil
}

func (r repo) VideoExists(ctx context.Context, videoId int64) (bool, error) {
	r.logger.DebugContext(ctx, "called", "video_id", videoId)
	var count int64
	if err := r.db.WithContext(ctx).Model(&directory.Video{}).Where("id = ?", videoId).Count(&count).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return count > 0, nil
}

func (r repo) UserDisplayName(ctx context.Context, userId int64) (string, error) {
	r.logger.DebugContext(ctx, "called", "user_id", userId)
	var user directory.User
	if err := r.db.WithContext(ctx).Select("username").First(&user, userId).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", directory.ErrUserNotFound
		}
		return "", err
	}

	return user.Username, nil
}
