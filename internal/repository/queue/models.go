package queue

import "time"

type QueueItem struct {
	ID            int64     `gorm:"primaryKey"`
	RoomID        int64     `gorm:"uniqueIndex:idx_queue_room_video;not null"`
	VideoID       int64     `gorm:"uniqueIndex:idx_queue_room_video;not null"`
	AddedByUserID int64     `gorm:"not null"`
	Position      int       `gorm:"not null"`
	TotalVotes    int       `gorm:"not null;default:0"`
	AddedAt       time.Time `gorm:"not null"`
}

func (QueueItem) TableName() string {
	return "queue_items"
}

type Vote struct {
	ID          int64 `gorm:"primaryKey"`
	UserID      int64 `gorm:"uniqueIndex:idx_vote_user_item;not null"`
	QueueItemID int64 `gorm:"uniqueIndex:idx_vote_user_item;index;not null"`
	CreatedAt   time.Time
}

func (Vote) TableName() string {
	return "votes"
}

// RoomStateSnapshot is the playback state written when a room closes.
type RoomStateSnapshot struct {
	RoomID            int64 `gorm:"primaryKey;autoIncrement:false"`
	CurrentVideoID    *int64
	PlaybackPosition  float64 `gorm:"not null;default:0"`
	IsPlaying         bool    `gorm:"not null;default:false"`
	LastSyncTimestamp time.Time
	UpdatedAt         time.Time
}

func (RoomStateSnapshot) TableName() string {
	return "room_state"
}

type CreateItemParams struct {
	RoomID        int64
	VideoID       int64
	AddedByUserID int64
	AddedAt       time.Time
}

type ToggleVoteResult struct {
	Added      bool
	TotalVotes int
}
