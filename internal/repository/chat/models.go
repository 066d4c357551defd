package chat

import (
	"errors"
	"time"
)

var ErrMessageNotFound = errors.New("chat message not found")

type Reaction string

const (
	ReactionLike Reaction = "LIKE"
	ReactionLove Reaction = "LOVE"
	ReactionHaha Reaction = "HAHA"
	ReactionWow  Reaction = "WOW"
	ReactionSad  Reaction = "SAD"
)

func (r Reaction) Valid() bool {
	switch r {
	case ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad:
		return true
	}

	return false
}

// Message is a room chat line. A message carries at most one reaction, the
// last one set. Reaction is empty until then.
type Message struct {
	ID       int64     `gorm:"primaryKey"`
	RoomID   int64     `gorm:"index:idx_chat_room_time,priority:1;not null"`
	SenderID int64     `gorm:"not null"`
	Content  string    `gorm:"size:1000;not null"`
	Reaction Reaction  `gorm:"size:16;not null;default:''"`
	SentAt   time.Time `gorm:"index:idx_chat_room_time,priority:2;not null"`
}

func (Message) TableName() string {
	return "chat_messages"
}

type CreateMessageParams struct {
	RoomID   int64
	SenderID int64
	Content  string
	SentAt   time.Time
}

type ListMessagesParams struct {
	RoomID int64
	Offset int
	Limit  int
}
