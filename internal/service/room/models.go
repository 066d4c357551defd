package room

import (
	"time"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
)

const timestampLayout = time.RFC3339Nano

const (
	ActionPlay         = "PLAY"
	ActionPause        = "PAUSE"
	ActionSeek         = "SEEK"
	ActionChangeVideo  = "CHANGE_VIDEO"
	ActionSync         = "SYNC"
	ActionQueueUpdated = "QUEUE_UPDATED"
	ActionVoteUpdated  = "VOTE_UPDATED"
	ActionMemberJoined = "MEMBER_JOINED"
	ActionMemberLeft   = "MEMBER_LEFT"
	ActionRoomClosed   = "ROOM_CLOSED"
	ActionMessage      = "MESSAGE"
	ActionReaction     = "REACTION"
)

type PlaybackEvent struct {
	Action    string  `json:"action"`
	Position  float64 `json:"position"`
	VideoID   *int64  `json:"videoId"`
	SenderID  int64   `json:"senderId"`
	Timestamp string  `json:"timestamp"`
}

type QueueItem struct {
	ID            int64     `json:"id"`
	RoomID        int64     `json:"roomId"`
	VideoID       int64     `json:"videoId"`
	AddedByUserID int64     `json:"addedByUserId"`
	Position      int       `json:"position"`
	TotalVotes    int       `json:"totalVotes"`
	AddedAt       time.Time `json:"addedAt"`
}

type QueueEvent struct {
	Action    string      `json:"action"`
	Queue     []QueueItem `json:"queue"`
	Timestamp string      `json:"timestamp"`
}

type MemberEvent struct {
	Action    string `json:"action"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type RoomClosedEvent struct {
	Action    string `json:"action"`
	RoomID    int64  `json:"roomId"`
	Timestamp string `json:"timestamp"`
}

type ChatMessage struct {
	ID         int64     `json:"id"`
	RoomID     int64     `json:"roomId"`
	SenderID   int64     `json:"senderId"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	SentAt     time.Time `json:"sentAt"`
	Reaction   *string   `json:"reaction"`
}

type ChatEvent struct {
	Action    string      `json:"action"`
	Message   ChatMessage `json:"message"`
	Timestamp string      `json:"timestamp"`
}

type Playback struct {
	RoomID            int64   `json:"roomId"`
	CurrentVideoID    *int64  `json:"currentVideoId"`
	PlaybackPosition  float64 `json:"playbackPosition"`
	IsPlaying         bool    `json:"isPlaying"`
	LastSyncTimestamp string  `json:"lastSyncTimestamp"`
}

type RoomState struct {
	Playback Playback    `json:"playback"`
	Queue    []QueueItem `json:"queue"`
}

func newPlayback(state room.PlaybackState) Playback {
	return Playback{
		RoomID:            state.RoomID,
		CurrentVideoID:    state.CurrentVideoID,
		PlaybackPosition:  state.Position,
		IsPlaying:         state.IsPlaying,
		LastSyncTimestamp: state.LastSync.UTC().Format(timestampLayout),
	}
}

func newQueueItem(item queue.QueueItem) QueueItem {
	return QueueItem{
		ID:            item.ID,
		RoomID:        item.RoomID,
		VideoID:       item.VideoID,
		AddedByUserID: item.AddedByUserID,
		Position:      item.Position,
		TotalVotes:    item.TotalVotes,
		AddedAt:       item.AddedAt.UTC(),
	}
}
