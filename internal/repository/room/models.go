package room

import "time"

type PlaybackState struct {
	RoomID         int64
	CurrentVideoID *int64
	Position       float64
	IsPlaying      bool
	LastSync       time.Time
}

func DefaultPlaybackState(roomID int64, now time.Time) PlaybackState {
	return PlaybackState{
		RoomID:   roomID,
		LastSync: now,
	}
}

// UpdatePlaybackStateParams lists the fields to overwrite; nil fields are kept.
type UpdatePlaybackStateParams struct {
	RoomID         int64
	CurrentVideoID *int64
	Position       *float64
	IsPlaying      *bool
	Now            time.Time
}

type RankedItem struct {
	ItemID int64
	Votes  int
}

type ToggleVoteParams struct {
	RoomID int64
	ItemID int64
	UserID int64
}

type ToggleVoteResult struct {
	Added bool
	Votes int
}

type SeedItem struct {
	ItemID int64
	Voters []int64
}

type SeedQueueParams struct {
	RoomID int64
	Items  []SeedItem
}
