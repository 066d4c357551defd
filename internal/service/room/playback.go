package room

import (
	"context"
	"fmt"

	"github.com/sharetube/watchroom/internal/repository/room"
)

type PlaybackParams struct {
	RoomID   int64
	SenderID int64
	Position float64
}

type ChangeVideoParams struct {
	RoomID   int64
	SenderID int64
	VideoID  int64
}

func (s service) playbackEvent(action string, senderId int64, state room.PlaybackState) PlaybackEvent {
	return PlaybackEvent{
		Action:    action,
		Position:  state.Position,
		VideoID:   state.CurrentVideoID,
		SenderID:  senderId,
		Timestamp: s.timestamp(),
	}
}

func (s service) applyPosition(ctx context.Context, action string, params *PlaybackParams, mutate func() room.PlaybackState) (PlaybackEvent, error) {
	if err := s.validatePosition(params.Position); err != nil {
		return PlaybackEvent{}, err
	}

	if err := s.checkPlaybackAuthority(ctx, params.RoomID, params.SenderID); err != nil {
		return PlaybackEvent{}, err
	}

	event := s.playbackEvent(action, params.SenderID, mutate())
	s.publish(ctx, params.RoomID, event)

	return event, nil
}

func (s service) Play(ctx context.Context, params *PlaybackParams) (PlaybackEvent, error) {
	return s.applyPosition(ctx, ActionPlay, params, func() room.PlaybackState {
		return s.store.UpdatePlayingStatus(ctx, params.RoomID, true, params.Position)
	})
}

func (s service) Pause(ctx context.Context, params *PlaybackParams) (PlaybackEvent, error) {
	return s.applyPosition(ctx, ActionPause, params, func() room.PlaybackState {
		return s.store.UpdatePlayingStatus(ctx, params.RoomID, false, params.Position)
	})
}

func (s service) Seek(ctx context.Context, params *PlaybackParams) (PlaybackEvent, error) {
	return s.applyPosition(ctx, ActionSeek, params, func() room.PlaybackState {
		return s.store.UpdatePosition(ctx, params.RoomID, params.Position)
	})
}

// SyncPosition records the position reported by the periodic client sync.
func (s service) SyncPosition(ctx context.Context, params *PlaybackParams) (PlaybackEvent, error) {
	return s.applyPosition(ctx, ActionSync, params, func() room.PlaybackState {
		return s.store.UpdatePosition(ctx, params.RoomID, params.Position)
	})
}

// ChangeVideo switches the room to videoId, rewound and paused.
func (s service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) (PlaybackEvent, error) {
	if err := s.checkPlaybackAuthority(ctx, params.RoomID, params.SenderID); err != nil {
		return PlaybackEvent{}, err
	}

	exists, err := s.directory.VideoExists(ctx, params.VideoID)
	if err != nil {
		return PlaybackEvent{}, fmt.Errorf("failed to check video: %w", err)
	}

	if !exists {
		return PlaybackEvent{}, ErrVideoNotFound
	}

	state := s.store.UpdateCurrentVideo(ctx, params.RoomID, params.VideoID)
	event := s.playbackEvent(ActionChangeVideo, params.SenderID, state)
	s.publish(ctx, params.RoomID, event)

	return event, nil
}
