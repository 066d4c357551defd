package roomstate

import (
	"context"
	"errors"

	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
)

func (s *Store) initialState(ctx context.Context, roomId int64) room.PlaybackState {
	state := room.DefaultPlaybackState(roomId, s.now())
	if s.snapshots == nil {
		return state
	}

	snapshot, err := s.snapshots.GetRoomState(ctx, roomId)
	if err != nil {
		if !errors.Is(err, queue.ErrSnapshotNotFound) {
			s.logger.ErrorContext(ctx, "failed to load room state snapshot", "room_id", roomId, "error", err)
		}
		return state
	}

	state.CurrentVideoID = snapshot.CurrentVideoID
	state.Position = snapshot.PlaybackPosition
	// a reopened room starts paused
	state.IsPlaying = false
	return state
}

// Get returns the room's playback state, creating it when absent.
func (s *Store) Get(ctx context.Context, roomId int64) room.PlaybackState {
	state, _ := s.Lookup(ctx, roomId)
	return state
}

// Lookup is Get that also reports whether the state is real. It is false
// when the cache could not be read and a default record was returned.
func (s *Store) Lookup(ctx context.Context, roomId int64) (room.PlaybackState, bool) {
	state, err := s.cache.GetPlaybackState(ctx, roomId)
	if err == nil {
		return state, true
	}

	if !errors.Is(err, room.ErrStateNotFound) {
		s.degraded(ctx, "get_state", roomId, err)
		return room.DefaultPlaybackState(roomId, s.now()), false
	}

	initial := s.initialState(ctx, roomId)
	state, err = s.cache.CreatePlaybackState(ctx, &initial)
	if err != nil {
		s.degraded(ctx, "create_state", roomId, err)
		return initial, true
	}

	return state, true
}

func (s *Store) Save(ctx context.Context, state *room.PlaybackState) {
	if err := s.cache.SetPlaybackState(ctx, state); err != nil {
		s.degraded(ctx, "save_state", state.RoomID, err)
	}
}

func (s *Store) Delete(ctx context.Context, roomId int64) {
	if err := s.cache.RemovePlaybackState(ctx, roomId); err != nil {
		s.degraded(ctx, "delete_state", roomId, err)
	}
}

// update applies params atomically in the cache. When the cache is down the
// change is applied to a default record so callers still see the result of
// their command.
func (s *Store) update(ctx context.Context, op string, params *room.UpdatePlaybackStateParams) room.PlaybackState {
	params.Now = s.now()
	state, err := s.cache.UpdatePlaybackState(ctx, params)
	if err == nil {
		return state
	}

	s.degraded(ctx, op, params.RoomID, err)
	state = room.DefaultPlaybackState(params.RoomID, params.Now)
	if params.CurrentVideoID != nil {
		state.CurrentVideoID = params.CurrentVideoID
	}
	if params.Position != nil {
		state.Position = *params.Position
	}
	if params.IsPlaying != nil {
		state.IsPlaying = *params.IsPlaying
	}

	return state
}

func (s *Store) UpdatePosition(ctx context.Context, roomId int64, position float64) room.PlaybackState {
	return s.update(ctx, "update_position", &room.UpdatePlaybackStateParams{
		RoomID:   roomId,
		Position: &position,
	})
}

func (s *Store) UpdatePlayingStatus(ctx context.Context, roomId int64, isPlaying bool, position float64) room.PlaybackState {
	return s.update(ctx, "update_playing_status", &room.UpdatePlaybackStateParams{
		RoomID:    roomId,
		Position:  &position,
		IsPlaying: &isPlaying,
	})
}

// UpdateCurrentVideo switches the video and rewinds to a paused start.
func (s *Store) UpdateCurrentVideo(ctx context.Context, roomId, videoId int64) room.PlaybackState {
	position := 0.0
	isPlaying := false
	return s.update(ctx, "update_current_video", &room.UpdatePlaybackStateParams{
		RoomID:         roomId,
		CurrentVideoID: &videoId,
		Position:       &position,
		IsPlaying:      &isPlaying,
	})
}
