package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/sharetube/watchroom/internal/repository/room"
	omitnilpointers "github.com/sharetube/watchroom/pkg/omit-nil-pointers"
)

func (r repo) getStateKey(roomId int64) string {
	return "room:" + strconv.FormatInt(roomId, 10) + ":state"
}

func (r repo) stateToArgs(state *room.PlaybackState) []any {
	videoId := ""
	if state.CurrentVideoID != nil {
		videoId = strconv.FormatInt(*state.CurrentVideoID, 10)
	}

	return []any{
		"room_id", strconv.FormatInt(state.RoomID, 10),
		"current_video_id", videoId,
		"playback_position", strconv.FormatFloat(state.Position, 'f', -1, 64),
		"is_playing", r.boolToField(state.IsPlaying),
		"last_sync", strconv.FormatInt(state.LastSync.UnixMilli(), 10),
	}
}

func (r repo) stateFromFields(roomId int64, fields map[string]string) room.PlaybackState {
	state := room.PlaybackState{
		RoomID:    roomId,
		Position:  r.fieldToFloat64(fields["playback_position"]),
		IsPlaying: r.fieldToBool(fields["is_playing"]),
		LastSync:  time.UnixMilli(r.fieldToInt64(fields["last_sync"])).UTC(),
	}

	if v := fields["current_video_id"]; v != "" {
		videoId := r.fieldToInt64(v)
		state.CurrentVideoID = &videoId
	}

	return state
}

func (r repo) GetPlaybackState(ctx context.Context, roomId int64) (room.PlaybackState, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	stateKey := r.getStateKey(roomId)
	fields, err := r.rc.HGetAll(ctx, stateKey).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.PlaybackState{}, r.unavailable(err)
	}

	if len(fields) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrStateNotFound)
		return room.PlaybackState{}, room.ErrStateNotFound
	}

	r.rc.Expire(ctx, stateKey, r.expireDuration)

	return r.stateFromFields(roomId, fields), nil
}

// CreatePlaybackState stores state unless the room already has one, and
// returns whatever is stored afterwards.
func (r repo) CreatePlaybackState(ctx context.Context, state *room.PlaybackState) (room.PlaybackState, error) {
	r.logger.DebugContext(ctx, "called", "state", state)
	args := append([]any{r.ttlSeconds()}, r.stateToArgs(state)...)
	pairs, err := r.createStateScript.Run(ctx, r.rc, []string{r.getStateKey(state.RoomID)}, args...).StringSlice()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.PlaybackState{}, r.unavailable(err)
	}

	return r.stateFromFields(state.RoomID, r.pairsToMap(pairs)), nil
}

func (r repo) SetPlaybackState(ctx context.Context, state *room.PlaybackState) error {
	r.logger.DebugContext(ctx, "called", "state", state)
	pipe := r.rc.TxPipeline()

	stateKey := r.getStateKey(state.RoomID)
	pipe.HSet(ctx, stateKey, r.stateToArgs(state)...)
	pipe.Expire(ctx, stateKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// UpdatePlaybackState applies the non-nil fields in one script, creating the
// default record first when the room has none.
func (r repo) UpdatePlaybackState(ctx context.Context, params *room.UpdatePlaybackStateParams) (room.PlaybackState, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	args := []any{
		r.ttlSeconds(),
		strconv.FormatInt(params.RoomID, 10),
		strconv.FormatInt(params.Now.UnixMilli(), 10),
	}

	fields := omitnilpointers.OmitNilPointers(map[string]any{
		"current_video_id":  params.CurrentVideoID,
		"playback_position": params.Position,
		"is_playing":        params.IsPlaying,
	})
	for field, value := range fields {
		args = append(args, field, r.valueToField(value))
	}

	pairs, err := r.updateStateScript.Run(ctx, r.rc, []string{r.getStateKey(params.RoomID)}, args...).StringSlice()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.PlaybackState{}, r.unavailable(err)
	}

	return r.stateFromFields(params.RoomID, r.pairsToMap(pairs)), nil
}

func (r repo) RemovePlaybackState(ctx context.Context, roomId int64) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if err := r.rc.Del(ctx, r.getStateKey(roomId)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return r.unavailable(err)
	}

	return nil
}
