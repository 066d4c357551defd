package room

import (
	"context"
	"fmt"

	"github.com/sharetube/watchroom/internal/repository/directory"
	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
)

type RoomParams struct {
	RoomID   int64
	SenderID int64
}

func (s service) roomState(ctx context.Context, roomId int64, state room.PlaybackState) (RoomState, error) {
	items, err := s.getQueue(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}

	return RoomState{
		Playback: newPlayback(state),
		Queue:    items,
	}, nil
}

// InitRoomState resets the room's playback to the default state.
func (s service) InitRoomState(ctx context.Context, params *RoomParams) (RoomState, error) {
	if err := s.checkIfMemberModerator(ctx, params.RoomID, params.SenderID); err != nil {
		return RoomState{}, err
	}

	state := room.DefaultPlaybackState(params.RoomID, s.now())
	s.store.Save(ctx, &state)

	return s.roomState(ctx, params.RoomID, state)
}

func (s service) GetRoomState(ctx context.Context, params *RoomParams) (RoomState, error) {
	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return RoomState{}, err
	}

	return s.roomState(ctx, params.RoomID, s.store.Get(ctx, params.RoomID))
}

// CloseRoom writes the room's votes and playback state to durable storage and
// drops its cached state. The snapshot is left alone when the cache is
// unreachable. Host only.
func (s *service) CloseRoom(ctx context.Context, params *RoomParams) error {
	role, err := s.getMemberRole(ctx, params.RoomID, params.SenderID)
	if err != nil {
		return err
	}

	if role != directory.RoleHost {
		return ErrNotAuthorized
	}

	if err := s.Reconcile(ctx, params.RoomID); err != nil {
		return fmt.Errorf("failed to write back votes: %w", err)
	}

	// a default record from an unreachable cache must not replace the last snapshot
	if state, ok := s.store.Lookup(ctx, params.RoomID); ok {
		if err := s.queueRepo.SaveRoomState(ctx, &queue.RoomStateSnapshot{
			RoomID:            state.RoomID,
			CurrentVideoID:    state.CurrentVideoID,
			PlaybackPosition:  state.Position,
			IsPlaying:         state.IsPlaying,
			LastSyncTimestamp: state.LastSync,
		}); err != nil {
			s.durableFailure(ctx, "save_room_state", err, "room_id", params.RoomID)
			return fmt.Errorf("failed to save room state: %w", err)
		}
	}

	s.store.DeleteRoom(ctx, params.RoomID)

	s.publish(ctx, params.RoomID, RoomClosedEvent{
		Action:    ActionRoomClosed,
		RoomID:    params.RoomID,
		Timestamp: s.timestamp(),
	})

	return nil
}

func (s service) memberEvent(ctx context.Context, action string, userId int64) MemberEvent {
	username, err := s.directory.UserDisplayName(ctx, userId)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to get display name", "user_id", userId, "error", err)
	}

	return MemberEvent{
		Action:    action,
		UserID:    userId,
		Username:  username,
		Timestamp: s.timestamp(),
	}
}

// MemberJoined announces the caller to the room and returns the state the
// caller should render.
func (s service) MemberJoined(ctx context.Context, params *RoomParams) (RoomState, error) {
	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return RoomState{}, err
	}

	s.publish(ctx, params.RoomID, s.memberEvent(ctx, ActionMemberJoined, params.SenderID))

	return s.roomState(ctx, params.RoomID, s.store.Get(ctx, params.RoomID))
}

// MemberLeft announces that the caller left. Membership is not checked since
// the user may already have been removed from the room.
func (s service) MemberLeft(ctx context.Context, params *RoomParams) {
	s.publish(ctx, params.RoomID, s.memberEvent(ctx, ActionMemberLeft, params.SenderID))
}
