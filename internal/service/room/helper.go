package room

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sharetube/watchroom/internal/metrics"
	"github.com/sharetube/watchroom/internal/repository/directory"
	"github.com/sharetube/watchroom/internal/repository/queue"
)

func (s service) getMemberRole(ctx context.Context, roomId, userId int64) (directory.Role, error) {
	role, err := s.directory.MembershipRole(ctx, roomId, userId)
	if err != nil {
		if errors.Is(err, directory.ErrNoMembership) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("failed to get membership: %w", err)
	}

	return role, nil
}

func (s service) checkIfMemberModerator(ctx context.Context, roomId, userId int64) error {
	role, err := s.getMemberRole(ctx, roomId, userId)
	if err != nil {
		return err
	}

	if !role.CanModerate() {
		return ErrNotAuthorized
	}

	return nil
}

func (s service) checkPlaybackAuthority(ctx context.Context, roomId, userId int64) error {
	if s.playbackAuthority == PlaybackAuthorityAdmins {
		return s.checkIfMemberModerator(ctx, roomId, userId)
	}

	_, err := s.getMemberRole(ctx, roomId, userId)
	return err
}

// getRoomItem loads the item and checks it belongs to roomId. A zero roomId
// skips the check.
func (s service) getRoomItem(ctx context.Context, roomId, itemId int64) (queue.QueueItem, error) {
	item, err := s.queueRepo.GetItem(ctx, itemId)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return queue.QueueItem{}, ErrQueueItemNotFound
		}
		return queue.QueueItem{}, fmt.Errorf("failed to get queue item: %w", err)
	}

	if roomId != 0 && item.RoomID != roomId {
		return queue.QueueItem{}, ErrQueueItemNotFound
	}

	return item, nil
}

func (s service) validatePosition(position float64) error {
	if position < 0 || math.IsNaN(position) || math.IsInf(position, 0) {
		return ErrInvalidPosition
	}

	return nil
}

func (s service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// publish is best effort: a failed publish never fails the command.
func (s service) publish(ctx context.Context, roomId int64, event any) {
	if err := s.publisher.Publish(ctx, roomId, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "room_id", roomId, "error", err)
	}
}

func (s service) durableFailure(ctx context.Context, op string, err error, args ...any) {
	s.logger.ErrorContext(ctx, "durable write failed", append([]any{"op", op, "error", err}, args...)...)
	metrics.DurableWriteFailuresTotal.WithLabelValues(op).Inc()
}
