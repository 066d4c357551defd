package room

import (
	"context"
	"fmt"
	"time"
)

const (
	reconcileBatch  = 100
	reconcileRounds = 10
)

// Reconcile makes durable vote rows and totals equal to the cached voter sets
// of the room and repairs cached scores that drifted from them.
func (s service) Reconcile(ctx context.Context, roomId int64) error {
	voters, err := s.store.QueueVoters(ctx, roomId)
	if err != nil {
		// nothing cached to write back
		return nil
	}

	if err := s.queueRepo.ReplaceVotes(ctx, roomId, voters); err != nil {
		s.durableFailure(ctx, "replace_votes", err, "room_id", roomId)
		s.store.MarkDirty(ctx, roomId)
		return fmt.Errorf("failed to replace votes: %w", err)
	}

	if err := s.store.RepairScores(ctx, roomId, voters); err != nil {
		s.logger.WarnContext(ctx, "failed to repair scores", "room_id", roomId, "error", err)
	}

	return nil
}

func (s service) reconcileDirty(ctx context.Context) {
	for round := 0; round < reconcileRounds; round++ {
		rooms, err := s.store.PopDirtyRooms(ctx, reconcileBatch)
		if err != nil || len(rooms) == 0 {
			return
		}

		for _, roomId := range rooms {
			if err := s.Reconcile(ctx, roomId); err != nil {
				s.logger.ErrorContext(ctx, "failed to reconcile room", "room_id", roomId, "error", err)
			}
		}

		if len(rooms) < reconcileBatch {
			return
		}
	}
}

// RunReconciler reconciles rooms with pending vote changes every interval
// until ctx is done.
func (s service) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileDirty(ctx)
		}
	}
}
