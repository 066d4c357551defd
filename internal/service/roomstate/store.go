// Package roomstate is the room state store: a key-scoped API over the cache
// repository that never fails playback callers. When the cache is down reads
// fall back to a locally built default and writes are dropped.
package roomstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/watchroom/internal/metrics"
	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
)

type iCacheRepo interface {
	// playback
	GetPlaybackState(ctx context.Context, roomId int64) (room.PlaybackState, error)
	CreatePlaybackState(context.Context, *room.PlaybackState) (room.PlaybackState, error)
	SetPlaybackState(context.Context, *room.PlaybackState) error
	UpdatePlaybackState(context.Context, *room.UpdatePlaybackStateParams) (room.PlaybackState, error)
	RemovePlaybackState(ctx context.Context, roomId int64) error
	// queue
	AddQueueItem(ctx context.Context, roomId, itemId int64, score int) error
	RemoveQueueItem(ctx context.Context, roomId, itemId int64) error
	IncrementVote(ctx context.Context, roomId, itemId int64) (int, error)
	DecrementVote(ctx context.Context, roomId, itemId int64) (int, error)
	ToggleVote(context.Context, *room.ToggleVoteParams) (room.ToggleVoteResult, error)
	HasVoted(ctx context.Context, roomId, itemId, userId int64) (bool, error)
	IsQueueLoaded(ctx context.Context, roomId int64) (bool, error)
	GetRankedItems(ctx context.Context, roomId int64) ([]room.RankedItem, error)
	SeedQueue(context.Context, *room.SeedQueueParams) (bool, error)
	GetQueueVoters(ctx context.Context, roomId int64) (map[int64][]int64, error)
	RepairScores(ctx context.Context, roomId int64, voters map[int64][]int64) error
	PopDirtyRooms(ctx context.Context, count int) ([]int64, error)
	MarkRoomDirty(ctx context.Context, roomId int64) error
	RemoveQueue(ctx context.Context, roomId int64) error
}

type iSnapshotRepo interface {
	GetRoomState(ctx context.Context, roomId int64) (queue.RoomStateSnapshot, error)
}

type Config struct {
	CacheRepo iCacheRepo
	// SnapshotRepo is optional. When set, a room without cached state starts
	// from its last durable snapshot.
	SnapshotRepo iSnapshotRepo
	Logger       *slog.Logger
	Now          func() time.Time
}

type Store struct {
	cache     iCacheRepo
	snapshots iSnapshotRepo
	logger    *slog.Logger
	now       func() time.Time

	// rooms whose queue writes were dropped; their cached queue is rebuilt
	// on next access.
	staleMu sync.Mutex
	stale   map[int64]struct{}
}

func New(cfg *Config) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		cache:     cfg.CacheRepo,
		snapshots: cfg.SnapshotRepo,
		logger:    cfg.Logger,
		now:       now,
		stale:     make(map[int64]struct{}),
	}
}

func (s *Store) degraded(ctx context.Context, op string, roomId int64, err error) {
	s.logger.WarnContext(ctx, "cache degraded", "op", op, "room_id", roomId, "error", err)
	metrics.CacheDegradedTotal.WithLabelValues(op).Inc()
}

func (s *Store) markStale(roomId int64) {
	s.staleMu.Lock()
	s.stale[roomId] = struct{}{}
	s.staleMu.Unlock()
}

func (s *Store) isStale(roomId int64) bool {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()
	_, ok := s.stale[roomId]
	return ok
}

func (s *Store) clearStale(roomId int64) {
	s.staleMu.Lock()
	delete(s.stale, roomId)
	s.staleMu.Unlock()
}

// DeleteRoom removes every cached key of the room.
func (s *Store) DeleteRoom(ctx context.Context, roomId int64) {
	if err := s.cache.RemovePlaybackState(ctx, roomId); err != nil {
		s.degraded(ctx, "delete_state", roomId, err)
	}

	if err := s.cache.RemoveQueue(ctx, roomId); err != nil {
		s.degraded(ctx, "delete_queue", roomId, err)
		s.markStale(roomId)
		return
	}

	s.clearStale(roomId)
}

func isUnavailable(err error) bool {
	return errors.Is(err, room.ErrCacheUnavailable)
}
