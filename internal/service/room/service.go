package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharetube/watchroom/internal/repository/chat"
	"github.com/sharetube/watchroom/internal/repository/directory"
	"github.com/sharetube/watchroom/internal/repository/queue"
	"github.com/sharetube/watchroom/internal/repository/room"
	"github.com/sharetube/watchroom/internal/service/roomstate"
)

var (
	ErrNotMember       = errors.New("user is not a member of the room")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrAlreadyQueued   = errors.New("video is already in the queue")
	ErrNotFound        = errors.New("not found")
	ErrInvalidPosition = errors.New("playback position must be a non-negative number")
	ErrInvalidMessage  = errors.New("message must be 1 to 1000 characters")
	ErrInvalidReaction = errors.New("unknown reaction")

	ErrQueueItemNotFound = fmt.Errorf("queue item %w", ErrNotFound)
	ErrVideoNotFound     = fmt.Errorf("video %w", ErrNotFound)
	ErrMessageNotFound   = fmt.Errorf("chat message %w", ErrNotFound)
)

const (
	PlaybackAuthorityAny    = "any"
	PlaybackAuthorityAdmins = "admins"
)

type iStateStore interface {
	// playback
	Get(ctx context.Context, roomId int64) room.PlaybackState
	Lookup(ctx context.Context, roomId int64) (room.PlaybackState, bool)
	Save(context.Context, *room.PlaybackState)
	UpdatePosition(ctx context.Context, roomId int64, position float64) room.PlaybackState
	UpdatePlayingStatus(ctx context.Context, roomId int64, isPlaying bool, position float64) room.PlaybackState
	UpdateCurrentVideo(ctx context.Context, roomId, videoId int64) room.PlaybackState
	DeleteRoom(ctx context.Context, roomId int64)
	// queue
	AddQueueItem(ctx context.Context, roomId, itemId int64)
	RemoveQueueItem(ctx context.Context, roomId, itemId int64)
	ToggleVote(ctx context.Context, roomId, itemId, userId int64) (roomstate.ToggleResult, error)
	HasVoted(ctx context.Context, roomId, itemId, userId int64) (bool, error)
	QueueLoaded(ctx context.Context, roomId int64) (bool, error)
	SeedQueue(context.Context, *room.SeedQueueParams) error
	RangeDescending(ctx context.Context, roomId int64) ([]room.RankedItem, error)
	QueueVoters(ctx context.Context, roomId int64) (map[int64][]int64, error)
	RepairScores(ctx context.Context, roomId int64, voters map[int64][]int64) error
	PopDirtyRooms(ctx context.Context, count int) ([]int64, error)
	MarkDirty(ctx context.Context, roomId int64)
	Invalidate(roomId int64)
}

type iQueueRepo interface {
	CreateItem(context.Context, *queue.CreateItemParams) (queue.QueueItem, error)
	GetItem(ctx context.Context, itemId int64) (queue.QueueItem, error)
	ExistsByRoomVideo(ctx context.Context, roomId, videoId int64) (bool, error)
	ListByRoom(ctx context.Context, roomId int64) ([]queue.QueueItem, error)
	DeleteItem(ctx context.Context, itemId int64) error
	EnsureVote(ctx context.Context, userId, itemId int64) error
	DeleteVote(ctx context.Context, userId, itemId int64) error
	RecountTotal(ctx context.Context, itemId int64) (int, error)
	HasVoted(ctx context.Context, userId, itemId int64) (bool, error)
	ToggleVote(ctx context.Context, userId, itemId int64) (queue.ToggleVoteResult, error)
	VotersByRoom(ctx context.Context, roomId int64) (map[int64][]int64, error)
	ReplaceVotes(ctx context.Context, roomId int64, voters map[int64][]int64) error
	SaveRoomState(context.Context, *queue.RoomStateSnapshot) error
}

type iChatRepo interface {
	CreateMessage(context.Context, *chat.CreateMessageParams) (chat.Message, error)
	GetMessage(ctx context.Context, messageId int64) (chat.Message, error)
	SetReaction(ctx context.Context, messageId int64, reaction chat.Reaction) (chat.Message, error)
	ListByRoom(context.Context, *chat.ListMessagesParams) ([]chat.Message, error)
}

type iDirectory interface {
	MembershipRole(ctx context.Context, roomId, userId int64) (directory.Role, error)
	VideoExists(ctx context.Context, videoId int64) (bool, error)
	UserDisplayName(ctx context.Context, userId int64) (string, error)
}

type iPublisher interface {
	Publish(ctx context.Context, roomId int64, event any) error
}

type Config struct {
	StateStore iStateStore
	QueueRepo  iQueueRepo
	ChatRepo   iChatRepo
	Directory  iDirectory
	Publisher  iPublisher
	Logger     *slog.Logger
	// PlaybackAuthority is PlaybackAuthorityAny or PlaybackAuthorityAdmins.
	PlaybackAuthority string
	MirrorWorkers     int
	Now               func() time.Time
}

type service struct {
	store             iStateStore
	queueRepo         iQueueRepo
	chatRepo          iChatRepo
	directory         iDirectory
	publisher         iPublisher
	logger            *slog.Logger
	playbackAuthority string
	mirror            *mirrorPool
	now               func() time.Time
}

func New(cfg *Config) *service {
	workers := cfg.MirrorWorkers
	if workers <= 0 {
		workers = 4
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	authority := cfg.PlaybackAuthority
	if authority == "" {
		authority = PlaybackAuthorityAny
	}

	return &service{
		store:             cfg.StateStore,
		queueRepo:         cfg.QueueRepo,
		chatRepo:          cfg.ChatRepo,
		directory:         cfg.Directory,
		publisher:         cfg.Publisher,
		logger:            cfg.Logger,
		playbackAuthority: authority,
		mirror:            newMirrorPool(workers),
		now:               now,
	}
}

// Wait blocks until every durable write queued before the call has finished.
// Toggles may continue during and after Wait.
func (s *service) Wait() {
	s.mirror.Wait()
}
