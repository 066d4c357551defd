package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchroom/internal/hub"
	"github.com/sharetube/watchroom/internal/service/room"
	"github.com/sharetube/watchroom/pkg/validator"
	"github.com/sharetube/watchroom/pkg/wsrouter"
)

type iRoomService interface {
	// playback
	Play(context.Context, *room.PlaybackParams) (room.PlaybackEvent, error)
	Pause(context.Context, *room.PlaybackParams) (room.PlaybackEvent, error)
	Seek(context.Context, *room.PlaybackParams) (room.PlaybackEvent, error)
	SyncPosition(context.Context, *room.PlaybackParams) (room.PlaybackEvent, error)
	ChangeVideo(context.Context, *room.ChangeVideoParams) (room.PlaybackEvent, error)
	// queue
	AddToQueue(context.Context, *room.AddToQueueParams) (room.AddToQueueResponse, error)
	RemoveFromQueue(context.Context, *room.RemoveFromQueueParams) ([]room.QueueItem, error)
	ToggleVote(context.Context, *room.ToggleVoteParams) (room.ToggleVoteResponse, error)
	HasVoted(context.Context, *room.HasVotedParams) (bool, error)
	GetQueue(context.Context, *room.GetQueueParams) ([]room.QueueItem, error)
	// lifecycle
	InitRoomState(context.Context, *room.RoomParams) (room.RoomState, error)
	GetRoomState(context.Context, *room.RoomParams) (room.RoomState, error)
	CloseRoom(context.Context, *room.RoomParams) error
	MemberJoined(context.Context, *room.RoomParams) (room.RoomState, error)
	MemberLeft(context.Context, *room.RoomParams)
	// chat
	SendMessage(context.Context, *room.SendMessageParams) (room.ChatMessage, error)
	AddReaction(context.Context, *room.AddReactionParams) (room.ChatMessage, error)
	GetMessages(context.Context, *room.GetMessagesParams) ([]room.ChatMessage, error)
	GetRecentMessages(context.Context, *room.RoomParams) ([]room.ChatMessage, error)
}

type iHub interface {
	Subscribe(roomId int64, c *hub.Client)
	Unsubscribe(roomId int64, c *hub.Client) bool
	UnsubscribeAll(c *hub.Client) []int64
	IsSubscribed(roomId int64, c *hub.Client) bool
}

type Config struct {
	RoomService iRoomService
	Hub         iHub
	Logger      *slog.Logger
	Secret      string
	Client      hub.ClientConfig
}

type controller struct {
	roomService  iRoomService
	hub          iHub
	logger       *slog.Logger
	secret       string
	clientConfig hub.ClientConfig
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	wsRouter     *wsrouter.WSRouter
}

func New(cfg *Config) *controller {
	c := &controller{
		roomService:  cfg.RoomService,
		hub:          cfg.Hub,
		logger:       cfg.Logger,
		secret:       cfg.Secret,
		clientConfig: cfg.Client,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
	}
	c.wsRouter = c.getWSRouter()

	return c
}
