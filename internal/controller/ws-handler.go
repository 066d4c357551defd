package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sharetube/watchroom/internal/hub"
	"github.com/sharetube/watchroom/internal/service/room"
	"github.com/sharetube/watchroom/pkg/ctxlogger"
	"github.com/sharetube/watchroom/pkg/validator"
	"github.com/sharetube/watchroom/pkg/wsrouter"
)

const (
	roomStateAction = "ROOM_STATE"
	errorAction     = "ERROR"
)

var errNotJoined = errors.New("join the room first")

type positionInput struct {
	Position *float64 `json:"position" validate:"required,gte=0"`
}

type changeVideoInput struct {
	VideoID *int64 `json:"videoId" validate:"required,gt=0"`
}

type messageInput struct {
	Message string `json:"message" validate:"required,max=1000"`
}

type reactionInput struct {
	MessageID *int64 `json:"messageId" validate:"required,gt=0"`
	Reaction  string `json:"reaction" validate:"required,oneof=LIKE LOVE HAHA WOW SAD"`
}

type roomStateOutput struct {
	Action string         `json:"action"`
	State  room.RoomState `json:"state"`
}

type errorOutput struct {
	Action      string `json:"action"`
	Destination string `json:"destination"`
	Error       any    `json:"error"`
}

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	userId := c.getUserIdFromCtx(r.Context())

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	client := hub.NewClient(conn, userId, c.clientConfig)
	client.PrepareRead()
	go client.WritePump()

	ctx := context.WithValue(context.Background(), userIdCtxKey, userId)
	ctx = context.WithValue(ctx, clientCtxKey, client)
	ctx = ctxlogger.AppendCtx(ctx, slog.Int64("user_id", userId), slog.String("client_id", client.ID()))
	c.logger.InfoContext(ctx, "client connected")

	err = c.wsRouter.ServeConn(ctx, conn, c.writeWSError)
	c.logger.InfoContext(ctx, "client disconnected", "reason", err)

	for _, roomId := range c.hub.UnsubscribeAll(client) {
		c.roomService.MemberLeft(ctx, &room.RoomParams{RoomID: roomId, SenderID: userId})
	}
	client.Close()
}

func (c controller) writeWSError(ctx context.Context, msg wsrouter.Message, err error) {
	if errorStatus(err) == http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "command failed", "destination", msg.Destination, "error", err)
	}

	var message any = errorMessage(err)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		message = validationErrors
	}

	client := c.getClientFromCtx(ctx)
	if client == nil {
		return
	}

	client.SendJSON(errorOutput{
		Action:      errorAction,
		Destination: msg.Destination,
		Error:       message,
	})
}

func (c controller) requireJoined(ctx context.Context, roomId int64) error {
	if !c.hub.IsSubscribed(roomId, c.getClientFromCtx(ctx)) {
		return errNotJoined
	}

	return nil
}

func (c controller) handleJoin(ctx context.Context, roomId int64, _ struct{}) error {
	client := c.getClientFromCtx(ctx)

	state, err := c.roomService.MemberJoined(ctx, &room.RoomParams{
		RoomID:   roomId,
		SenderID: client.UserID(),
	})
	if err != nil {
		return err
	}

	c.hub.Subscribe(roomId, client)
	client.SendJSON(roomStateOutput{
		Action: roomStateAction,
		State:  state,
	})

	return nil
}

func (c controller) handleLeave(ctx context.Context, roomId int64, _ struct{}) error {
	client := c.getClientFromCtx(ctx)
	if !c.hub.Unsubscribe(roomId, client) {
		return errNotJoined
	}

	c.roomService.MemberLeft(ctx, &room.RoomParams{
		RoomID:   roomId,
		SenderID: client.UserID(),
	})

	return nil
}

func (c controller) playbackHandler(fn func(context.Context, *room.PlaybackParams) (room.PlaybackEvent, error)) func(context.Context, int64, positionInput) error {
	return func(ctx context.Context, roomId int64, input positionInput) error {
		if err := c.requireJoined(ctx, roomId); err != nil {
			return err
		}

		if err := c.validateRequest(input); err != nil {
			return err
		}

		_, err := fn(ctx, &room.PlaybackParams{
			RoomID:   roomId,
			SenderID: c.getUserIdFromCtx(ctx),
			Position: *input.Position,
		})

		return err
	}
}

func (c controller) handleChangeVideo(ctx context.Context, roomId int64, input changeVideoInput) error {
	if err := c.requireJoined(ctx, roomId); err != nil {
		return err
	}

	if err := c.validateRequest(input); err != nil {
		return err
	}

	_, err := c.roomService.ChangeVideo(ctx, &room.ChangeVideoParams{
		RoomID:   roomId,
		SenderID: c.getUserIdFromCtx(ctx),
		VideoID:  *input.VideoID,
	})

	return err
}

func (c controller) handleMessage(ctx context.Context, roomId int64, input messageInput) error {
	if err := c.requireJoined(ctx, roomId); err != nil {
		return err
	}

	if err := c.validateRequest(input); err != nil {
		return err
	}

	_, err := c.roomService.SendMessage(ctx, &room.SendMessageParams{
		RoomID:   roomId,
		SenderID: c.getUserIdFromCtx(ctx),
		Content:  input.Message,
	})

	return err
}

func (c controller) handleReaction(ctx context.Context, roomId int64, input reactionInput) error {
	if err := c.requireJoined(ctx, roomId); err != nil {
		return err
	}

	if err := c.validateRequest(input); err != nil {
		return err
	}

	_, err := c.roomService.AddReaction(ctx, &room.AddReactionParams{
		RoomID:    roomId,
		MessageID: *input.MessageID,
		SenderID:  c.getUserIdFromCtx(ctx),
		Reaction:  input.Reaction,
	})

	return err
}
