package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/watchroom/internal/metrics"
	"github.com/sharetube/watchroom/pkg/ctxlogger"
	"github.com/sharetube/watchroom/pkg/wsrouter"
)

func (c controller) wsRequestIdMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, route wsrouter.Route, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx,
			slog.String("ws_request_id", uuid.NewString()),
			slog.Int64("room_id", route.RoomID),
			slog.String("destination", wsrouter.GetDestinationFromCtx(ctx)),
		)
		return next(ctx, route, payload)
	}
}

func (c controller) wsRateLimitMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, route wsrouter.Route, payload json.RawMessage) error {
		if client := c.getClientFromCtx(ctx); client != nil && !client.Allow() {
			return errRateLimited
		}
		return next(ctx, route, payload)
	}
}

func (c controller) wsLoggingMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, route wsrouter.Route, payload json.RawMessage) error {
		start := time.Now()
		err := next(ctx, route, payload)

		outcome := "ok"
		if err != nil {
			outcome = "rejected"
		}
		metrics.WsCommandsTotal.WithLabelValues(route.Command, outcome).Inc()

		c.logger.InfoContext(ctx, "ws request",
			"duration_us", time.Since(start).Microseconds(),
			"error", err,
		)

		return err
	}
}

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	r := wsrouter.New()
	r.Use(c.wsRequestIdMw, c.wsLoggingMw, c.wsRateLimitMw)

	wsrouter.Handle(r, "join", c.handleJoin)
	wsrouter.Handle(r, "leave", c.handleLeave)
	wsrouter.Handle(r, "play", c.playbackHandler(c.roomService.Play))
	wsrouter.Handle(r, "pause", c.playbackHandler(c.roomService.Pause))
	wsrouter.Handle(r, "seek", c.playbackHandler(c.roomService.Seek))
	wsrouter.Handle(r, "sync", c.playbackHandler(c.roomService.SyncPosition))
	wsrouter.Handle(r, "changeVideo", c.handleChangeVideo)
	wsrouter.Handle(r, "message", c.handleMessage)
	wsrouter.Handle(r, "reaction", c.handleReaction)

	return r
}
