package controller

import (
	"context"

	"github.com/sharetube/watchroom/internal/hub"
)

type contextKey int

const (
	userIdCtxKey contextKey = iota
	clientCtxKey
)

func (c controller) getUserIdFromCtx(ctx context.Context) int64 {
	userId, ok := ctx.Value(userIdCtxKey).(int64)
	if !ok {
		return 0
	}

	return userId
}

func (c controller) getClientFromCtx(ctx context.Context) *hub.Client {
	client, ok := ctx.Value(clientCtxKey).(*hub.Client)
	if !ok {
		return nil
	}

	return client
}
