package gorm

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sharetube/watchroom/internal/repository/chat"
	"github.com/sharetube/watchroom/pkg/dbclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := dbclient.Open(&dbclient.Config{
		Dialect: "sqlite",
		DSN:     "file:chat_" + name + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := NewRepo(db, slog.Default())
	require.NoError(t, r.Migrate(context.Background()))

	return r
}

func addMessage(t *testing.T, r *repo, roomId int64, content string, sentAt time.Time) chat.Message {
	t.Helper()
	message, err := r.CreateMessage(context.Background(), &chat.CreateMessageParams{
		RoomID:   roomId,
		SenderID: 7,
		Content:  content,
		SentAt:   sentAt,
	})
	require.NoError(t, err)

	return message
}

func TestCreateAndGetMessage(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created := addMessage(t, r, 1, "hello", now)
	assert.NotZero(t, created.ID)
	assert.Empty(t, created.Reaction)

	got, err := r.GetMessage(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, int64(7), got.SenderID)

	_, err = r.GetMessage(ctx, created.ID+100)
	require.ErrorIs(t, err, chat.ErrMessageNotFound)
}

func TestSetReactionReplaces(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	message := addMessage(t, r, 1, "hello", time.Now().UTC())

	updated, err := r.SetReaction(ctx, message.ID, chat.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, chat.ReactionLike, updated.Reaction)

	updated, err = r.SetReaction(ctx, message.ID, chat.ReactionSad)
	require.NoError(t, err)
	assert.Equal(t, chat.ReactionSad, updated.Reaction)

	_, err = r.SetReaction(ctx, message.ID+100, chat.ReactionLike)
	require.ErrorIs(t, err, chat.ErrMessageNotFound)
}

func TestListByRoomNewestFirst(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := addMessage(t, r, 1, "first", now)
	second := addMessage(t, r, 1, "second", now.Add(time.Second))
	third := addMessage(t, r, 1, "third", now.Add(2*time.Second))
	addMessage(t, r, 2, "elsewhere", now.Add(3*time.Second))

	page, err := r.ListByRoom(ctx, &chat.ListMessagesParams{RoomID: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, third.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	page, err = r.ListByRoom(ctx, &chat.ListMessagesParams{RoomID: 1, Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	page, err = r.ListByRoom(ctx, &chat.ListMessagesParams{RoomID: 3, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}
