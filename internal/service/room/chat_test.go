package room

import (
	"context"
	"strings"
	"testing"

	"github.com/sharetube/watchroom/internal/repository/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) sendMessage(t *testing.T, userId int64, content string) ChatMessage {
	t.Helper()
	message, err := e.svc.SendMessage(context.Background(), &SendMessageParams{
		RoomID:   testRoom,
		SenderID: userId,
		Content:  content,
	})
	require.NoError(t, err)

	return message
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t, PlaybackAuthorityAny)

	message := env.sendMessage(t, memberId, "  hello room  ")
	assert.NotZero(t, message.ID)
	assert.Equal(t, testRoom, message.RoomID)
	assert.Equal(t, memberId, message.SenderID)
	assert.Equal(t, "user3", message.SenderName)
	assert.Equal(t, "hello room", message.Message)
	assert.Nil(t, message.Reaction)

	event, ok := env.publisher.last().(ChatEvent)
	require.True(t, ok)
	assert.Equal(t, ActionMessage, event.Action)
	assert.Equal(t, message, event.Message)
}

func TestSendMessageRejections(t *testing.T) {
	env := newTestEnv(t, PlaybackAuthorityAny)
	ctx := context.Background()

	tests := []struct {
		name    string
		params  SendMessageParams
		wantErr error
	}{
		{"blank", SendMessageParams{RoomID: testRoom, SenderID: memberId, Content: "   "}, ErrInvalidMessage},
		{"too long", SendMessageParams{RoomID: testRoom, SenderID: memberId, Content: strings.Repeat("я", maxMessageLength+1)}, ErrInvalidMessage},
		{"outsider", SendMessageParams{RoomID: testRoom, SenderID: outsideId, Content: "hi"}, ErrNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.SendMessage(ctx, &tt.params)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	// exactly the limit in runes is accepted
	env.sendMessage(t, memberId, strings.Repeat("я", maxMessageLength))
}

func TestAddReaction(t *testing.T) {
	env := newTestEnv(t, PlaybackAuthorityAny)
	ctx := context.Background()
	message := env.sendMessage(t, memberId, "hello")

	updated, err := env.svc.AddReaction(ctx, &AddReactionParams{
		RoomID:    testRoom,
		MessageID: message.ID,
		SenderID:  hostId,
		Reaction:  "LOVE",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Reaction)
	assert.Equal(t, "LOVE", *updated.Reaction)
	assert.Equal(t, "hello", updated.Message)

	event, ok := env.publisher.last().(ChatEvent)
	require.True(t, ok)
	assert.Equal(t, ActionReaction, event.Action)
	assert.Equal(t, updated, event.Message)

	updated, err = env.svc.AddReaction(ctx, &AddReactionParams{
		RoomID:    testRoom,
		MessageID: message.ID,
		SenderID:  memberId,
		Reaction:  "HAHA",
	})
	require.NoError(t, err)
	assert.Equal(t, "HAHA", *updated.Reaction, "a later reaction replaces the earlier one")
}

func TestAddReactionRejections(t *testing.T) {
	env := newTestEnv(t, PlaybackAuthorityAny)
	ctx := context.Background()
	message := env.sendMessage(t, memberId, "hello")

	tests := []struct {
		name    string
		params  AddReactionParams
		wantErr error
	}{
		{"unknown reaction", AddReactionParams{RoomID: testRoom, MessageID: message.ID, SenderID: memberId, Reaction: "ANGRY"}, ErrInvalidReaction},
		{"outsider", AddReactionParams{RoomID: testRoom, MessageID: message.ID, SenderID: outsideId, Reaction: "LIKE"}, ErrNotMember},
		{"missing message", AddReactionParams{RoomID: testRoom, MessageID: message.ID + 100, SenderID: memberId, Reaction: "LIKE"}, ErrMessageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AddReaction(ctx, &tt.params)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAddReactionOtherRoom(t *testing.T) {
	env := newTestEnv(t, PlaybackAuthorityAny)
	ctx := context.Background()
	message := env.sendMessage(t, memberId, "hello")

	const otherRoom = int64(2)
	env.dir.addMember(otherRoom, memberId, directory.RoleMember)

	_, err := env.svc.AddReaction(ctx, &AddReactionParams{
		RoomID:    otherRoom,
		MessageID: message.ID,
		SenderID:  memberId,
		Reaction:  "LIKE",
	})
	require.ErrorIs(t, err, ErrMessageNotFound)
}

func TestGetMessages(t *testing.T) {
	env := newTestEnv(t, PlaybackAuthorityAny)
	ctx := context.Background()

	first := env.sendMessage(t, memberId, "one")
	second := env.sendMessage(t, hostId, "two")
	third := env.sendMessage(t, adminId, "three")

	messages, err := env.svc.GetMessages(ctx, &GetMessagesParams{RoomID: testRoom, SenderID: memberId, Size: 2})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, third.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)

	messages, err = env.svc.GetMessages(ctx, &GetMessagesParams{RoomID: testRoom, SenderID: memberId, Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, first.ID, messages[0].ID)

	recent, err := env.svc.GetRecentMessages(ctx, &RoomParams{RoomID: testRoom, SenderID: memberId})
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	_, err = env.svc.GetRecentMessages(ctx, &RoomParams{RoomID: testRoom, SenderID: outsideId})
	require.ErrorIs(t, err, ErrNotMember)
}
