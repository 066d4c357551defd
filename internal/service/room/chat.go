package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sharetube/watchroom/internal/repository/chat"
)

const (
	maxMessageLength   = 1000
	defaultMessagePage = 50
	maxMessagePage     = 200
)

type SendMessageParams struct {
	RoomID   int64
	SenderID int64
	Content  string
}

type AddReactionParams struct {
	RoomID    int64
	MessageID int64
	SenderID  int64
	Reaction  string
}

type GetMessagesParams struct {
	RoomID   int64
	SenderID int64
	Page     int
	// Size defaults to 50 and is capped at 200.
	Size int
}

func (s service) newChatMessage(ctx context.Context, message chat.Message) ChatMessage {
	username, err := s.directory.UserDisplayName(ctx, message.SenderID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to get display name", "user_id", message.SenderID, "error", err)
	}

	out := ChatMessage{
		ID:         message.ID,
		RoomID:     message.RoomID,
		SenderID:   message.SenderID,
		SenderName: username,
		Message:    message.Content,
		SentAt:     message.SentAt.UTC(),
	}
	if message.Reaction != "" {
		reaction := string(message.Reaction)
		out.Reaction = &reaction
	}

	return out
}

// SendMessage stores a chat line from a member and broadcasts it to the room.
func (s service) SendMessage(ctx context.Context, params *SendMessageParams) (ChatMessage, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" || utf8.RuneCountInString(content) > maxMessageLength {
		return ChatMessage{}, ErrInvalidMessage
	}

	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return ChatMessage{}, err
	}

	message, err := s.chatRepo.CreateMessage(ctx, &chat.CreateMessageParams{
		RoomID:   params.RoomID,
		SenderID: params.SenderID,
		Content:  content,
		SentAt:   s.now(),
	})
	if err != nil {
		return ChatMessage{}, fmt.Errorf("failed to create message: %w", err)
	}

	out := s.newChatMessage(ctx, message)
	s.publish(ctx, params.RoomID, ChatEvent{
		Action:    ActionMessage,
		Message:   out,
		Timestamp: s.timestamp(),
	})

	return out, nil
}

// AddReaction sets the reaction of a message in the room, replacing any
// earlier one.
func (s service) AddReaction(ctx context.Context, params *AddReactionParams) (ChatMessage, error) {
	reaction := chat.Reaction(params.Reaction)
	if !reaction.Valid() {
		return ChatMessage{}, ErrInvalidReaction
	}

	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return ChatMessage{}, err
	}

	message, err := s.chatRepo.GetMessage(ctx, params.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return ChatMessage{}, ErrMessageNotFound
		}
		return ChatMessage{}, fmt.Errorf("failed to get message: %w", err)
	}

	if message.RoomID != params.RoomID {
		return ChatMessage{}, ErrMessageNotFound
	}

	message, err = s.chatRepo.SetReaction(ctx, params.MessageID, reaction)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return ChatMessage{}, ErrMessageNotFound
		}
		return ChatMessage{}, fmt.Errorf("failed to set reaction: %w", err)
	}

	out := s.newChatMessage(ctx, message)
	s.publish(ctx, params.RoomID, ChatEvent{
		Action:    ActionReaction,
		Message:   out,
		Timestamp: s.timestamp(),
	})

	return out, nil
}

// GetMessages returns one page of the room's chat, newest first.
func (s service) GetMessages(ctx context.Context, params *GetMessagesParams) ([]ChatMessage, error) {
	if _, err := s.getMemberRole(ctx, params.RoomID, params.SenderID); err != nil {
		return nil, err
	}

	size := params.Size
	if size <= 0 {
		size = defaultMessagePage
	}
	size = min(size, maxMessagePage)
	page := max(params.Page, 0)

	messages, err := s.chatRepo.ListByRoom(ctx, &chat.ListMessagesParams{
		RoomID: params.RoomID,
		Offset: page * size,
		Limit:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]ChatMessage, 0, len(messages))
	for _, message := range messages {
		out = append(out, s.newChatMessage(ctx, message))
	}

	return out, nil
}

// GetRecentMessages returns the latest 50 messages of the room, newest first.
func (s service) GetRecentMessages(ctx context.Context, params *RoomParams) ([]ChatMessage, error) {
	return s.GetMessages(ctx, &GetMessagesParams{
		RoomID:   params.RoomID,
		SenderID: params.SenderID,
	})
}
