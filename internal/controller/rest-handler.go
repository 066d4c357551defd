package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchroom/internal/service/room"
	"github.com/sharetube/watchroom/pkg/rest"
)

type roomPath struct {
	RoomID int64 `json:"roomId" validate:"gt=0"`
}

type itemPath struct {
	RoomID int64 `json:"roomId" validate:"gt=0"`
	ItemID int64 `json:"itemId" validate:"gt=0"`
}

type addToQueueQuery struct {
	VideoID int64 `json:"videoId" validate:"gt=0"`
}

type messagesQuery struct {
	Page int `json:"page" validate:"gte=0"`
	Size int `json:"size" validate:"gte=1,lte=200"`
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}

	return id
}

// parseInt returns def for an absent value and -1 for a malformed one.
func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}

	return n
}

func (c controller) validateRequest(req any) error {
	if validationErrors, ok := c.validate.Validate(req); !ok {
		return validationErrors
	}

	return nil
}

func (c controller) getRoomPath(r *http.Request) (roomPath, error) {
	path := roomPath{RoomID: parseID(chi.URLParam(r, "room-id"))}
	return path, c.validateRequest(path)
}

func (c controller) getItemPath(r *http.Request) (itemPath, error) {
	path := itemPath{
		RoomID: parseID(chi.URLParam(r, "room-id")),
		ItemID: parseID(chi.URLParam(r, "item-id")),
	}
	return path, c.validateRequest(path)
}

func (c controller) getQueue(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	items, err := c.roomService.GetQueue(r.Context(), &room.GetQueueParams{
		RoomID:   path.RoomID,
		SenderID: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": items})
}

func (c controller) addToQueue(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	query := addToQueueQuery{VideoID: parseID(r.URL.Query().Get("videoId"))}
	if err := c.validateRequest(query); err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	resp, err := c.roomService.AddToQueue(r.Context(), &room.AddToQueueParams{
		RoomID:   path.RoomID,
		VideoID:  query.VideoID,
		SenderID: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp.Item})
}

func (c controller) removeFromQueue(w http.ResponseWriter, r *http.Request) {
	path, err := c.getItemPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	items, err := c.roomService.RemoveFromQueue(r.Context(), &room.RemoveFromQueueParams{
		RoomID:      path.RoomID,
		QueueItemID: path.ItemID,
		SenderID:    c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": items})
}

func (c controller) toggleVote(w http.ResponseWriter, r *http.Request) {
	path, err := c.getItemPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	resp, err := c.roomService.ToggleVote(r.Context(), &room.ToggleVoteParams{
		RoomID:      path.RoomID,
		QueueItemID: path.ItemID,
		SenderID:    c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

func (c controller) hasVoted(w http.ResponseWriter, r *http.Request) {
	path, err := c.getItemPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	voted, err := c.roomService.HasVoted(r.Context(), &room.HasVotedParams{
		RoomID:      path.RoomID,
		QueueItemID: path.ItemID,
		SenderID:    c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": map[string]bool{"voted": voted}})
}

func (c controller) getRoomState(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	state, err := c.roomService.GetRoomState(r.Context(), &room.RoomParams{
		RoomID:   path.RoomID,
		SenderID: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}

func (c controller) initRoomState(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	state, err := c.roomService.InitRoomState(r.Context(), &room.RoomParams{
		RoomID:   path.RoomID,
		SenderID: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}

func (c controller) closeRoom(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	if err := c.roomService.CloseRoom(r.Context(), &room.RoomParams{
		RoomID:   path.RoomID,
		SenderID: c.getUserIdFromCtx(r.Context()),
	}); err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) getMessages(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	query := messagesQuery{
		Page: parseInt(r.URL.Query().Get("page"), 0),
		Size: parseInt(r.URL.Query().Get("size"), 50),
	}
	if err := c.validateRequest(query); err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	messages, err := c.roomService.GetMessages(r.Context(), &room.GetMessagesParams{
		RoomID:   path.RoomID,
		SenderID: c.getUserIdFromCtx(r.Context()),
		Page:     query.Page,
		Size:     query.Size,
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": messages})
}

func (c controller) getRecentMessages(w http.ResponseWriter, r *http.Request) {
	path, err := c.getRoomPath(r)
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	messages, err := c.roomService.GetRecentMessages(r.Context(), &room.RoomParams{
		RoomID:   path.RoomID,
		SenderID: c.getUserIdFromCtx(r.Context()),
	})
	if err != nil {
		c.writeError(r.Context(), w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": messages})
}
